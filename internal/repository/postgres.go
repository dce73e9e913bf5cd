package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/localphoto/backend/internal/auth"
	"github.com/localphoto/backend/internal/domain"
	"github.com/localphoto/backend/internal/geo"
)

const submissionColumns = `id, owner_id, latitude, longitude, description, image_url, created_at, expires_at, thumbs_up, thumbs_down`

// PostgresRepository implements domain.SubmissionRepository and
// domain.UserRepository on PostgreSQL. Row-level atomicity comes from
// the database: vote increments are single UPDATE statements and the
// edit-window check shares a transaction with the description write.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// CreateSubmission inserts a fully populated submission row.
func (r *PostgresRepository) CreateSubmission(ctx context.Context, s *domain.Submission) error {
	query := `
		INSERT INTO submissions (id, owner_id, latitude, longitude, description, image_url, created_at, expires_at, thumbs_up, thumbs_down)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.Exec(ctx, query,
		s.ID,
		s.OwnerID,
		s.Location.Lat,
		s.Location.Lng,
		s.Description,
		s.ImageURL,
		s.CreatedAt,
		s.ExpiresAt,
		s.ThumbsUp,
		s.ThumbsDown,
	)
	return err
}

// GetSubmissionByID retrieves a submission regardless of expiry.
func (r *PostgresRepository) GetSubmissionByID(ctx context.Context, id uuid.UUID) (*domain.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE id = $1`
	return scanSubmission(r.db.QueryRow(ctx, query, id))
}

// UpdateSubmissionDescription performs the ownership and edit-window
// checks and the write inside one transaction, with the row locked, so
// a closing window cannot race the update.
func (r *PostgresRepository) UpdateSubmissionDescription(ctx context.Context, id, requesterID uuid.UUID, description *string, editableSince time.Time) (*domain.Submission, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var ownerID uuid.UUID
	var createdAt time.Time
	err = tx.QueryRow(ctx,
		`SELECT owner_id, created_at FROM submissions WHERE id = $1 FOR UPDATE`, id,
	).Scan(&ownerID, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSubmissionNotFound
		}
		return nil, err
	}

	if ownerID != requesterID {
		return nil, domain.ErrNotOwner
	}
	if !createdAt.After(editableSince) {
		return nil, domain.ErrEditWindowExpired
	}

	sub, err := scanSubmission(tx.QueryRow(ctx,
		`UPDATE submissions SET description = $2 WHERE id = $1 RETURNING `+submissionColumns,
		id, description,
	))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return sub, nil
}

// DeleteSubmission removes the row in a single statement and returns
// the pre-deletion snapshot. Lock and expiry state are irrelevant;
// only ownership gates it.
func (r *PostgresRepository) DeleteSubmission(ctx context.Context, id, requesterID uuid.UUID) (*domain.Submission, error) {
	sub, err := scanSubmission(r.db.QueryRow(ctx,
		`DELETE FROM submissions WHERE id = $1 AND owner_id = $2 RETURNING `+submissionColumns,
		id, requesterID,
	))
	if err == nil {
		return sub, nil
	}
	if !errors.Is(err, domain.ErrSubmissionNotFound) {
		return nil, err
	}

	// Nothing deleted: distinguish a missing row from someone else's.
	var exists bool
	if err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM submissions WHERE id = $1)`, id,
	).Scan(&exists); err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrNotOwner
	}
	return nil, domain.ErrSubmissionNotFound
}

// IncrementSubmissionVote bumps the named counter atomically in the
// database; concurrent votes never lose updates.
func (r *PostgresRepository) IncrementSubmissionVote(ctx context.Context, id uuid.UUID, kind domain.VoteKind) (*domain.Submission, error) {
	var column string
	switch kind {
	case domain.VoteUp:
		column = "thumbs_up"
	case domain.VoteDown:
		column = "thumbs_down"
	default:
		return nil, fmt.Errorf("unknown vote kind %q", kind)
	}

	query := fmt.Sprintf(
		`UPDATE submissions SET %s = %s + 1 WHERE id = $1 RETURNING %s`,
		column, column, submissionColumns,
	)
	return scanSubmission(r.db.QueryRow(ctx, query, id))
}

// ListSubmissionsByOwner returns the owner's submissions regardless of
// expiry, newest first, through the owner_id index.
func (r *PostgresRepository) ListSubmissionsByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.Submission, error) {
	query := `SELECT ` + submissionColumns + `
		FROM submissions
		WHERE owner_id = $1
		ORDER BY created_at DESC, id DESC`

	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []*domain.Submission
	for rows.Next() {
		sub, err := scanSubmissionRow(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// metersPerDegreeLat sizes the SQL bounding box; exact inclusion is
// decided by the caller with the spherical distance.
const metersPerDegreeLat = 111_320.0

// SearchNearby prefilters with a bounding box over the indexed
// latitude/longitude columns and drops expired rows in SQL.
func (r *PostgresRepository) SearchNearby(ctx context.Context, center geo.Point, radiusMeters float64, now time.Time) ([]*domain.Submission, error) {
	latDelta := radiusMeters / metersPerDegreeLat
	minLat := math.Max(center.Lat-latDelta, -90)
	maxLat := math.Min(center.Lat+latDelta, 90)

	query := `SELECT ` + submissionColumns + `
		FROM submissions
		WHERE expires_at >= $1 AND latitude BETWEEN $2 AND $3`
	args := []any{now, minLat, maxLat}

	// Longitude filter only when the box does not wrap the globe. The
	// half-width is sized at the poleward edge of the latitude range,
	// where longitude degrees are shortest, so the box never
	// under-covers.
	polewardLat := math.Max(math.Abs(minLat), math.Abs(maxLat))
	cosLat := math.Cos(polewardLat * math.Pi / 180)
	if cosLat > 1e-9 {
		lngDelta := radiusMeters / (metersPerDegreeLat * cosLat)
		if lngDelta < 180 {
			minLng := center.Lng - lngDelta
			maxLng := center.Lng + lngDelta
			if minLng >= -180 && maxLng <= 180 {
				query += ` AND longitude BETWEEN $4 AND $5`
				args = append(args, minLng, maxLng)
			} else {
				// Box crosses the antimeridian; take both edges.
				query += ` AND (longitude >= $4 OR longitude <= $5)`
				args = append(args, wrapLng(minLng), wrapLng(maxLng))
			}
		}
	}

	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []*domain.Submission
	for rows.Next() {
		sub, err := scanSubmissionRow(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func wrapLng(lng float64) float64 {
	for lng > 180 {
		lng -= 360
	}
	for lng < -180 {
		lng += 360
	}
	return lng
}

func scanSubmission(row pgx.Row) (*domain.Submission, error) {
	sub, err := scanSubmissionRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSubmissionNotFound
		}
		return nil, err
	}
	return sub, nil
}

func scanSubmissionRow(row pgx.Row) (*domain.Submission, error) {
	var sub domain.Submission
	err := row.Scan(
		&sub.ID,
		&sub.OwnerID,
		&sub.Location.Lat,
		&sub.Location.Lng,
		&sub.Description,
		&sub.ImageURL,
		&sub.CreatedAt,
		&sub.ExpiresAt,
		&sub.ThumbsUp,
		&sub.ThumbsDown,
	)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// --- users ---

// CreateUser creates a new user
func (r *PostgresRepository) CreateUser(ctx context.Context, params domain.CreateUserParams) (*domain.User, error) {
	query := `
		INSERT INTO users (id, email, password_hash, name)
		VALUES ($1, $2, $3, $4)
		RETURNING id, email, name, created_at
	`
	return scanUser(r.db.QueryRow(ctx, query, uuid.New(), params.Email, params.PasswordHash, params.Name))
}

// GetUserByID retrieves a user by ID
func (r *PostgresRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `SELECT id, email, name, created_at FROM users WHERE id = $1`
	return scanUser(r.db.QueryRow(ctx, query, id))
}

// GetUserByEmail retrieves a user by email
func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT id, email, name, created_at FROM users WHERE email = $1`
	return scanUser(r.db.QueryRow(ctx, query, email))
}

// UserExistsByEmail checks if a user exists by email
func (r *PostgresRepository) UserExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists)
	return exists, err
}

// VerifyUserPassword verifies a user's password
func (r *PostgresRepository) VerifyUserPassword(ctx context.Context, email, password string) (*domain.User, error) {
	query := `SELECT id, email, name, created_at, password_hash FROM users WHERE email = $1`

	var user domain.User
	var passwordHash string
	err := r.db.QueryRow(ctx, query, email).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.CreatedAt,
		&passwordHash,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}

	if err := auth.VerifyPassword(password, passwordHash); err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	return &user, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	err := row.Scan(&user.ID, &user.Email, &user.Name, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}
