package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/localphoto/backend/internal/auth"
	"github.com/localphoto/backend/internal/domain"
	"github.com/localphoto/backend/internal/geo"
	"github.com/localphoto/backend/internal/geoindex"
)

// MemoryRepository implements the submission and user repositories in
// memory, with a grid index standing in for the database's spatial
// index. Semantics match PostgresRepository: mutations are atomic under
// the mutex, reads hand out clones so no caller sees a row mid-write.
type MemoryRepository struct {
	mu          sync.RWMutex
	submissions map[uuid.UUID]*domain.Submission
	index       geoindex.Index

	usersByID    map[uuid.UUID]*domain.User
	usersByEmail map[string]uuid.UUID
	passwords    map[uuid.UUID]string
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository(index geoindex.Index) *MemoryRepository {
	if index == nil {
		index = geoindex.NewGridIndex(1.0)
	}
	return &MemoryRepository{
		submissions:  make(map[uuid.UUID]*domain.Submission),
		index:        index,
		usersByID:    make(map[uuid.UUID]*domain.User),
		usersByEmail: make(map[string]uuid.UUID),
		passwords:    make(map[uuid.UUID]string),
	}
}

// CreateSubmission stores the submission and registers its location in
// the spatial index in the same critical section.
func (r *MemoryRepository) CreateSubmission(ctx context.Context, s *domain.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.submissions[s.ID] = s.Clone()
	r.index.Insert(s.ID, s.Location)
	return nil
}

func (r *MemoryRepository) GetSubmissionByID(ctx context.Context, id uuid.UUID) (*domain.Submission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sub, ok := r.submissions[id]
	if !ok {
		return nil, domain.ErrSubmissionNotFound
	}
	return sub.Clone(), nil
}

func (r *MemoryRepository) UpdateSubmissionDescription(ctx context.Context, id, requesterID uuid.UUID, description *string, editableSince time.Time) (*domain.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.submissions[id]
	if !ok {
		return nil, domain.ErrSubmissionNotFound
	}
	if sub.OwnerID != requesterID {
		return nil, domain.ErrNotOwner
	}
	if !sub.CreatedAt.After(editableSince) {
		return nil, domain.ErrEditWindowExpired
	}

	if description != nil {
		d := *description
		sub.Description = &d
	} else {
		sub.Description = nil
	}
	return sub.Clone(), nil
}

func (r *MemoryRepository) DeleteSubmission(ctx context.Context, id, requesterID uuid.UUID) (*domain.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.submissions[id]
	if !ok {
		return nil, domain.ErrSubmissionNotFound
	}
	if sub.OwnerID != requesterID {
		return nil, domain.ErrNotOwner
	}

	delete(r.submissions, id)
	r.index.Remove(id)
	return sub, nil
}

func (r *MemoryRepository) IncrementSubmissionVote(ctx context.Context, id uuid.UUID, kind domain.VoteKind) (*domain.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.submissions[id]
	if !ok {
		return nil, domain.ErrSubmissionNotFound
	}
	if kind == domain.VoteDown {
		sub.ThumbsDown++
	} else {
		sub.ThumbsUp++
	}
	return sub.Clone(), nil
}

// ListSubmissionsByOwner returns the owner's submissions regardless of
// expiry; the owner's own history stays visible until deleted.
func (r *MemoryRepository) ListSubmissionsByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.Submission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var subs []*domain.Submission
	for _, sub := range r.submissions {
		if sub.OwnerID == ownerID {
			subs = append(subs, sub.Clone())
		}
	}
	return subs, nil
}

// SearchNearby consults the grid index for candidates and filters
// expired rows; the exact radius re-check happens in the proximity
// engine.
func (r *MemoryRepository) SearchNearby(ctx context.Context, center geo.Point, radiusMeters float64, now time.Time) ([]*domain.Submission, error) {
	ids := r.index.QueryRadius(center, radiusMeters)

	r.mu.RLock()
	defer r.mu.RUnlock()

	var subs []*domain.Submission
	for _, id := range ids {
		sub, ok := r.submissions[id]
		if !ok {
			continue
		}
		if now.After(sub.ExpiresAt) {
			continue
		}
		subs = append(subs, sub.Clone())
	}
	return subs, nil
}

// --- users ---

func (r *MemoryRepository) CreateUser(ctx context.Context, params domain.CreateUserParams) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.usersByEmail[params.Email]; ok {
		return nil, domain.ErrUserAlreadyExists
	}

	user := &domain.User{
		ID:        uuid.New(),
		Email:     params.Email,
		Name:      params.Name,
		CreatedAt: time.Now().UTC(),
	}
	r.usersByID[user.ID] = user
	r.usersByEmail[user.Email] = user.ID
	r.passwords[user.ID] = params.PasswordHash

	cp := *user
	return &cp, nil
}

func (r *MemoryRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.usersByID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *user
	return &cp, nil
}

func (r *MemoryRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.usersByEmail[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *r.usersByID[id]
	return &cp, nil
}

func (r *MemoryRepository) UserExistsByEmail(ctx context.Context, email string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.usersByEmail[email]
	return ok, nil
}

func (r *MemoryRepository) VerifyUserPassword(ctx context.Context, email, password string) (*domain.User, error) {
	r.mu.RLock()
	id, ok := r.usersByEmail[email]
	if !ok {
		r.mu.RUnlock()
		return nil, domain.ErrUserNotFound
	}
	user := *r.usersByID[id]
	hash := r.passwords[id]
	r.mu.RUnlock()

	if err := auth.VerifyPassword(password, hash); err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	return &user, nil
}
