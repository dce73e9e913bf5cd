package domain

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/localphoto/backend/internal/geo"
)

// MaxDescriptionLength bounds the optional caption, counted in runes.
const MaxDescriptionLength = 256

var (
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrNotOwner           = errors.New("submission does not belong to requester")
	ErrEditWindowExpired  = errors.New("edit window has expired")
)

// ValidationError marks malformed input rejected before any mutation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Submission is a geotagged, ephemeral photo post. Everything except
// the description is immutable after creation; Locked is derived from
// the lifecycle clock when the entity is returned, never stored.
type Submission struct {
	ID          uuid.UUID `json:"id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	Location    geo.Point `json:"location"`
	Description *string   `json:"description,omitempty"`
	ImageURL    string    `json:"image_url"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	ThumbsUp    int64     `json:"thumbs_up"`
	ThumbsDown  int64     `json:"thumbs_down"`
	Locked      bool      `json:"locked"`
}

// Clone returns a copy so stored entities never escape by reference.
func (s *Submission) Clone() *Submission {
	cp := *s
	if s.Description != nil {
		d := *s.Description
		cp.Description = &d
	}
	return &cp
}

// sortNewestFirst orders submissions by creation time descending, id
// string descending as the tie-break.
func sortNewestFirst(subs []*Submission) {
	sort.Slice(subs, func(i, j int) bool {
		if !subs[i].CreatedAt.Equal(subs[j].CreatedAt) {
			return subs[i].CreatedAt.After(subs[j].CreatedAt)
		}
		return strings.Compare(subs[i].ID.String(), subs[j].ID.String()) > 0
	})
}

// VoteKind names the two counters.
type VoteKind string

const (
	VoteUp   VoteKind = "up"
	VoteDown VoteKind = "down"
)

// CreateSubmissionParams holds the caller-supplied fields for creation.
type CreateSubmissionParams struct {
	OwnerID     uuid.UUID
	Latitude    float64
	Longitude   float64
	Description *string
}

// SubmissionRepository is the storage contract for the submission
// lifecycle. Implementations must make each mutation atomic per row:
// vote increments never lose updates under concurrent callers, and
// UpdateDescription performs its ownership and edit-window checks in
// the same atomic unit as the write.
type SubmissionRepository interface {
	CreateSubmission(ctx context.Context, s *Submission) error
	GetSubmissionByID(ctx context.Context, id uuid.UUID) (*Submission, error)

	// UpdateSubmissionDescription replaces the description iff the
	// requester owns the row and CreatedAt is after editableSince
	// (i.e. now - edit window). Returns ErrSubmissionNotFound,
	// ErrNotOwner or ErrEditWindowExpired accordingly.
	UpdateSubmissionDescription(ctx context.Context, id, requesterID uuid.UUID, description *string, editableSince time.Time) (*Submission, error)

	// DeleteSubmission removes the row regardless of lock or expiry
	// state, gated only by ownership, and returns the pre-deletion
	// snapshot.
	DeleteSubmission(ctx context.Context, id, requesterID uuid.UUID) (*Submission, error)

	// IncrementSubmissionVote atomically bumps the named counter.
	IncrementSubmissionVote(ctx context.Context, id uuid.UUID, kind VoteKind) (*Submission, error)

	// ListSubmissionsByOwner returns every submission belonging to the
	// owner, expired ones included, in no particular order.
	ListSubmissionsByOwner(ctx context.Context, ownerID uuid.UUID) ([]*Submission, error)

	// SearchNearby returns candidate submissions within radiusMeters
	// of center that have not expired as of now. Implementations may
	// over-approximate the radius; the proximity engine re-checks
	// with the exact great-circle distance.
	SearchNearby(ctx context.Context, center geo.Point, radiusMeters float64, now time.Time) ([]*Submission, error)
}
