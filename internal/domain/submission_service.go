package domain

import (
	"context"
	"io"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/localphoto/backend/internal/geo"
	"github.com/localphoto/backend/internal/storage"
)

// SubmissionService owns the submission lifecycle: creation, time-gated
// description edits, deletion with best-effort blob cleanup, and vote
// increments. Every operation takes the authenticated requester as an
// explicit parameter; the service trusts that identity.
type SubmissionService struct {
	repo      SubmissionRepository
	storage   storage.FileStorage
	clock     Clock
	lifecycle *Lifecycle
	logger    *zap.Logger
}

func NewSubmissionService(repo SubmissionRepository, fileStorage storage.FileStorage, clock Clock, lifecycle *Lifecycle, logger *zap.Logger) *SubmissionService {
	return &SubmissionService{
		repo:      repo,
		storage:   fileStorage,
		clock:     clock,
		lifecycle: lifecycle,
		logger:    logger,
	}
}

func validateDescription(description *string) error {
	if description == nil {
		return nil
	}
	if utf8.RuneCountInString(*description) > MaxDescriptionLength {
		return &ValidationError{Field: "description", Reason: "must be at most 256 characters"}
	}
	return nil
}

// Create validates the input, uploads the image and persists the
// submission. Timestamps come from the injected clock; expiry is always
// derived as created_at plus the configured horizon.
func (s *SubmissionService) Create(ctx context.Context, params CreateSubmissionParams, file io.Reader, filename, contentType string) (*Submission, error) {
	location, err := geo.NewPoint(params.Latitude, params.Longitude)
	if err != nil {
		return nil, &ValidationError{Field: "location", Reason: err.Error()}
	}
	if err := validateDescription(params.Description); err != nil {
		return nil, err
	}

	imageURL, err := s.storage.SaveFile(ctx, file, filename, contentType)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	sub := &Submission{
		ID:          uuid.New(),
		OwnerID:     params.OwnerID,
		Location:    location,
		Description: params.Description,
		ImageURL:    imageURL,
		CreatedAt:   now,
		ExpiresAt:   s.lifecycle.ExpiresAt(now),
	}

	if err := s.repo.CreateSubmission(ctx, sub); err != nil {
		// The image is already uploaded; try to reclaim it, but the
		// create failure is what the caller needs to see.
		if delErr := s.storage.DeleteFile(ctx, imageURL); delErr != nil {
			s.logger.Warn("orphaned image after failed create",
				zap.String("image_url", imageURL), zap.Error(delErr))
		}
		return nil, err
	}

	return s.stamp(sub, now), nil
}

// GetByID returns the submission regardless of expiry; expiry gates
// search visibility only, not direct lookup.
func (s *SubmissionService) GetByID(ctx context.Context, id uuid.UUID) (*Submission, error) {
	sub, err := s.repo.GetSubmissionByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.stamp(sub, s.clock.Now()), nil
}

// UpdateDescription replaces the description if the requester owns the
// submission and the edit window is still open. The check and the write
// happen atomically at the storage layer.
func (s *SubmissionService) UpdateDescription(ctx context.Context, id, requesterID uuid.UUID, description *string) (*Submission, error) {
	if err := validateDescription(description); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	editableSince := now.Add(-s.lifecycle.EditWindow())
	sub, err := s.repo.UpdateSubmissionDescription(ctx, id, requesterID, description, editableSince)
	if err != nil {
		return nil, err
	}
	return s.stamp(sub, now), nil
}

// Delete removes the submission and returns its final snapshot. The
// stored image is deleted best-effort: a blob store failure is logged
// and never fails the deletion.
func (s *SubmissionService) Delete(ctx context.Context, id, requesterID uuid.UUID) (*Submission, error) {
	sub, err := s.repo.DeleteSubmission(ctx, id, requesterID)
	if err != nil {
		return nil, err
	}

	if err := s.storage.DeleteFile(ctx, sub.ImageURL); err != nil {
		s.logger.Warn("failed to delete submission image",
			zap.String("submission_id", id.String()),
			zap.String("image_url", sub.ImageURL),
			zap.Error(err))
	}

	return s.stamp(sub, s.clock.Now()), nil
}

// ListByOwner returns the owner's submissions, newest first. Expiry
// hides a submission from search, not from its owner's own listing.
func (s *SubmissionService) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*Submission, error) {
	subs, err := s.repo.ListSubmissionsByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	for _, sub := range subs {
		s.stamp(sub, now)
	}
	sortNewestFirst(subs)
	return subs, nil
}

// Vote increments the named counter. Repeat votes accumulate: there is
// no per-user tracking and no decrement.
func (s *SubmissionService) Vote(ctx context.Context, id uuid.UUID, kind VoteKind) (*Submission, error) {
	if kind != VoteUp && kind != VoteDown {
		return nil, &ValidationError{Field: "vote", Reason: "kind must be up or down"}
	}
	sub, err := s.repo.IncrementSubmissionVote(ctx, id, kind)
	if err != nil {
		return nil, err
	}
	return s.stamp(sub, s.clock.Now()), nil
}

// stamp fills the derived lock state before a submission leaves the
// service.
func (s *SubmissionService) stamp(sub *Submission, now time.Time) *Submission {
	sub.Locked = s.lifecycle.IsLocked(sub, now)
	return sub
}
