package domain

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/localphoto/backend/internal/geo"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeStorage struct {
	saved     []string
	deleted   []string
	saveErr   error
	deleteErr error
}

func (s *fakeStorage) SaveFile(_ context.Context, _ io.Reader, filename, _ string) (string, error) {
	if s.saveErr != nil {
		return "", s.saveErr
	}
	url := "https://files.test/" + filename
	s.saved = append(s.saved, url)
	return url, nil
}

func (s *fakeStorage) DeleteFile(_ context.Context, fileURL string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleted = append(s.deleted, fileURL)
	return nil
}

type fakeRepo struct {
	mu          sync.Mutex
	submissions map[uuid.UUID]*Submission
	createErr   error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{submissions: make(map[uuid.UUID]*Submission)}
}

func (r *fakeRepo) CreateSubmission(_ context.Context, s *Submission) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.submissions[s.ID] = s.Clone()
	return nil
}

func (r *fakeRepo) GetSubmissionByID(_ context.Context, id uuid.UUID) (*Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.submissions[id]
	if !ok {
		return nil, ErrSubmissionNotFound
	}
	return sub.Clone(), nil
}

func (r *fakeRepo) UpdateSubmissionDescription(_ context.Context, id, requesterID uuid.UUID, description *string, editableSince time.Time) (*Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.submissions[id]
	if !ok {
		return nil, ErrSubmissionNotFound
	}
	if sub.OwnerID != requesterID {
		return nil, ErrNotOwner
	}
	if !sub.CreatedAt.After(editableSince) {
		return nil, ErrEditWindowExpired
	}
	sub.Description = description
	return sub.Clone(), nil
}

func (r *fakeRepo) DeleteSubmission(_ context.Context, id, requesterID uuid.UUID) (*Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.submissions[id]
	if !ok {
		return nil, ErrSubmissionNotFound
	}
	if sub.OwnerID != requesterID {
		return nil, ErrNotOwner
	}
	delete(r.submissions, id)
	return sub, nil
}

func (r *fakeRepo) IncrementSubmissionVote(_ context.Context, id uuid.UUID, kind VoteKind) (*Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.submissions[id]
	if !ok {
		return nil, ErrSubmissionNotFound
	}
	if kind == VoteUp {
		sub.ThumbsUp++
	} else {
		sub.ThumbsDown++
	}
	return sub.Clone(), nil
}

func (r *fakeRepo) ListSubmissionsByOwner(_ context.Context, ownerID uuid.UUID) ([]*Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Submission
	for _, sub := range r.submissions {
		if sub.OwnerID == ownerID {
			out = append(out, sub.Clone())
		}
	}
	return out, nil
}

func (r *fakeRepo) SearchNearby(_ context.Context, _ geo.Point, _ float64, now time.Time) ([]*Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Submission
	for _, sub := range r.submissions {
		if now.After(sub.ExpiresAt) {
			continue
		}
		out = append(out, sub.Clone())
	}
	return out, nil
}

func newTestSubmissionService(t *testing.T) (*SubmissionService, *fakeRepo, *fakeStorage, *fakeClock) {
	t.Helper()
	repo := newFakeRepo()
	files := &fakeStorage{}
	clock := newFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	svc := NewSubmissionService(repo, files, clock, NewLifecycle(DefaultLifecycleConfig()), zap.NewNop())
	return svc, repo, files, clock
}

func strPtr(s string) *string { return &s }

func TestCreateSubmission(t *testing.T) {
	svc, _, files, clock := newTestSubmissionService(t)

	owner := uuid.New()
	sub, err := svc.Create(context.Background(), CreateSubmissionParams{
		OwnerID:     owner,
		Latitude:    37.7749,
		Longitude:   -122.4194,
		Description: strPtr("golden gate"),
	}, strings.NewReader("jpeg-bytes"), "photo.jpg", "image/jpeg")
	require.NoError(t, err)

	assert.Equal(t, owner, sub.OwnerID)
	assert.Equal(t, clock.Now(), sub.CreatedAt)
	assert.Equal(t, clock.Now().Add(72*time.Hour), sub.ExpiresAt)
	assert.Equal(t, "golden gate", *sub.Description)
	assert.False(t, sub.Locked)
	assert.Zero(t, sub.ThumbsUp)
	assert.Zero(t, sub.ThumbsDown)
	require.Len(t, files.saved, 1)
	assert.Equal(t, files.saved[0], sub.ImageURL)
}

func TestCreateSubmissionRejectsInvalidInput(t *testing.T) {
	svc, _, files, _ := newTestSubmissionService(t)

	tests := []struct {
		name   string
		params CreateSubmissionParams
	}{
		{"latitude out of range", CreateSubmissionParams{Latitude: 91, Longitude: 0}},
		{"longitude out of range", CreateSubmissionParams{Latitude: 0, Longitude: -181}},
		{"description too long", CreateSubmissionParams{
			Latitude:    0,
			Longitude:   0,
			Description: strPtr(strings.Repeat("x", MaxDescriptionLength+1)),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.params.OwnerID = uuid.New()
			_, err := svc.Create(context.Background(), tt.params, strings.NewReader("x"), "p.jpg", "image/jpeg")
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
		})
	}

	// No upload happens when validation fails.
	assert.Empty(t, files.saved)
}

func TestCreateSubmissionAllowsMaxLengthDescription(t *testing.T) {
	svc, _, _, _ := newTestSubmissionService(t)

	sub, err := svc.Create(context.Background(), CreateSubmissionParams{
		OwnerID:     uuid.New(),
		Description: strPtr(strings.Repeat("ü", MaxDescriptionLength)),
	}, strings.NewReader("x"), "p.jpg", "image/jpeg")
	require.NoError(t, err)
	assert.NotNil(t, sub.Description)
}

func TestCreateSubmissionCleansUpImageOnRepoFailure(t *testing.T) {
	svc, repo, files, _ := newTestSubmissionService(t)
	repo.createErr = errors.New("connection reset")

	_, err := svc.Create(context.Background(), CreateSubmissionParams{
		OwnerID: uuid.New(),
	}, strings.NewReader("x"), "p.jpg", "image/jpeg")
	require.Error(t, err)

	require.Len(t, files.saved, 1)
	assert.Equal(t, files.saved, files.deleted)
}

func TestUpdateDescriptionWithinWindow(t *testing.T) {
	svc, _, _, clock := newTestSubmissionService(t)

	owner := uuid.New()
	sub, err := svc.Create(context.Background(), CreateSubmissionParams{OwnerID: owner},
		strings.NewReader("x"), "p.jpg", "image/jpeg")
	require.NoError(t, err)

	clock.Advance(10*time.Minute - time.Second)

	updated, err := svc.UpdateDescription(context.Background(), sub.ID, owner, strPtr("new caption"))
	require.NoError(t, err)
	assert.Equal(t, "new caption", *updated.Description)
	assert.False(t, updated.Locked)
}

func TestUpdateDescriptionAfterWindow(t *testing.T) {
	svc, _, _, clock := newTestSubmissionService(t)

	owner := uuid.New()
	sub, err := svc.Create(context.Background(), CreateSubmissionParams{OwnerID: owner},
		strings.NewReader("x"), "p.jpg", "image/jpeg")
	require.NoError(t, err)

	// The window closes at exactly ten minutes.
	clock.Advance(10 * time.Minute)

	_, err = svc.UpdateDescription(context.Background(), sub.ID, owner, strPtr("too late"))
	assert.ErrorIs(t, err, ErrEditWindowExpired)
}

func TestUpdateDescriptionNotOwner(t *testing.T) {
	svc, _, _, _ := newTestSubmissionService(t)

	sub, err := svc.Create(context.Background(), CreateSubmissionParams{OwnerID: uuid.New()},
		strings.NewReader("x"), "p.jpg", "image/jpeg")
	require.NoError(t, err)

	_, err = svc.UpdateDescription(context.Background(), sub.ID, uuid.New(), strPtr("not mine"))
	assert.ErrorIs(t, err, ErrNotOwner)
}

func TestUpdateDescriptionClears(t *testing.T) {
	svc, _, _, _ := newTestSubmissionService(t)

	owner := uuid.New()
	sub, err := svc.Create(context.Background(), CreateSubmissionParams{
		OwnerID:     owner,
		Description: strPtr("initial"),
	}, strings.NewReader("x"), "p.jpg", "image/jpeg")
	require.NoError(t, err)

	updated, err := svc.UpdateDescription(context.Background(), sub.ID, owner, nil)
	require.NoError(t, err)
	assert.Nil(t, updated.Description)
}

func TestDeleteSubmission(t *testing.T) {
	svc, repo, files, _ := newTestSubmissionService(t)

	owner := uuid.New()
	sub, err := svc.Create(context.Background(), CreateSubmissionParams{
		OwnerID:     owner,
		Description: strPtr("going away"),
	}, strings.NewReader("x"), "p.jpg", "image/jpeg")
	require.NoError(t, err)

	snapshot, err := svc.Delete(context.Background(), sub.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, snapshot.ID)
	assert.Equal(t, "going away", *snapshot.Description)
	assert.Contains(t, files.deleted, sub.ImageURL)

	_, err = repo.GetSubmissionByID(context.Background(), sub.ID)
	assert.ErrorIs(t, err, ErrSubmissionNotFound)
}

func TestDeleteSubmissionIgnoresLockAndExpiry(t *testing.T) {
	svc, _, _, clock := newTestSubmissionService(t)

	owner := uuid.New()
	sub, err := svc.Create(context.Background(), CreateSubmissionParams{OwnerID: owner},
		strings.NewReader("x"), "p.jpg", "image/jpeg")
	require.NoError(t, err)

	// Well past both the edit window and the expiry horizon.
	clock.Advance(73 * time.Hour)

	_, err = svc.Delete(context.Background(), sub.ID, owner)
	assert.NoError(t, err)
}

func TestDeleteSubmissionBlobFailureStillSucceeds(t *testing.T) {
	svc, repo, files, _ := newTestSubmissionService(t)
	files.deleteErr = errors.New("bucket unavailable")

	owner := uuid.New()
	sub, err := svc.Create(context.Background(), CreateSubmissionParams{OwnerID: owner},
		strings.NewReader("x"), "p.jpg", "image/jpeg")
	require.NoError(t, err)

	snapshot, err := svc.Delete(context.Background(), sub.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, snapshot.ID)

	_, err = repo.GetSubmissionByID(context.Background(), sub.ID)
	assert.ErrorIs(t, err, ErrSubmissionNotFound)
}

func TestDeleteSubmissionNotOwner(t *testing.T) {
	svc, repo, _, _ := newTestSubmissionService(t)

	sub, err := svc.Create(context.Background(), CreateSubmissionParams{OwnerID: uuid.New()},
		strings.NewReader("x"), "p.jpg", "image/jpeg")
	require.NoError(t, err)

	_, err = svc.Delete(context.Background(), sub.ID, uuid.New())
	assert.ErrorIs(t, err, ErrNotOwner)

	_, err = repo.GetSubmissionByID(context.Background(), sub.ID)
	assert.NoError(t, err)
}

func TestListByOwner(t *testing.T) {
	svc, _, _, clock := newTestSubmissionService(t)
	owner := uuid.New()

	first, err := svc.Create(context.Background(), CreateSubmissionParams{OwnerID: owner},
		strings.NewReader("x"), "a.jpg", "image/jpeg")
	require.NoError(t, err)
	clock.Advance(time.Minute)
	second, err := svc.Create(context.Background(), CreateSubmissionParams{OwnerID: owner},
		strings.NewReader("x"), "b.jpg", "image/jpeg")
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), CreateSubmissionParams{OwnerID: uuid.New()},
		strings.NewReader("x"), "c.jpg", "image/jpeg")
	require.NoError(t, err)

	subs, err := svc.ListByOwner(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, second.ID, subs[0].ID)
	assert.Equal(t, first.ID, subs[1].ID)

	// Expired submissions stay in the owner's listing, marked locked.
	clock.Advance(73 * time.Hour)
	subs, err = svc.ListByOwner(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.True(t, subs[0].Locked)
	assert.True(t, subs[1].Locked)
}

func TestVote(t *testing.T) {
	svc, _, _, clock := newTestSubmissionService(t)

	sub, err := svc.Create(context.Background(), CreateSubmissionParams{OwnerID: uuid.New()},
		strings.NewReader("x"), "p.jpg", "image/jpeg")
	require.NoError(t, err)

	// Votes accumulate and work regardless of lock state.
	clock.Advance(time.Hour)

	for i := 0; i < 3; i++ {
		_, err = svc.Vote(context.Background(), sub.ID, VoteUp)
		require.NoError(t, err)
	}
	voted, err := svc.Vote(context.Background(), sub.ID, VoteDown)
	require.NoError(t, err)
	assert.Equal(t, int64(3), voted.ThumbsUp)
	assert.Equal(t, int64(1), voted.ThumbsDown)
}

func TestVoteUnknownSubmission(t *testing.T) {
	svc, _, _, _ := newTestSubmissionService(t)

	_, err := svc.Vote(context.Background(), uuid.New(), VoteUp)
	assert.ErrorIs(t, err, ErrSubmissionNotFound)
}

func TestGetByIDIgnoresExpiry(t *testing.T) {
	svc, _, _, clock := newTestSubmissionService(t)

	sub, err := svc.Create(context.Background(), CreateSubmissionParams{OwnerID: uuid.New()},
		strings.NewReader("x"), "p.jpg", "image/jpeg")
	require.NoError(t, err)

	clock.Advance(72*time.Hour + time.Minute)

	got, err := svc.GetByID(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, got.ID)
	assert.True(t, got.Locked)
}
