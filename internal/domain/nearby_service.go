package domain

import (
	"context"
	"time"

	"github.com/localphoto/backend/internal/geo"
)

// NearbyService answers "what is near me": live submissions within a
// radius of a center point, newest first. The repository supplies
// candidates; inclusion is always decided here with the exact
// great-circle distance, boundary inclusive.
type NearbyService struct {
	repo            SubmissionRepository
	clock           Clock
	lifecycle       *Lifecycle
	defaultRadiusKm float64
}

func NewNearbyService(repo SubmissionRepository, clock Clock, lifecycle *Lifecycle, defaultRadiusKm float64) *NearbyService {
	if defaultRadiusKm <= 0 {
		defaultRadiusKm = 5.0
	}
	return &NearbyService{
		repo:            repo,
		clock:           clock,
		lifecycle:       lifecycle,
		defaultRadiusKm: defaultRadiusKm,
	}
}

// DefaultRadiusKm is the radius applied when the caller omits one.
func (s *NearbyService) DefaultRadiusKm() float64 { return s.defaultRadiusKm }

// FindNearby returns live submissions within radiusKm of the center,
// ordered by created_at descending with id descending as tie-break.
// Lock state never affects inclusion.
func (s *NearbyService) FindNearby(ctx context.Context, lat, lng, radiusKm float64) ([]*Submission, error) {
	center, err := geo.NewPoint(lat, lng)
	if err != nil {
		return nil, &ValidationError{Field: "center", Reason: err.Error()}
	}
	if radiusKm <= 0 {
		return nil, &ValidationError{Field: "radius_km", Reason: "must be greater than zero"}
	}

	now := s.clock.Now()
	radiusMeters := radiusKm * 1000

	candidates, err := s.repo.SearchNearby(ctx, center, radiusMeters, now)
	if err != nil {
		return nil, err
	}

	results := make([]*Submission, 0, len(candidates))
	for _, sub := range candidates {
		if s.lifecycle.IsExpired(sub, now) {
			continue
		}
		if geo.DistanceMeters(center, sub.Location) > radiusMeters {
			continue
		}
		results = append(results, s.stampLocked(sub, now))
	}

	sortNewestFirst(results)

	return results, nil
}

func (s *NearbyService) stampLocked(sub *Submission, now time.Time) *Submission {
	sub.Locked = s.lifecycle.IsLocked(sub, now)
	return sub
}
