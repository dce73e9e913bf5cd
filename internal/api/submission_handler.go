package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/localphoto/backend/internal/domain"
	"github.com/localphoto/backend/internal/middleware"
	"github.com/localphoto/backend/pkg/response"
	"github.com/localphoto/backend/pkg/validator"
)

// SubmissionHandler exposes the submission lifecycle and proximity
// search over HTTP.
type SubmissionHandler struct {
	submissions *domain.SubmissionService
	nearby      *domain.NearbyService
	logger      *zap.Logger
}

func NewSubmissionHandler(submissions *domain.SubmissionService, nearby *domain.NearbyService, logger *zap.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		submissions: submissions,
		nearby:      nearby,
		logger:      logger,
	}
}

// SubmissionResponse is the wire form of a submission. The WKT field is
// produced at this boundary; entities carry plain coordinate pairs.
type SubmissionResponse struct {
	*domain.Submission
	LocationWKT string `json:"location_wkt"`
}

func toResponse(s *domain.Submission) SubmissionResponse {
	return SubmissionResponse{Submission: s, LocationWKT: s.Location.WKT()}
}

func toResponseList(subs []*domain.Submission) []SubmissionResponse {
	out := make([]SubmissionResponse, 0, len(subs))
	for _, s := range subs {
		out = append(out, toResponse(s))
	}
	return out
}

// Create handles POST /submissions: a multipart form with the image
// and its coordinates. The image is uploaded before the row is written.
func (h *SubmissionHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	// Max 10MB upload
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		response.BadRequest(w, "invalid form data")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		response.BadRequest(w, "missing image")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		response.BadRequest(w, "uploaded file must be an image")
		return
	}

	lat, err := strconv.ParseFloat(r.FormValue("latitude"), 64)
	if err != nil {
		response.BadRequest(w, "invalid latitude")
		return
	}
	lng, err := strconv.ParseFloat(r.FormValue("longitude"), 64)
	if err != nil {
		response.BadRequest(w, "invalid longitude")
		return
	}

	var description *string
	if d := r.FormValue("description"); d != "" {
		d = validator.SanitizeString(d, 4*domain.MaxDescriptionLength)
		description = &d
	}

	params := domain.CreateSubmissionParams{
		OwnerID:     userID,
		Latitude:    lat,
		Longitude:   lng,
		Description: description,
	}

	sub, err := h.submissions.Create(r.Context(), params, file, header.Filename, contentType)
	if err != nil {
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			response.BadRequest(w, ve.Error())
			return
		}
		h.logger.Error("create submission failed", zap.Error(err))
		response.InternalError(w, "failed to create submission")
		return
	}

	response.Created(w, toResponse(sub))
}

// Nearby handles GET /submissions/nearby?latitude=..&longitude=..&radius_km=..
func (h *SubmissionHandler) Nearby(w http.ResponseWriter, r *http.Request) {
	lat, err := strconv.ParseFloat(r.URL.Query().Get("latitude"), 64)
	if err != nil {
		response.BadRequest(w, "invalid latitude")
		return
	}
	lng, err := strconv.ParseFloat(r.URL.Query().Get("longitude"), 64)
	if err != nil {
		response.BadRequest(w, "invalid longitude")
		return
	}

	radiusKm := h.nearby.DefaultRadiusKm()
	if raw := r.URL.Query().Get("radius_km"); raw != "" {
		radiusKm, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			response.BadRequest(w, "invalid radius_km")
			return
		}
	}

	subs, err := h.nearby.FindNearby(r.Context(), lat, lng, radiusKm)
	if err != nil {
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			response.BadRequest(w, ve.Error())
			return
		}
		h.logger.Error("nearby search failed", zap.Error(err))
		response.InternalError(w, "failed to search nearby submissions")
		return
	}

	response.OK(w, toResponseList(subs))
}

// ListMine handles GET /me/submissions: the requester's own
// submissions, newest first, expired ones included.
func (h *SubmissionHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	subs, err := h.submissions.ListByOwner(r.Context(), userID)
	if err != nil {
		h.logger.Error("list own submissions failed", zap.Error(err))
		response.InternalError(w, "failed to list submissions")
		return
	}
	response.OK(w, toResponseList(subs))
}

// Get handles GET /submissions/{id}. Expired submissions are still
// returned; expiry only hides them from search.
func (h *SubmissionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.submissionID(w, r)
	if !ok {
		return
	}

	sub, err := h.submissions.GetByID(r.Context(), id)
	if err != nil {
		h.writeSubmissionError(w, err, "get submission failed")
		return
	}
	response.OK(w, toResponse(sub))
}

// UpdateRequest is the body for PUT /submissions/{id}.
type UpdateRequest struct {
	Description *string `json:"description"`
}

// Update handles PUT /submissions/{id}: owner-only, and only within
// the edit window.
func (h *SubmissionHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	id, ok := h.submissionID(w, r)
	if !ok {
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	sub, err := h.submissions.UpdateDescription(r.Context(), id, userID, req.Description)
	if err != nil {
		h.writeSubmissionError(w, err, "update submission failed")
		return
	}
	response.OK(w, toResponse(sub))
}

// Delete handles DELETE /submissions/{id}: owner-only, allowed at any
// point in the lifecycle. The response carries the deleted snapshot.
func (h *SubmissionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	id, ok := h.submissionID(w, r)
	if !ok {
		return
	}

	sub, err := h.submissions.Delete(r.Context(), id, userID)
	if err != nil {
		h.writeSubmissionError(w, err, "delete submission failed")
		return
	}
	response.OK(w, toResponse(sub))
}

// ThumbsUp handles POST /submissions/{id}/thumbs-up. Unauthenticated
// and unbounded: repeat votes accumulate.
func (h *SubmissionHandler) ThumbsUp(w http.ResponseWriter, r *http.Request) {
	h.vote(w, r, domain.VoteUp)
}

// ThumbsDown handles POST /submissions/{id}/thumbs-down.
func (h *SubmissionHandler) ThumbsDown(w http.ResponseWriter, r *http.Request) {
	h.vote(w, r, domain.VoteDown)
}

func (h *SubmissionHandler) vote(w http.ResponseWriter, r *http.Request, kind domain.VoteKind) {
	id, ok := h.submissionID(w, r)
	if !ok {
		return
	}

	sub, err := h.submissions.Vote(r.Context(), id, kind)
	if err != nil {
		h.writeSubmissionError(w, err, "vote failed")
		return
	}
	response.OK(w, toResponse(sub))
}

func (h *SubmissionHandler) submissionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid submission id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *SubmissionHandler) writeSubmissionError(w http.ResponseWriter, err error, logMsg string) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		response.BadRequest(w, ve.Error())
	case errors.Is(err, domain.ErrSubmissionNotFound):
		response.NotFound(w, "submission not found")
	case errors.Is(err, domain.ErrNotOwner):
		response.Forbidden(w, "not authorized for this submission")
	case errors.Is(err, domain.ErrEditWindowExpired):
		response.ForbiddenCode(w, "EDIT_WINDOW_EXPIRED", "edit window has expired")
	default:
		h.logger.Error(logMsg, zap.Error(err))
		response.InternalError(w, "internal error")
	}
}
