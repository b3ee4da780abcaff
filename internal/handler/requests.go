package handler

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/event-hosting/internal/apperr"
	"github.com/Shivanand-hulikatti/event-hosting/internal/model"
	"github.com/Shivanand-hulikatti/event-hosting/internal/service"
)

// RequestHandler serves participation request routes.
type RequestHandler struct {
	svc *service.RequestService
	log *zap.Logger
}

// NewRequestHandler constructs a RequestHandler.
func NewRequestHandler(svc *service.RequestService, log *zap.Logger) *RequestHandler {
	return &RequestHandler{svc: svc, log: log}
}

// partialResultResponse is returned with 409 when a confirmation batch ran
// out of seats part way through.
type partialResultResponse struct {
	Error string `json:"error"`
	model.StatusUpdateResult
}

// CreateRequest handles POST /users/{userId}/requests?eventId=
func (h *RequestHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	eventID, err := queryID(r, "eventId")
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	req, err := h.svc.CreateRequest(r.Context(), userID, eventID)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// ListUserRequests handles GET /users/{userId}/requests
func (h *RequestHandler) ListUserRequests(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	reqs, err := h.svc.GetUserRequests(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(reqs))
}

// CancelRequest handles PATCH /users/{userId}/requests/{requestId}/cancel
func (h *RequestHandler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	requestID, err := pathID(r, "requestId")
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	req, err := h.svc.CancelRequest(r.Context(), userID, requestID)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// ListEventRequests handles GET /users/{userId}/events/{eventId}/requests
func (h *RequestHandler) ListEventRequests(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	eventID, err := pathID(r, "eventId")
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	reqs, err := h.svc.GetEventRequests(r.Context(), userID, eventID)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(reqs))
}

// UpdateRequestStatuses handles PATCH /users/{userId}/events/{eventId}/requests
func (h *RequestHandler) UpdateRequestStatuses(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	eventID, err := pathID(r, "eventId")
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	var upd model.StatusUpdateRequest
	if err := decodeJSON(w, r, &upd); err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	result, err := h.svc.UpdateRequestStatuses(r.Context(), userID, eventID, upd)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, result)
	case errors.Is(err, apperr.ErrCapacityExhausted) && result != nil:
		writeJSON(w, http.StatusConflict, partialResultResponse{Error: err.Error(), StatusUpdateResult: *result})
	default:
		writeServiceError(w, h.log, err)
	}
}
