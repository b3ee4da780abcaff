package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/event-hosting/internal/model"
	"github.com/Shivanand-hulikatti/event-hosting/internal/service"
)

// EventHandler serves the initiator, admin and public event routes.
type EventHandler struct {
	svc *service.EventService
	log *zap.Logger
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(svc *service.EventService, log *zap.Logger) *EventHandler {
	return &EventHandler{svc: svc, log: log}
}

// ─── Initiator ────────────────────────────────────────────────────────────────

// CreateEvent handles POST /users/{userId}/events
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	var in model.NewEvent
	if err := decodeJSON(w, r, &in); err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	event, err := h.svc.CreateEvent(r.Context(), userID, in)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// ListUserEvents handles GET /users/{userId}/events
func (h *EventHandler) ListUserEvents(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	from, size, err := pageParams(r)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	events, err := h.svc.GetUserEvents(r.Context(), userID, from, size)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(events))
}

// GetUserEvent handles GET /users/{userId}/events/{eventId}
func (h *EventHandler) GetUserEvent(w http.ResponseWriter, r *http.Request) {
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

	event, err := h.svc.GetUserEvent(r.Context(), userID, eventID)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// UpdateUserEvent handles PATCH /users/{userId}/events/{eventId}
func (h *EventHandler) UpdateUserEvent(w http.ResponseWriter, r *http.Request) {
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
	var upd model.UpdateEvent
	if err := decodeJSON(w, r, &upd); err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	event, err := h.svc.UpdateEventByUser(r.Context(), userID, eventID, upd)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// ─── Admin ────────────────────────────────────────────────────────────────────

// SearchEvents handles GET /admin/events
func (h *EventHandler) SearchEvents(w http.ResponseWriter, r *http.Request) {
	f, err := adminFilter(r)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	events, err := h.svc.SearchEvents(r.Context(), f)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(events))
}

// UpdateEventByAdmin handles PATCH /admin/events/{eventId}
func (h *EventHandler) UpdateEventByAdmin(w http.ResponseWriter, r *http.Request) {
	eventID, err := pathID(r, "eventId")
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	var upd model.UpdateEvent
	if err := decodeJSON(w, r, &upd); err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	event, err := h.svc.UpdateEventByAdmin(r.Context(), eventID, upd)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// ─── Public ───────────────────────────────────────────────────────────────────

// ListEvents handles GET /events
// Returns published events only. Each call is recorded as a hit on /events.
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	f, err := publicFilter(r)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	events, err := h.svc.ListPublished(r.Context(), f, clientIP(r))
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(events))
}

// GetEvent handles GET /events/{id}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	event, err := h.svc.GetPublished(r.Context(), id, clientIP(r))
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func publicFilter(r *http.Request) (service.PublicFilter, error) {
	var (
		f   service.PublicFilter
		err error
	)
	if f.Categories, err = queryIDs(r, "categories"); err != nil {
		return f, err
	}
	if f.Paid, err = queryBool(r, "paid"); err != nil {
		return f, err
	}
	if f.RangeStart, err = queryTime(r, "rangeStart"); err != nil {
		return f, err
	}
	if f.RangeEnd, err = queryTime(r, "rangeEnd"); err != nil {
		return f, err
	}
	available, err := queryBool(r, "onlyAvailable")
	if err != nil {
		return f, err
	}
	f.OnlyAvailable = available != nil && *available
	f.Sort = r.URL.Query().Get("sort")
	if f.From, f.Size, err = pageParams(r); err != nil {
		return f, err
	}
	return f, nil
}

func adminFilter(r *http.Request) (service.AdminFilter, error) {
	var (
		f   service.AdminFilter
		err error
	)
	if f.Users, err = queryIDs(r, "users"); err != nil {
		return f, err
	}
	for _, s := range queryList(r, "states") {
		f.States = append(f.States, model.EventState(s))
	}
	if f.Categories, err = queryIDs(r, "categories"); err != nil {
		return f, err
	}
	if f.RangeStart, err = queryTime(r, "rangeStart"); err != nil {
		return f, err
	}
	if f.RangeEnd, err = queryTime(r, "rangeEnd"); err != nil {
		return f, err
	}
	if f.From, f.Size, err = pageParams(r); err != nil {
		return f, err
	}
	return f, nil
}

// orEmpty renders an empty array rather than null for better client compatibility.
func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
