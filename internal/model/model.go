// Package model defines the core domain types for the event hosting platform.
package model

import "time"

// EventState is the moderation lifecycle state of an event.
type EventState string

const (
	EventPending   EventState = "PENDING"
	EventPublished EventState = "PUBLISHED"
	EventCanceled  EventState = "CANCELED"
)

// Valid reports whether s is a known event state.
func (s EventState) Valid() bool {
	switch s {
	case EventPending, EventPublished, EventCanceled:
		return true
	}
	return false
}

// RequestStatus is the status of a participation request.
type RequestStatus string

const (
	RequestPending   RequestStatus = "PENDING"
	RequestConfirmed RequestStatus = "CONFIRMED"
	RequestRejected  RequestStatus = "REJECTED"
	RequestCanceled  RequestStatus = "CANCELED"
)

// Location is a point on the map where an event takes place.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Event represents a hostable activity published by its initiator.
type Event struct {
	ID                int64      `json:"id"`
	Title             string     `json:"title"`
	Annotation        string     `json:"annotation"`
	Description       string     `json:"description"`
	CategoryID        int64      `json:"category"`
	InitiatorID       int64      `json:"initiator"`
	EventDate         time.Time  `json:"eventDate"`
	Location          Location   `json:"location"`
	Paid              bool       `json:"paid"`
	ParticipantLimit  int        `json:"participantLimit"`
	RequestModeration bool       `json:"requestModeration"`
	State             EventState `json:"state"`
	CreatedOn         time.Time  `json:"createdOn"`
	PublishedOn       *time.Time `json:"publishedOn,omitempty"`
	ConfirmedRequests int        `json:"confirmedRequests"`
	Views             int64      `json:"views"`
}

// Unlimited reports whether the event accepts any number of participants.
func (e *Event) Unlimited() bool {
	return e.ParticipantLimit == 0
}

// Available reports whether at least one more participant can be confirmed.
func (e *Event) Available() bool {
	return e.Unlimited() || e.ConfirmedRequests < e.ParticipantLimit
}

// NeedsModeration reports whether requests wait for the initiator's decision
// instead of being confirmed on creation.
func (e *Event) NeedsModeration() bool {
	return e.RequestModeration && !e.Unlimited()
}

// URI is the public path under which views of the event are counted.
func (e *Event) URI() string {
	return EventURI(e.ID)
}

// ParticipationRequest is a user's request to attend an event.
type ParticipationRequest struct {
	ID          int64         `json:"id"`
	EventID     int64         `json:"event"`
	RequesterID int64         `json:"requester"`
	Created     time.Time     `json:"created"`
	Status      RequestStatus `json:"status"`
}

// StateAction is a lifecycle action requested by an initiator or administrator.
type StateAction string

const (
	ActionSendToReview StateAction = "SEND_TO_REVIEW"
	ActionCancelReview StateAction = "CANCEL_REVIEW"
	ActionPublishEvent StateAction = "PUBLISH_EVENT"
	ActionRejectEvent  StateAction = "REJECT_EVENT"
)

// NewEvent is the payload for creating a new event.
type NewEvent struct {
	Title             string    `json:"title" validate:"required,min=3,max=120"`
	Annotation        string    `json:"annotation" validate:"required,min=20,max=2000"`
	Description       string    `json:"description" validate:"required,min=20,max=7000"`
	Category          int64     `json:"category" validate:"required,gt=0"`
	EventDate         time.Time `json:"eventDate" validate:"required"`
	Location          *Location `json:"location" validate:"required"`
	Paid              bool      `json:"paid"`
	ParticipantLimit  int       `json:"participantLimit" validate:"gte=0"`
	RequestModeration *bool     `json:"requestModeration"`
}

// UpdateEvent is a partial update of an event. Nil fields are left unchanged.
type UpdateEvent struct {
	Title             *string      `json:"title" validate:"omitempty,min=3,max=120"`
	Annotation        *string      `json:"annotation" validate:"omitempty,min=20,max=2000"`
	Description       *string      `json:"description" validate:"omitempty,min=20,max=7000"`
	Category          *int64       `json:"category" validate:"omitempty,gt=0"`
	EventDate         *time.Time   `json:"eventDate"`
	Location          *Location    `json:"location"`
	Paid              *bool        `json:"paid"`
	ParticipantLimit  *int         `json:"participantLimit" validate:"omitempty,gte=0"`
	RequestModeration *bool        `json:"requestModeration"`
	StateAction       *StateAction `json:"stateAction"`
}

// HasFieldEdits reports whether the update changes any event field besides
// the lifecycle state.
func (u *UpdateEvent) HasFieldEdits() bool {
	return u.Title != nil || u.Annotation != nil || u.Description != nil ||
		u.Category != nil || u.EventDate != nil || u.Location != nil ||
		u.Paid != nil || u.ParticipantLimit != nil || u.RequestModeration != nil
}

// StatusUpdateRequest is the initiator's batch decision on pending requests.
type StatusUpdateRequest struct {
	RequestIDs []int64       `json:"requestIds" validate:"required,min=1"`
	Status     RequestStatus `json:"status" validate:"required,oneof=CONFIRMED REJECTED"`
}

// StatusUpdateResult lists the requests a batch decision actually changed.
type StatusUpdateResult struct {
	ConfirmedRequests []ParticipationRequest `json:"confirmedRequests"`
	RejectedRequests  []ParticipationRequest `json:"rejectedRequests"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
