// Package repository implements persistence for events and participation
// requests. Writes that must be atomic with respect to one event run inside
// a transaction obtained from Store.InTx; the transaction's LockEvent call is
// the per-event serialization point.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Shivanand-hulikatti/event-hosting/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a requester already holds a live request for
// the same event.
var ErrDuplicate = errors.New("duplicate participation request")

// EventFilter narrows event listings. Zero values mean "no restriction".
type EventFilter struct {
	Initiators    []int64
	States        []model.EventState
	Categories    []int64
	Paid          *bool
	RangeStart    *time.Time
	RangeEnd      *time.Time
	OnlyAvailable bool
	From          int
	Size          int
}

// Tx is a unit of work. Implementations commit when the function passed to
// Store.InTx returns nil and roll back otherwise.
type Tx interface {
	// LockEvent loads an event and holds it exclusively until the
	// transaction ends.
	LockEvent(ctx context.Context, id int64) (*model.Event, error)
	GetEvent(ctx context.Context, id int64) (*model.Event, error)
	// CategoryExists reads within the transaction, so it is safe to call
	// while the event is locked.
	CategoryExists(ctx context.Context, id int64) (bool, error)
	InsertEvent(ctx context.Context, e *model.Event) error
	// UpdateEvent persists editable fields, state and publication time.
	// The confirmed counter is never written here.
	UpdateEvent(ctx context.Context, e *model.Event) error

	// IncrementConfirmed adds one confirmed seat if the limit allows it and
	// reports whether it did.
	IncrementConfirmed(ctx context.Context, eventID int64) (bool, error)
	DecrementConfirmed(ctx context.Context, eventID int64) error

	InsertRequest(ctx context.Context, r *model.ParticipationRequest) error
	GetRequest(ctx context.Context, id int64) (*model.ParticipationRequest, error)
	// FindActiveRequest returns the requester's non-canceled request for the
	// event, or ErrNotFound.
	FindActiveRequest(ctx context.Context, eventID, requesterID int64) (*model.ParticipationRequest, error)
	SetRequestStatus(ctx context.Context, id int64, status model.RequestStatus) error
}

// Store is the persistence collaborator used by the services.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error

	UserExists(ctx context.Context, id int64) (bool, error)
	CategoryExists(ctx context.Context, id int64) (bool, error)

	GetEvent(ctx context.Context, id int64) (*model.Event, error)
	ListEvents(ctx context.Context, f EventFilter) ([]model.Event, error)

	GetRequest(ctx context.Context, id int64) (*model.ParticipationRequest, error)
	ListRequestsByEvent(ctx context.Context, eventID int64) ([]model.ParticipationRequest, error)
	ListRequestsByRequester(ctx context.Context, requesterID int64) ([]model.ParticipationRequest, error)
	// CountConfirmed counts CONFIRMED requests live, independent of the
	// event's cached counter.
	CountConfirmed(ctx context.Context, eventID int64) (int, error)
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*PostgresStore)(nil)
	_ Tx    = (*memoryTx)(nil)
	_ Tx    = (*pgTx)(nil)
)
