// Package capacity is the single gate deciding whether one more participant
// can be confirmed for an event. Seats are only ever taken or given back
// through Allocator; callers never read the counter, compare, and write it
// back themselves.
package capacity

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/event-hosting/internal/metrics"
	"github.com/Shivanand-hulikatti/event-hosting/internal/model"
)

// ErrCounterDrift is returned by Verify when an event's confirmed counter
// disagrees with its CONFIRMED requests.
var ErrCounterDrift = errors.New("confirmed counter drift")

// Counter is the storage-side seat counter of one transaction. Increment must
// be a conditional write that only succeeds while the limit allows it.
type Counter interface {
	IncrementConfirmed(ctx context.Context, eventID int64) (bool, error)
	DecrementConfirmed(ctx context.Context, eventID int64) error
}

// Source exposes the cached and the live confirmed counts of an event.
type Source interface {
	GetEvent(ctx context.Context, id int64) (*model.Event, error)
	CountConfirmed(ctx context.Context, eventID int64) (int, error)
}

// Allocator reserves and releases confirmed seats.
type Allocator struct {
	log *zap.Logger
}

// NewAllocator constructs an Allocator.
func NewAllocator(log *zap.Logger) *Allocator {
	return &Allocator{log: log.Named("capacity")}
}

// TryReserve takes one seat for eventID and reports whether it did. It is
// atomic as long as c belongs to a transaction holding the event's lock.
func (a *Allocator) TryReserve(ctx context.Context, c Counter, eventID int64) (bool, error) {
	ok, err := c.IncrementConfirmed(ctx, eventID)
	if err != nil {
		return false, fmt.Errorf("reserve seat for event %d: %w", eventID, err)
	}
	if !ok {
		metrics.CapacityReservations.WithLabelValues("exhausted").Inc()
		a.log.Debug("participant limit reached", zap.Int64("event_id", eventID))
		return false, nil
	}
	metrics.CapacityReservations.WithLabelValues("reserved").Inc()
	return true, nil
}

// Release gives back a seat previously taken by TryReserve.
func (a *Allocator) Release(ctx context.Context, c Counter, eventID int64) error {
	if err := c.DecrementConfirmed(ctx, eventID); err != nil {
		return fmt.Errorf("release seat for event %d: %w", eventID, err)
	}
	metrics.CapacityReleases.Inc()
	return nil
}

// Verify returns the event's confirmed count after checking the cached counter
// against a live count of CONFIRMED requests.
func (a *Allocator) Verify(ctx context.Context, src Source, eventID int64) (int, error) {
	e, err := src.GetEvent(ctx, eventID)
	if err != nil {
		return 0, err
	}
	live, err := src.CountConfirmed(ctx, eventID)
	if err != nil {
		return 0, err
	}
	if live != e.ConfirmedRequests {
		a.log.Error("confirmed counter drift",
			zap.Int64("event_id", eventID),
			zap.Int("cached", e.ConfirmedRequests),
			zap.Int("live", live))
		return live, fmt.Errorf("%w: event %d cached %d, live %d", ErrCounterDrift, eventID, e.ConfirmedRequests, live)
	}
	return live, nil
}
