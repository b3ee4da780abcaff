package service

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/event-hosting/internal/apperr"
	"github.com/Shivanand-hulikatti/event-hosting/internal/lifecycle"
	"github.com/Shivanand-hulikatti/event-hosting/internal/model"
	"github.com/Shivanand-hulikatti/event-hosting/internal/repository"
)

// Public listing sort orders.
const (
	SortEventDate = "EVENT_DATE"
	SortViews     = "VIEWS"
)

// PublicFilter narrows the public event listing.
type PublicFilter struct {
	Categories    []int64
	Paid          *bool
	RangeStart    *time.Time
	RangeEnd      *time.Time
	OnlyAvailable bool
	Sort          string
	From          int
	Size          int
}

// AdminFilter narrows the administrator's event search.
type AdminFilter struct {
	Users      []int64
	States     []model.EventState
	Categories []int64
	RangeStart *time.Time
	RangeEnd   *time.Time
	From       int
	Size       int
}

// EventService orchestrates event creation, edits and lifecycle transitions,
// and serves the public read path.
type EventService struct {
	store repository.Store
	views ViewCounter
	log   *zap.Logger
	now   func() time.Time
}

// NewEventService constructs an EventService with its dependencies.
func NewEventService(store repository.Store, views ViewCounter, log *zap.Logger) *EventService {
	return &EventService{
		store: store,
		views: views,
		log:   log.Named("events"),
		now:   time.Now,
	}
}

// CreateEvent validates the payload and stores a new PENDING event owned by
// userID.
func (s *EventService) CreateEvent(ctx context.Context, userID int64, in model.NewEvent) (*model.Event, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if err := requireUser(ctx, s.store, userID); err != nil {
		return nil, err
	}
	if err := requireCategory(ctx, s.store, in.Category); err != nil {
		return nil, err
	}
	now := s.now()
	if err := lifecycle.CheckEventDate(in.EventDate, now); err != nil {
		return nil, err
	}

	moderation := true
	if in.RequestModeration != nil {
		moderation = *in.RequestModeration
	}
	e := &model.Event{
		Title:             strings.TrimSpace(in.Title),
		Annotation:        in.Annotation,
		Description:       in.Description,
		CategoryID:        in.Category,
		InitiatorID:       userID,
		EventDate:         in.EventDate,
		Location:          *in.Location,
		Paid:              in.Paid,
		ParticipantLimit:  in.ParticipantLimit,
		RequestModeration: moderation,
		State:             model.EventPending,
		CreatedOn:         now,
	}
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		return tx.InsertEvent(ctx, e)
	})
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	s.log.Info("event created", zap.Int64("event_id", e.ID), zap.Int64("initiator_id", userID))
	return e, nil
}

// UpdateEventByUser applies the initiator's edits and optional
// SEND_TO_REVIEW / CANCEL_REVIEW action. Published events are immutable.
func (s *EventService) UpdateEventByUser(ctx context.Context, userID, eventID int64, upd model.UpdateEvent) (*model.Event, error) {
	if err := validateStruct(upd); err != nil {
		return nil, err
	}

	var out *model.Event
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		e, err := tx.LockEvent(ctx, eventID)
		if err != nil {
			return eventLookupError(err, eventID)
		}
		if e.InitiatorID != userID {
			return apperr.NotFound("event with id=%d was not found for user %d", eventID, userID)
		}
		if err := s.applyUpdate(ctx, tx, e, lifecycle.Initiator, &upd); err != nil {
			return err
		}
		out = e
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("event updated by initiator",
		zap.Int64("event_id", eventID),
		zap.Int64("initiator_id", userID),
		zap.String("state", string(out.State)))
	return out, nil
}

// UpdateEventByAdmin applies an administrator's edits and optional
// PUBLISH_EVENT / REJECT_EVENT action.
func (s *EventService) UpdateEventByAdmin(ctx context.Context, eventID int64, upd model.UpdateEvent) (*model.Event, error) {
	if err := validateStruct(upd); err != nil {
		return nil, err
	}

	var out *model.Event
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		e, err := tx.LockEvent(ctx, eventID)
		if err != nil {
			return eventLookupError(err, eventID)
		}
		if err := s.applyUpdate(ctx, tx, e, lifecycle.Admin, &upd); err != nil {
			return err
		}
		out = e
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("event updated by admin",
		zap.Int64("event_id", eventID),
		zap.String("state", string(out.State)))
	return out, nil
}

// applyUpdate runs field edits against the pre-transition state, then the
// state action, then persists. Both actors go through here.
func (s *EventService) applyUpdate(ctx context.Context, tx repository.Tx, e *model.Event, actor lifecycle.Actor, upd *model.UpdateEvent) error {
	now := s.now()
	prevCategory := e.CategoryID
	if err := lifecycle.ApplyEdits(e, upd, now); err != nil {
		return err
	}
	if e.CategoryID != prevCategory {
		if err := requireCategory(ctx, tx, e.CategoryID); err != nil {
			return err
		}
	}
	if upd.StateAction != nil {
		if err := lifecycle.Apply(e, actor, *upd.StateAction, now); err != nil {
			return err
		}
	}
	if err := tx.UpdateEvent(ctx, e); err != nil {
		return eventLookupError(err, e.ID)
	}
	return nil
}

// GetUserEvents returns a page of events created by userID.
func (s *EventService) GetUserEvents(ctx context.Context, userID int64, from, size int) ([]model.Event, error) {
	if err := checkPage(from, size); err != nil {
		return nil, err
	}
	if err := requireUser(ctx, s.store, userID); err != nil {
		return nil, err
	}
	events, err := s.store.ListEvents(ctx, repository.EventFilter{
		Initiators: []int64{userID},
		From:       from,
		Size:       size,
	})
	if err != nil {
		return nil, fmt.Errorf("list user events: %w", err)
	}
	return events, nil
}

// GetUserEvent returns one of userID's events.
func (s *EventService) GetUserEvent(ctx context.Context, userID, eventID int64) (*model.Event, error) {
	e, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, eventLookupError(err, eventID)
	}
	if e.InitiatorID != userID {
		return nil, apperr.NotFound("event with id=%d was not found for user %d", eventID, userID)
	}
	return e, nil
}

// SearchEvents is the administrator's unrestricted event search.
func (s *EventService) SearchEvents(ctx context.Context, f AdminFilter) ([]model.Event, error) {
	if err := checkPage(f.From, f.Size); err != nil {
		return nil, err
	}
	if err := checkRange(f.RangeStart, f.RangeEnd); err != nil {
		return nil, err
	}
	for _, st := range f.States {
		if !st.Valid() {
			return nil, apperr.Validation("unknown event state %q", st)
		}
	}
	events, err := s.store.ListEvents(ctx, repository.EventFilter{
		Initiators: f.Users,
		States:     f.States,
		Categories: f.Categories,
		RangeStart: f.RangeStart,
		RangeEnd:   f.RangeEnd,
		From:       f.From,
		Size:       f.Size,
	})
	if err != nil {
		return nil, fmt.Errorf("search events: %w", err)
	}
	return events, nil
}

// ListPublished returns published events for the public, with view counts.
// The hit is recorded against the listing URI.
func (s *EventService) ListPublished(ctx context.Context, f PublicFilter, clientIP string) ([]model.Event, error) {
	if err := checkPage(f.From, f.Size); err != nil {
		return nil, err
	}
	if err := checkRange(f.RangeStart, f.RangeEnd); err != nil {
		return nil, err
	}
	switch f.Sort {
	case "", SortEventDate, SortViews:
	default:
		return nil, apperr.Validation("unknown sort %q", f.Sort)
	}

	s.views.RecordHit(ctx, model.EventsURI, clientIP)

	rangeStart := f.RangeStart
	if rangeStart == nil && f.RangeEnd == nil {
		now := s.now()
		rangeStart = &now
	}
	filter := repository.EventFilter{
		States:        []model.EventState{model.EventPublished},
		Categories:    f.Categories,
		Paid:          f.Paid,
		RangeStart:    rangeStart,
		RangeEnd:      f.RangeEnd,
		OnlyAvailable: f.OnlyAvailable,
	}
	// sorted listings are ordered before paging
	if f.Sort == "" {
		filter.From, filter.Size = f.From, f.Size
	}
	events, err := s.store.ListEvents(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list published events: %w", err)
	}

	s.attachViews(ctx, events)

	switch f.Sort {
	case SortEventDate:
		slices.SortStableFunc(events, func(a, b model.Event) int { return a.EventDate.Compare(b.EventDate) })
	case SortViews:
		slices.SortStableFunc(events, func(a, b model.Event) int { return cmp.Compare(b.Views, a.Views) })
	}
	if f.Sort != "" {
		events = page(events, f.From, f.Size)
	}
	return events, nil
}

// GetPublished returns a published event with its view count. Unpublished
// events are reported as not found.
func (s *EventService) GetPublished(ctx context.Context, eventID int64, clientIP string) (*model.Event, error) {
	e, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, eventLookupError(err, eventID)
	}
	if e.State != model.EventPublished {
		return nil, apperr.NotFound("event with id=%d was not found", eventID)
	}

	s.views.RecordHit(ctx, e.URI(), clientIP)
	e.Views = s.views.ViewCounts(ctx, []string{e.URI()})[e.URI()]
	return e, nil
}

func (s *EventService) attachViews(ctx context.Context, events []model.Event) {
	if len(events) == 0 {
		return
	}
	uris := make([]string, len(events))
	for i := range events {
		uris[i] = events[i].URI()
	}
	counts := s.views.ViewCounts(ctx, uris)
	for i := range events {
		events[i].Views = counts[events[i].URI()]
	}
}

func checkPage(from, size int) error {
	if from < 0 {
		return apperr.Validation("from must not be negative")
	}
	if size <= 0 {
		return apperr.Validation("size must be positive")
	}
	return nil
}

func checkRange(start, end *time.Time) error {
	if start != nil && end != nil && start.After(*end) {
		return apperr.Validation("rangeStart must not be after rangeEnd")
	}
	return nil
}

func page[T any](items []T, from, size int) []T {
	if from >= len(items) {
		return nil
	}
	return items[from:min(from+size, len(items))]
}
