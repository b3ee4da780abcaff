package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/event-hosting/internal/apperr"
	"github.com/Shivanand-hulikatti/event-hosting/internal/capacity"
	"github.com/Shivanand-hulikatti/event-hosting/internal/metrics"
	"github.com/Shivanand-hulikatti/event-hosting/internal/model"
	"github.com/Shivanand-hulikatti/event-hosting/internal/repository"
)

// RequestService decides the fate of participation requests. It is the only
// writer of request statuses and the only caller of the capacity allocator.
type RequestService struct {
	store repository.Store
	alloc *capacity.Allocator
	log   *zap.Logger
	now   func() time.Time
}

// NewRequestService constructs a RequestService with its dependencies.
func NewRequestService(store repository.Store, alloc *capacity.Allocator, log *zap.Logger) *RequestService {
	return &RequestService{
		store: store,
		alloc: alloc,
		log:   log.Named("requests"),
		now:   time.Now,
	}
}

// CreateRequest files userID's request to attend eventID. Events without
// moderation, or without a limit, confirm the request on the spot when a
// seat is free; otherwise the request waits for the initiator.
func (s *RequestService) CreateRequest(ctx context.Context, userID, eventID int64) (*model.ParticipationRequest, error) {
	if err := requireUser(ctx, s.store, userID); err != nil {
		return nil, err
	}

	req := &model.ParticipationRequest{
		EventID:     eventID,
		RequesterID: userID,
		Created:     s.now(),
		Status:      model.RequestPending,
	}
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		e, err := tx.LockEvent(ctx, eventID)
		if err != nil {
			return eventLookupError(err, eventID)
		}

		_, err = tx.FindActiveRequest(ctx, eventID, userID)
		switch {
		case err == nil:
			return apperr.Conflict("user %d already requested to attend event %d", userID, eventID)
		case !errors.Is(err, repository.ErrNotFound):
			return fmt.Errorf("find existing request: %w", err)
		}
		if e.InitiatorID == userID {
			return apperr.Conflict("initiator cannot request to attend their own event %d", eventID)
		}
		if e.State != model.EventPublished {
			return apperr.Conflict("event %d is not published", eventID)
		}

		if !e.NeedsModeration() {
			ok, err := s.alloc.TryReserve(ctx, tx, eventID)
			if err != nil {
				return err
			}
			if ok {
				req.Status = model.RequestConfirmed
			}
		}

		if err := tx.InsertRequest(ctx, req); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return apperr.Conflict("user %d already requested to attend event %d", userID, eventID)
			}
			return fmt.Errorf("insert request: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.ParticipationRequests.WithLabelValues(string(req.Status)).Inc()
	s.log.Info("participation request created",
		zap.Int64("request_id", req.ID),
		zap.Int64("event_id", eventID),
		zap.Int64("requester_id", userID),
		zap.String("status", string(req.Status)))
	return req, nil
}

// CancelRequest lets the requester withdraw a request in any live status.
// A confirmed request gives its seat back.
func (s *RequestService) CancelRequest(ctx context.Context, userID, requestID int64) (*model.ParticipationRequest, error) {
	var out *model.ParticipationRequest
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		r, err := tx.GetRequest(ctx, requestID)
		if err != nil {
			return requestLookupError(err, requestID)
		}
		if r.RequesterID != userID {
			return apperr.NotFound("request with id=%d was not found for user %d", requestID, userID)
		}

		if _, err := tx.LockEvent(ctx, r.EventID); err != nil {
			return eventLookupError(err, r.EventID)
		}
		// re-read under the event lock so the status cannot change underneath
		if r, err = tx.GetRequest(ctx, requestID); err != nil {
			return requestLookupError(err, requestID)
		}
		if r.Status == model.RequestCanceled {
			return apperr.Conflict("request %d is already canceled", requestID)
		}

		prior := r.Status
		if err := tx.SetRequestStatus(ctx, requestID, model.RequestCanceled); err != nil {
			return requestLookupError(err, requestID)
		}
		if prior == model.RequestConfirmed {
			if err := s.alloc.Release(ctx, tx, r.EventID); err != nil {
				return err
			}
		}
		r.Status = model.RequestCanceled
		out = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("participation request canceled",
		zap.Int64("request_id", requestID),
		zap.Int64("event_id", out.EventID),
		zap.Int64("requester_id", userID))
	return out, nil
}

// GetUserRequests returns every request filed by userID.
func (s *RequestService) GetUserRequests(ctx context.Context, userID int64) ([]model.ParticipationRequest, error) {
	if err := requireUser(ctx, s.store, userID); err != nil {
		return nil, err
	}
	out, err := s.store.ListRequestsByRequester(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list user requests: %w", err)
	}
	return out, nil
}

// GetEventRequests returns every request for one of userID's events.
func (s *RequestService) GetEventRequests(ctx context.Context, userID, eventID int64) ([]model.ParticipationRequest, error) {
	e, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, eventLookupError(err, eventID)
	}
	if e.InitiatorID != userID {
		return nil, apperr.NotFound("event with id=%d was not found for user %d", eventID, userID)
	}
	out, err := s.store.ListRequestsByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list event requests: %w", err)
	}
	return out, nil
}

// UpdateRequestStatuses applies the initiator's decision to a batch of
// pending requests, in the order given. Every request is validated before
// anything changes. When confirming runs out of seats, the requests already
// confirmed stay confirmed, the rest stay pending, and the partial result is
// returned together with apperr.ErrCapacityExhausted.
func (s *RequestService) UpdateRequestStatuses(ctx context.Context, userID, eventID int64, upd model.StatusUpdateRequest) (*model.StatusUpdateResult, error) {
	if err := validateStruct(upd); err != nil {
		return nil, err
	}
	ids := dedupe(upd.RequestIDs)

	result := &model.StatusUpdateResult{
		ConfirmedRequests: []model.ParticipationRequest{},
		RejectedRequests:  []model.ParticipationRequest{},
	}
	exhausted := false

	// The event lock is held for the whole batch, not per request.
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		e, err := tx.LockEvent(ctx, eventID)
		if err != nil {
			return eventLookupError(err, eventID)
		}
		if e.InitiatorID != userID {
			return apperr.NotFound("event with id=%d was not found for user %d", eventID, userID)
		}
		if !e.NeedsModeration() {
			return apperr.Conflict("event %d does not require request moderation", eventID)
		}

		reqs := make([]*model.ParticipationRequest, 0, len(ids))
		for _, id := range ids {
			r, err := tx.GetRequest(ctx, id)
			if err != nil {
				return requestLookupError(err, id)
			}
			if r.EventID != eventID {
				return apperr.NotFound("request with id=%d was not found for event %d", id, eventID)
			}
			if r.Status != model.RequestPending {
				return apperr.Conflict("request %d is %s, only pending requests can be moderated", id, r.Status)
			}
			reqs = append(reqs, r)
		}

		for _, r := range reqs {
			if upd.Status == model.RequestConfirmed {
				ok, err := s.alloc.TryReserve(ctx, tx, eventID)
				if err != nil {
					return err
				}
				if !ok {
					exhausted = true
					return nil
				}
			}
			if err := tx.SetRequestStatus(ctx, r.ID, upd.Status); err != nil {
				return requestLookupError(err, r.ID)
			}
			r.Status = upd.Status
			if upd.Status == model.RequestConfirmed {
				result.ConfirmedRequests = append(result.ConfirmedRequests, *r)
			} else {
				result.RejectedRequests = append(result.RejectedRequests, *r)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("request statuses updated",
		zap.Int64("event_id", eventID),
		zap.Int64("initiator_id", userID),
		zap.String("status", string(upd.Status)),
		zap.Int("confirmed", len(result.ConfirmedRequests)),
		zap.Int("rejected", len(result.RejectedRequests)),
		zap.Bool("capacity_exhausted", exhausted))

	if exhausted {
		return result, fmt.Errorf("%w: confirmed %d of %d requests",
			apperr.ErrCapacityExhausted, len(result.ConfirmedRequests), len(ids))
	}
	return result, nil
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
