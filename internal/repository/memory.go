package repository

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/Shivanand-hulikatti/event-hosting/internal/model"
)

// MemoryStore keeps everything in process memory. Transactions are
// serialized by a single writer lock and undone from a log on failure.
type MemoryStore struct {
	mu sync.RWMutex

	users      map[int64]struct{}
	categories map[int64]struct{}
	events     map[int64]model.Event
	requests   map[int64]model.ParticipationRequest

	lastEventID   int64
	lastRequestID int64
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:      make(map[int64]struct{}),
		categories: make(map[int64]struct{}),
		events:     make(map[int64]model.Event),
		requests:   make(map[int64]model.ParticipationRequest),
	}
}

// AddUser registers a user id as existing.
func (s *MemoryStore) AddUser(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id] = struct{}{}
}

// AddCategory registers a category id as existing.
func (s *MemoryStore) AddCategory(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories[id] = struct{}{}
}

// InTx runs fn while holding the store's writer lock.
func (s *MemoryStore) InTx(ctx context.Context, fn func(tx Tx) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	tx := &memoryTx{s: s}
	committed := false
	defer func() {
		if !committed {
			tx.rollback()
		}
		s.mu.Unlock()
	}()

	if err = fn(tx); err != nil {
		return err
	}
	committed = true
	return nil
}

func (s *MemoryStore) UserExists(_ context.Context, id int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[id]
	return ok, nil
}

func (s *MemoryStore) CategoryExists(_ context.Context, id int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.categories[id]
	return ok, nil
}

func (s *MemoryStore) GetEvent(_ context.Context, id int64) (*model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.event(id)
}

func (s *MemoryStore) event(id int64) (*model.Event, error) {
	e, ok := s.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &e, nil
}

// ListEvents returns matching events ordered by id.
func (s *MemoryStore) ListEvents(_ context.Context, f EventFilter) ([]model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int64, 0, len(s.events))
	for id := range s.events {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	var out []model.Event
	skipped := 0
	for _, id := range ids {
		e := s.events[id]
		if !matches(&e, f) {
			continue
		}
		if skipped < f.From {
			skipped++
			continue
		}
		out = append(out, e)
		if f.Size > 0 && len(out) == f.Size {
			break
		}
	}
	return out, nil
}

func matches(e *model.Event, f EventFilter) bool {
	if len(f.Initiators) > 0 && !slices.Contains(f.Initiators, e.InitiatorID) {
		return false
	}
	if len(f.States) > 0 && !slices.Contains(f.States, e.State) {
		return false
	}
	if len(f.Categories) > 0 && !slices.Contains(f.Categories, e.CategoryID) {
		return false
	}
	if f.Paid != nil && e.Paid != *f.Paid {
		return false
	}
	if f.RangeStart != nil && e.EventDate.Before(*f.RangeStart) {
		return false
	}
	if f.RangeEnd != nil && e.EventDate.After(*f.RangeEnd) {
		return false
	}
	if f.OnlyAvailable && !e.Available() {
		return false
	}
	return true
}

func (s *MemoryStore) GetRequest(_ context.Context, id int64) (*model.ParticipationRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.request(id)
}

func (s *MemoryStore) request(id int64) (*model.ParticipationRequest, error) {
	r, ok := s.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (s *MemoryStore) ListRequestsByEvent(_ context.Context, eventID int64) ([]model.ParticipationRequest, error) {
	return s.listRequests(func(r *model.ParticipationRequest) bool { return r.EventID == eventID }), nil
}

func (s *MemoryStore) ListRequestsByRequester(_ context.Context, requesterID int64) ([]model.ParticipationRequest, error) {
	return s.listRequests(func(r *model.ParticipationRequest) bool { return r.RequesterID == requesterID }), nil
}

func (s *MemoryStore) CountConfirmed(_ context.Context, eventID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, r := range s.requests {
		if r.EventID == eventID && r.Status == model.RequestConfirmed {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) listRequests(keep func(r *model.ParticipationRequest) bool) []model.ParticipationRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.ParticipationRequest
	for _, r := range s.requests {
		if keep(&r) {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b model.ParticipationRequest) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// memoryTx mutates the store directly; the caller holds s.mu for writing.
type memoryTx struct {
	s    *MemoryStore
	undo []func()
}

func (tx *memoryTx) rollback() {
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.undo = nil
}

func (tx *memoryTx) rememberEvent(id int64) {
	prev, existed := tx.s.events[id]
	tx.undo = append(tx.undo, func() {
		if existed {
			tx.s.events[id] = prev
		} else {
			delete(tx.s.events, id)
		}
	})
}

func (tx *memoryTx) rememberRequest(id int64) {
	prev, existed := tx.s.requests[id]
	tx.undo = append(tx.undo, func() {
		if existed {
			tx.s.requests[id] = prev
		} else {
			delete(tx.s.requests, id)
		}
	})
}

// LockEvent needs no extra locking: the whole transaction already holds the
// store's writer lock.
func (tx *memoryTx) LockEvent(_ context.Context, id int64) (*model.Event, error) {
	return tx.s.event(id)
}

func (tx *memoryTx) GetEvent(_ context.Context, id int64) (*model.Event, error) {
	return tx.s.event(id)
}

func (tx *memoryTx) CategoryExists(_ context.Context, id int64) (bool, error) {
	_, ok := tx.s.categories[id]
	return ok, nil
}

func (tx *memoryTx) InsertEvent(_ context.Context, e *model.Event) error {
	tx.s.lastEventID++
	e.ID = tx.s.lastEventID
	e.ConfirmedRequests = 0
	tx.rememberEvent(e.ID)
	tx.s.events[e.ID] = *e
	return nil
}

func (tx *memoryTx) UpdateEvent(_ context.Context, e *model.Event) error {
	cur, ok := tx.s.events[e.ID]
	if !ok {
		return ErrNotFound
	}
	tx.rememberEvent(e.ID)
	next := *e
	next.ConfirmedRequests = cur.ConfirmedRequests
	next.CreatedOn = cur.CreatedOn
	next.InitiatorID = cur.InitiatorID
	next.Views = 0
	tx.s.events[e.ID] = next
	return nil
}

func (tx *memoryTx) IncrementConfirmed(_ context.Context, eventID int64) (bool, error) {
	e, ok := tx.s.events[eventID]
	if !ok {
		return false, ErrNotFound
	}
	if !e.Available() {
		return false, nil
	}
	tx.rememberEvent(eventID)
	e.ConfirmedRequests++
	tx.s.events[eventID] = e
	return true, nil
}

func (tx *memoryTx) DecrementConfirmed(_ context.Context, eventID int64) error {
	e, ok := tx.s.events[eventID]
	if !ok {
		return ErrNotFound
	}
	if e.ConfirmedRequests == 0 {
		return nil
	}
	tx.rememberEvent(eventID)
	e.ConfirmedRequests--
	tx.s.events[eventID] = e
	return nil
}

func (tx *memoryTx) InsertRequest(ctx context.Context, r *model.ParticipationRequest) error {
	if r.Status != model.RequestCanceled {
		if _, err := tx.FindActiveRequest(ctx, r.EventID, r.RequesterID); err == nil {
			return ErrDuplicate
		}
	}
	tx.s.lastRequestID++
	r.ID = tx.s.lastRequestID
	tx.rememberRequest(r.ID)
	tx.s.requests[r.ID] = *r
	return nil
}

func (tx *memoryTx) GetRequest(_ context.Context, id int64) (*model.ParticipationRequest, error) {
	return tx.s.request(id)
}

func (tx *memoryTx) FindActiveRequest(_ context.Context, eventID, requesterID int64) (*model.ParticipationRequest, error) {
	for _, r := range tx.s.requests {
		if r.EventID == eventID && r.RequesterID == requesterID && r.Status != model.RequestCanceled {
			return &r, nil
		}
	}
	return nil, ErrNotFound
}

func (tx *memoryTx) SetRequestStatus(_ context.Context, id int64, status model.RequestStatus) error {
	r, ok := tx.s.requests[id]
	if !ok {
		return ErrNotFound
	}
	tx.rememberRequest(id)
	r.Status = status
	tx.s.requests[id] = r
	return nil
}
