package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/event-hosting/internal/capacity"
	"github.com/Shivanand-hulikatti/event-hosting/internal/model"
	"github.com/Shivanand-hulikatti/event-hosting/internal/repository"
)

const (
	initiatorID = int64(1)
	categoryID  = int64(1)
	userCount   = 40
)

var testNow = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

type fakeViews struct {
	mu     sync.Mutex
	hits   []string
	counts map[string]int64
}

func (f *fakeViews) RecordHit(_ context.Context, uri, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hits = append(f.hits, uri)
}

func (f *fakeViews) ViewCounts(_ context.Context, uris []string) map[string]int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]int64, len(uris))
	for _, u := range uris {
		out[u] = f.counts[u]
	}
	return out
}

type fixture struct {
	store    *repository.MemoryStore
	alloc    *capacity.Allocator
	events   *EventService
	requests *RequestService
	views    *fakeViews
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repository.NewMemoryStore()
	for id := int64(1); id <= userCount; id++ {
		store.AddUser(id)
	}
	store.AddCategory(categoryID)
	store.AddCategory(categoryID + 1)

	log := zap.NewNop()
	views := &fakeViews{counts: map[string]int64{}}
	alloc := capacity.NewAllocator(log)

	events := NewEventService(store, views, log)
	events.now = func() time.Time { return testNow }
	requests := NewRequestService(store, alloc, log)
	requests.now = func() time.Time { return testNow }

	return &fixture{store: store, alloc: alloc, events: events, requests: requests, views: views}
}

func newEventInput(limit int, moderation bool) model.NewEvent {
	return model.NewEvent{
		Title:             "Open air jazz evening",
		Annotation:        "An evening of live jazz in the city park",
		Description:       "Bring a blanket, the bands start playing at sunset and go on until late",
		Category:          categoryID,
		EventDate:         testNow.Add(72 * time.Hour),
		Location:          &model.Location{Lat: 55.75, Lon: 37.62},
		ParticipantLimit:  limit,
		RequestModeration: &moderation,
	}
}

func (f *fixture) createEvent(t *testing.T, limit int, moderation bool) *model.Event {
	t.Helper()
	e, err := f.events.CreateEvent(context.Background(), initiatorID, newEventInput(limit, moderation))
	require.NoError(t, err)
	return e
}

func (f *fixture) publishedEvent(t *testing.T, limit int, moderation bool) *model.Event {
	t.Helper()
	e := f.createEvent(t, limit, moderation)
	publish := model.ActionPublishEvent
	e, err := f.events.UpdateEventByAdmin(context.Background(), e.ID, model.UpdateEvent{StateAction: &publish})
	require.NoError(t, err)
	return e
}

func (f *fixture) request(t *testing.T, userID, eventID int64) *model.ParticipationRequest {
	t.Helper()
	r, err := f.requests.CreateRequest(context.Background(), userID, eventID)
	require.NoError(t, err)
	return r
}

// within fails the test instead of hanging when fn blocks, e.g. on a lock
// taken twice inside one transaction.
func within(t *testing.T, fn func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("call did not return within 5s")
	}
}

// assertConsistent checks the cached counter against CONFIRMED requests.
func (f *fixture) assertConsistent(t *testing.T, eventID int64) int {
	t.Helper()
	n, err := f.alloc.Verify(context.Background(), f.store, eventID)
	require.NoError(t, err)
	return n
}

func (f *fixture) status(t *testing.T, requestID int64) model.RequestStatus {
	t.Helper()
	r, err := f.store.GetRequest(context.Background(), requestID)
	require.NoError(t, err)
	return r.Status
}
