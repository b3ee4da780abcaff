package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/Shivanand-hulikatti/event-hosting/internal/model"
)

var errBoom = errors.New("boom")

// runStoreSuite exercises behaviour every Store must share. newStore returns
// an empty store in which users 1..50 and categories 1..2 exist.
func runStoreSuite(t *testing.T, newStore func(t *testing.T) Store) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s Store)
	}{
		{"InsertAndGet", testInsertAndGet},
		{"RollbackOnError", testRollbackOnError},
		{"IncrementRespectsLimit", testIncrementRespectsLimit},
		{"UpdateKeepsCounter", testUpdateKeepsCounter},
		{"CategoryLookupInsideTx", testCategoryLookupInsideTx},
		{"DuplicateRequest", testDuplicateRequest},
		{"ListEventsFilter", testListEventsFilter},
		{"ConcurrentReservations", testConcurrentReservations},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

func sampleEvent(limit int) *model.Event {
	now := time.Now().UTC().Truncate(time.Second)
	return &model.Event{
		Title:             "Chess tournament",
		Annotation:        "Rapid chess for club members and guests",
		Description:       "Seven rounds of rapid chess with prizes for the top three players",
		CategoryID:        1,
		InitiatorID:       1,
		EventDate:         now.Add(48 * time.Hour),
		Location:          model.Location{Lat: 48.85, Lon: 2.35},
		ParticipantLimit:  limit,
		RequestModeration: true,
		State:             model.EventPublished,
		CreatedOn:         now,
	}
}

func insertEvent(t *testing.T, s Store, e *model.Event) *model.Event {
	t.Helper()
	err := s.InTx(context.Background(), func(tx Tx) error {
		return tx.InsertEvent(context.Background(), e)
	})
	require.NoError(t, err)
	require.NotZero(t, e.ID)
	return e
}

func testInsertAndGet(t *testing.T, s Store) {
	ctx := context.Background()
	e := insertEvent(t, s, sampleEvent(3))

	got, err := s.GetEvent(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, e.Title, got.Title)
	assert.Equal(t, 3, got.ParticipantLimit)
	assert.Equal(t, 0, got.ConfirmedRequests)
	assert.True(t, e.EventDate.Equal(got.EventDate))

	_, err = s.GetEvent(ctx, e.ID+1000)
	assert.ErrorIs(t, err, ErrNotFound)

	ok, err := s.UserExists(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.CategoryExists(ctx, 999)
	require.NoError(t, err)
	assert.False(t, ok)
}

func testRollbackOnError(t *testing.T, s Store) {
	ctx := context.Background()
	base := insertEvent(t, s, sampleEvent(2))

	var created int64
	err := s.InTx(ctx, func(tx Tx) error {
		e := sampleEvent(0)
		if err := tx.InsertEvent(ctx, e); err != nil {
			return err
		}
		created = e.ID
		if _, err := tx.IncrementConfirmed(ctx, base.ID); err != nil {
			return err
		}
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)

	_, err = s.GetEvent(ctx, created)
	assert.ErrorIs(t, err, ErrNotFound)
	got, err := s.GetEvent(ctx, base.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.ConfirmedRequests)
}

func testIncrementRespectsLimit(t *testing.T, s Store) {
	ctx := context.Background()
	e := insertEvent(t, s, sampleEvent(2))

	var results []bool
	err := s.InTx(ctx, func(tx Tx) error {
		for range 3 {
			ok, err := tx.IncrementConfirmed(ctx, e.ID)
			if err != nil {
				return err
			}
			results = append(results, ok)
		}
		return tx.DecrementConfirmed(ctx, e.ID)
	})
	require.NoError(t, err)
	assert.Equal(t, []bool{true, true, false}, results)

	got, err := s.GetEvent(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.ConfirmedRequests)
}

func testUpdateKeepsCounter(t *testing.T, s Store) {
	ctx := context.Background()
	e := insertEvent(t, s, sampleEvent(5))

	err := s.InTx(ctx, func(tx Tx) error {
		if _, err := tx.IncrementConfirmed(ctx, e.ID); err != nil {
			return err
		}
		cur, err := tx.LockEvent(ctx, e.ID)
		if err != nil {
			return err
		}
		cur.Title = "Blitz tournament"
		cur.ConfirmedRequests = 0
		return tx.UpdateEvent(ctx, cur)
	})
	require.NoError(t, err)

	got, err := s.GetEvent(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "Blitz tournament", got.Title)
	assert.Equal(t, 1, got.ConfirmedRequests)
}

func testCategoryLookupInsideTx(t *testing.T, s Store) {
	ctx := context.Background()
	e := insertEvent(t, s, sampleEvent(0))

	done := make(chan error, 1)
	go func() {
		done <- s.InTx(ctx, func(tx Tx) error {
			if _, err := tx.LockEvent(ctx, e.ID); err != nil {
				return err
			}
			ok, err := tx.CategoryExists(ctx, 2)
			if err != nil {
				return err
			}
			assert.True(t, ok)
			ok, err = tx.CategoryExists(ctx, 999)
			if err != nil {
				return err
			}
			assert.False(t, ok)
			return nil
		})
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("category lookup blocked while the event was locked")
	}
}

func testDuplicateRequest(t *testing.T, s Store) {
	ctx := context.Background()
	e := insertEvent(t, s, sampleEvent(0))

	newRequest := func() *model.ParticipationRequest {
		return &model.ParticipationRequest{
			EventID:     e.ID,
			RequesterID: 2,
			Created:     time.Now().UTC(),
			Status:      model.RequestPending,
		}
	}

	first := newRequest()
	require.NoError(t, s.InTx(ctx, func(tx Tx) error { return tx.InsertRequest(ctx, first) }))

	err := s.InTx(ctx, func(tx Tx) error { return tx.InsertRequest(ctx, newRequest()) })
	assert.ErrorIs(t, err, ErrDuplicate)

	require.NoError(t, s.InTx(ctx, func(tx Tx) error {
		return tx.SetRequestStatus(ctx, first.ID, model.RequestCanceled)
	}))
	second := newRequest()
	require.NoError(t, s.InTx(ctx, func(tx Tx) error { return tx.InsertRequest(ctx, second) }))

	reqs, err := s.ListRequestsByEvent(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, reqs, 2)
	assert.Equal(t, model.RequestCanceled, reqs[0].Status)
	assert.Equal(t, model.RequestPending, reqs[1].Status)

	err = s.InTx(ctx, func(tx Tx) error {
		active, err := tx.FindActiveRequest(ctx, e.ID, 2)
		if err != nil {
			return err
		}
		assert.Equal(t, second.ID, active.ID)
		return nil
	})
	require.NoError(t, err)

	mine, err := s.ListRequestsByRequester(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
}

func testListEventsFilter(t *testing.T, s Store) {
	ctx := context.Background()

	full := sampleEvent(1)
	insertEvent(t, s, full)
	require.NoError(t, s.InTx(ctx, func(tx Tx) error {
		_, err := tx.IncrementConfirmed(ctx, full.ID)
		return err
	}))

	paid := sampleEvent(0)
	paid.Paid = true
	paid.CategoryID = 2
	insertEvent(t, s, paid)

	pending := sampleEvent(0)
	pending.State = model.EventPending
	pending.InitiatorID = 2
	insertEvent(t, s, pending)

	ids := func(f EventFilter) []int64 {
		t.Helper()
		events, err := s.ListEvents(ctx, f)
		require.NoError(t, err)
		out := make([]int64, 0, len(events))
		for _, e := range events {
			out = append(out, e.ID)
		}
		return out
	}

	published := []model.EventState{model.EventPublished}
	assert.Equal(t, []int64{full.ID, paid.ID, pending.ID}, ids(EventFilter{}))
	assert.Equal(t, []int64{full.ID, paid.ID}, ids(EventFilter{States: published}))
	assert.Equal(t, []int64{paid.ID}, ids(EventFilter{States: published, OnlyAvailable: true}))
	assert.Equal(t, []int64{paid.ID}, ids(EventFilter{Categories: []int64{2}}))
	assert.Equal(t, []int64{pending.ID}, ids(EventFilter{Initiators: []int64{2}}))

	yes := true
	assert.Equal(t, []int64{paid.ID}, ids(EventFilter{Paid: &yes}))

	past := time.Now().Add(-time.Hour)
	assert.Empty(t, ids(EventFilter{RangeEnd: &past}))

	assert.Equal(t, []int64{paid.ID}, ids(EventFilter{From: 1, Size: 1}))
	assert.Empty(t, ids(EventFilter{From: 5, Size: 10}))
}

func testConcurrentReservations(t *testing.T, s Store) {
	ctx := context.Background()
	const limit, callers = 5, 25
	e := insertEvent(t, s, sampleEvent(limit))

	granted := make(chan struct{}, callers)
	var g errgroup.Group
	for range callers {
		g.Go(func() error {
			return s.InTx(ctx, func(tx Tx) error {
				if _, err := tx.LockEvent(ctx, e.ID); err != nil {
					return err
				}
				ok, err := tx.IncrementConfirmed(ctx, e.ID)
				if ok {
					granted <- struct{}{}
				}
				return err
			})
		})
	}
	require.NoError(t, g.Wait())
	close(granted)

	assert.Len(t, granted, limit)
	got, err := s.GetEvent(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, limit, got.ConfirmedRequests)
}
