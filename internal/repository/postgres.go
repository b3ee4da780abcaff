package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/event-hosting/internal/model"
)

const uniqueViolation = "23505"

const eventColumns = `id, title, annotation, description, category_id, initiator_id, event_date,
	location_lat, location_lon, paid, participant_limit, request_moderation, state,
	created_on, published_on, confirmed_requests`

const requestColumns = `id, event_id, requester_id, created, status`

// querier is the subset of pgx shared by the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists events and requests in PostgreSQL using pgx
// directly (no ORM).
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// InTx runs fn inside a database transaction.
//
// Capacity checks must never be "read the counter, compare in Go, write it
// back" across two statements without a lock: two transactions reading the
// same snapshot would both see a free seat. Callers serialize per event with
// Tx.LockEvent (SELECT ... FOR UPDATE), and IncrementConfirmed is itself a
// conditional UPDATE whose affected-row count decides the outcome.
func (s *PostgresStore) InTx(ctx context.Context, fn func(tx Tx) error) (err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = fn(&pgTx{q: tx}); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) UserExists(ctx context.Context, id int64) (bool, error) {
	return exists(ctx, s.db, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, id)
}

func (s *PostgresStore) CategoryExists(ctx context.Context, id int64) (bool, error) {
	return exists(ctx, s.db, `SELECT EXISTS(SELECT 1 FROM categories WHERE id = $1)`, id)
}

func exists(ctx context.Context, q querier, sql string, id int64) (bool, error) {
	var ok bool
	if err := q.QueryRow(ctx, sql, id).Scan(&ok); err != nil {
		return false, fmt.Errorf("check existence: %w", err)
	}
	return ok, nil
}

func (s *PostgresStore) GetEvent(ctx context.Context, id int64) (*model.Event, error) {
	return getEvent(ctx, s.db, id, false)
}

// ListEvents returns matching events ordered by id.
func (s *PostgresStore) ListEvents(ctx context.Context, f EventFilter) ([]model.Event, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if len(f.Initiators) > 0 {
		add("initiator_id = ANY($%d)", f.Initiators)
	}
	if len(f.States) > 0 {
		states := make([]string, len(f.States))
		for i, st := range f.States {
			states[i] = string(st)
		}
		add("state = ANY($%d)", states)
	}
	if len(f.Categories) > 0 {
		add("category_id = ANY($%d)", f.Categories)
	}
	if f.Paid != nil {
		add("paid = $%d", *f.Paid)
	}
	if f.RangeStart != nil {
		add("event_date >= $%d", *f.RangeStart)
	}
	if f.RangeEnd != nil {
		add("event_date <= $%d", *f.RangeEnd)
	}
	if f.OnlyAvailable {
		where = append(where, "(participant_limit = 0 OR confirmed_requests < participant_limit)")
	}

	var sb strings.Builder
	sb.WriteString("SELECT " + eventColumns + " FROM events")
	if len(where) > 0 {
		sb.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	sb.WriteString(" ORDER BY id")
	if f.Size > 0 {
		args = append(args, f.Size)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}
	if f.From > 0 {
		args = append(args, f.From)
		fmt.Fprintf(&sb, " OFFSET $%d", len(args))
	}

	rows, err := s.db.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

func (s *PostgresStore) GetRequest(ctx context.Context, id int64) (*model.ParticipationRequest, error) {
	return getRequest(ctx, s.db, id)
}

func (s *PostgresStore) ListRequestsByEvent(ctx context.Context, eventID int64) ([]model.ParticipationRequest, error) {
	return listRequests(ctx, s.db,
		`SELECT `+requestColumns+` FROM requests WHERE event_id = $1 ORDER BY id`, eventID)
}

func (s *PostgresStore) ListRequestsByRequester(ctx context.Context, requesterID int64) ([]model.ParticipationRequest, error) {
	return listRequests(ctx, s.db,
		`SELECT `+requestColumns+` FROM requests WHERE requester_id = $1 ORDER BY id`, requesterID)
}

func (s *PostgresStore) CountConfirmed(ctx context.Context, eventID int64) (int, error) {
	var n int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM requests WHERE event_id = $1 AND status = $2`,
		eventID, string(model.RequestConfirmed),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count confirmed requests: %w", err)
	}
	return n, nil
}

// pgTx implements Tx on top of a pgx transaction.
type pgTx struct {
	q querier
}

// LockEvent acquires a row-level exclusive lock on the event. Any other
// transaction locking the same row blocks until this one commits or rolls
// back, which serializes everything that reads-then-writes the event's seats.
func (t *pgTx) LockEvent(ctx context.Context, id int64) (*model.Event, error) {
	return getEvent(ctx, t.q, id, true)
}

func (t *pgTx) GetEvent(ctx context.Context, id int64) (*model.Event, error) {
	return getEvent(ctx, t.q, id, false)
}

func (t *pgTx) CategoryExists(ctx context.Context, id int64) (bool, error) {
	return exists(ctx, t.q, `SELECT EXISTS(SELECT 1 FROM categories WHERE id = $1)`, id)
}

func (t *pgTx) InsertEvent(ctx context.Context, e *model.Event) error {
	err := t.q.QueryRow(ctx,
		`INSERT INTO events (title, annotation, description, category_id, initiator_id, event_date,
			location_lat, location_lon, paid, participant_limit, request_moderation, state,
			created_on, published_on, confirmed_requests)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, 0)
		 RETURNING id`,
		e.Title, e.Annotation, e.Description, e.CategoryID, e.InitiatorID, e.EventDate,
		e.Location.Lat, e.Location.Lon, e.Paid, e.ParticipantLimit, e.RequestModeration, string(e.State),
		e.CreatedOn, e.PublishedOn,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	e.ConfirmedRequests = 0
	return nil
}

func (t *pgTx) UpdateEvent(ctx context.Context, e *model.Event) error {
	tag, err := t.q.Exec(ctx,
		`UPDATE events SET title = $2, annotation = $3, description = $4, category_id = $5,
			event_date = $6, location_lat = $7, location_lon = $8, paid = $9,
			participant_limit = $10, request_moderation = $11, state = $12, published_on = $13
		 WHERE id = $1`,
		e.ID, e.Title, e.Annotation, e.Description, e.CategoryID,
		e.EventDate, e.Location.Lat, e.Location.Lon, e.Paid,
		e.ParticipantLimit, e.RequestModeration, string(e.State), e.PublishedOn,
	)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *pgTx) IncrementConfirmed(ctx context.Context, eventID int64) (bool, error) {
	tag, err := t.q.Exec(ctx,
		`UPDATE events SET confirmed_requests = confirmed_requests + 1
		 WHERE id = $1 AND (participant_limit = 0 OR confirmed_requests < participant_limit)`,
		eventID,
	)
	if err != nil {
		return false, fmt.Errorf("increment confirmed_requests: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (t *pgTx) DecrementConfirmed(ctx context.Context, eventID int64) error {
	_, err := t.q.Exec(ctx,
		`UPDATE events SET confirmed_requests = confirmed_requests - 1
		 WHERE id = $1 AND confirmed_requests > 0`,
		eventID,
	)
	if err != nil {
		return fmt.Errorf("decrement confirmed_requests: %w", err)
	}
	return nil
}

func (t *pgTx) InsertRequest(ctx context.Context, r *model.ParticipationRequest) error {
	err := t.q.QueryRow(ctx,
		`INSERT INTO requests (event_id, requester_id, created, status)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		r.EventID, r.RequesterID, r.Created, string(r.Status),
	).Scan(&r.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicate
		}
		return fmt.Errorf("insert request: %w", err)
	}
	return nil
}

func (t *pgTx) GetRequest(ctx context.Context, id int64) (*model.ParticipationRequest, error) {
	return getRequest(ctx, t.q, id)
}

func (t *pgTx) FindActiveRequest(ctx context.Context, eventID, requesterID int64) (*model.ParticipationRequest, error) {
	return scanRequest(t.q.QueryRow(ctx,
		`SELECT `+requestColumns+` FROM requests
		 WHERE event_id = $1 AND requester_id = $2 AND status <> $3
		 LIMIT 1`,
		eventID, requesterID, string(model.RequestCanceled),
	))
}

func (t *pgTx) SetRequestStatus(ctx context.Context, id int64, status model.RequestStatus) error {
	tag, err := t.q.Exec(ctx, `UPDATE requests SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("update request status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func getEvent(ctx context.Context, q querier, id int64, forUpdate bool) (*model.Event, error) {
	sql := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	return scanEvent(q.QueryRow(ctx, sql, id))
}

func scanEvent(row pgx.Row) (*model.Event, error) {
	var (
		e     model.Event
		state string
	)
	err := row.Scan(&e.ID, &e.Title, &e.Annotation, &e.Description, &e.CategoryID, &e.InitiatorID,
		&e.EventDate, &e.Location.Lat, &e.Location.Lon, &e.Paid, &e.ParticipantLimit,
		&e.RequestModeration, &state, &e.CreatedOn, &e.PublishedOn, &e.ConfirmedRequests)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan event: %w", err)
	}
	e.State = model.EventState(state)
	return &e, nil
}

func getRequest(ctx context.Context, q querier, id int64) (*model.ParticipationRequest, error) {
	return scanRequest(q.QueryRow(ctx, `SELECT `+requestColumns+` FROM requests WHERE id = $1`, id))
}

func scanRequest(row pgx.Row) (*model.ParticipationRequest, error) {
	var (
		r      model.ParticipationRequest
		status string
	)
	if err := row.Scan(&r.ID, &r.EventID, &r.RequesterID, &r.Created, &status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan request: %w", err)
	}
	r.Status = model.RequestStatus(status)
	return &r, nil
}

func listRequests(ctx context.Context, q querier, sql string, id int64) ([]model.ParticipationRequest, error) {
	rows, err := q.Query(ctx, sql, id)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	var out []model.ParticipationRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}
