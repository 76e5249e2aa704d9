package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver

	"typing-assistant/api/internal/correction"
)

var ErrNotFound = errors.New("store: history entry not found")

const (
	DefaultRecentLimit = 20
	MaxRecentLimit     = 200
)

// Open connects through the pgx stdlib driver and pings once.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

type HistoryRepo struct{ DB *sql.DB }

func NewHistoryRepo(db *sql.DB) *HistoryRepo { return &HistoryRepo{DB: db} }

const schema = `
create table if not exists correction_history (
  id            uuid primary key,
  created_at    timestamptz not null default now(),
  source        text not null,
  task          text not null,
  input_text    text not null,
  corrected     text not null,
  failure_kind  text,
  failure_cause text,
  engine        text not null default '',
  model         text not null default '',
  metrics_json  jsonb not null
)`

const schemaIndex = `create index if not exists correction_history_created_at_idx on correction_history (created_at desc)`

func (r *HistoryRepo) EnsureSchema(ctx context.Context) error {
	for _, q := range []string{schema, schemaIndex} {
		if _, err := r.DB.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// Save stores one finished correction. Saving the same ID twice is a no-op.
func (r *HistoryRepo) Save(ctx context.Context, res correction.Result) error {
	js, err := json.Marshal(res.Metrics)
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}

	var kind, cause sql.NullString
	if res.Failure != nil {
		kind = sql.NullString{String: res.Failure.Kind.String(), Valid: true}
		if res.Failure.Cause != nil {
			cause = sql.NullString{String: res.Failure.Cause.Error(), Valid: true}
		}
	}

	createdAt := res.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	const q = `
insert into correction_history (
  id, created_at, source, task, input_text, corrected,
  failure_kind, failure_cause, engine, model, metrics_json
) values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
on conflict (id) do nothing`
	_, err = r.DB.ExecContext(ctx, q,
		res.ID, createdAt, res.Source, string(res.Task), res.Input, res.Corrected,
		kind, cause, res.Engine, res.Model, js,
	)
	return err
}

const selectColumns = `
select id, created_at, source, task, input_text, corrected,
       failure_kind, failure_cause, engine, model, metrics_json
from correction_history`

// Recent returns the newest entries first; see ClampLimit for the accepted range.
func (r *HistoryRepo) Recent(ctx context.Context, limit int) ([]correction.Result, error) {
	rows, err := r.DB.QueryContext(ctx, selectColumns+`
order by created_at desc
limit $1`, ClampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]correction.Result, 0)
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// Get returns ErrNotFound when no entry has the id.
func (r *HistoryRepo) Get(ctx context.Context, id string) (correction.Result, error) {
	row := r.DB.QueryRowContext(ctx, selectColumns+` where id = $1`, id)
	res, err := scanResult(row)
	if errors.Is(err, sql.ErrNoRows) {
		return correction.Result{}, ErrNotFound
	}
	return res, err
}

// Ping backs the readiness check.
func (r *HistoryRepo) Ping(ctx context.Context) error {
	return r.DB.PingContext(ctx)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanResult(s scanner) (correction.Result, error) {
	var (
		res         correction.Result
		task        string
		kind, cause sql.NullString
		js          []byte
	)
	if err := s.Scan(&res.ID, &res.CreatedAt, &res.Source, &task, &res.Input, &res.Corrected,
		&kind, &cause, &res.Engine, &res.Model, &js); err != nil {
		return correction.Result{}, err
	}
	res.Task = correction.TaskKind(task)
	res.CreatedAt = res.CreatedAt.UTC()

	if kind.Valid {
		res.Failure = &correction.Failure{
			Kind:  correction.ParseFailureKind(kind.String),
			Cause: errors.New(cause.String),
		}
	}
	if err := json.Unmarshal(js, &res.Metrics); err != nil {
		return correction.Result{}, fmt.Errorf("decode metrics for %s: %w", res.ID, err)
	}
	return res, nil
}

// ClampLimit maps a non-positive limit to DefaultRecentLimit and caps it at MaxRecentLimit.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultRecentLimit
	case limit > MaxRecentLimit:
		return MaxRecentLimit
	default:
		return limit
	}
}

var _ correction.HistoryWriter = (*HistoryRepo)(nil)
