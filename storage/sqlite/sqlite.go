// Package sqlite provides a TokenStore backed by a sqlite database.
// Tokens are stored as opaque encrypted blobs in a single table keyed
// by principal id.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/streamkit/helix"
	"github.com/streamkit/helix/instrumentation"
	"github.com/streamkit/helix/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS AuthTokens (
	id INTEGER PRIMARY KEY,
	token BLOB NOT NULL
);`

// Store persists tokens in sqlite. The database/sql pool serializes
// concurrent access from renewal tasks and resolver calls.
type Store struct {
	db     *sql.DB
	codec  *storage.Codec
	logger *slog.Logger
	inst   *instrumentation.Instrumentation
	tracer trace.Tracer
}

var _ storage.TokenStore = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithInstrumentation attaches OpenTelemetry instrumentation. Every
// store operation records a span plus count and duration metrics.
func WithInstrumentation(inst *instrumentation.Instrumentation) Option {
	return func(s *Store) {
		s.inst = inst
		s.tracer = inst.Tracer("storage")
	}
}

// Open opens (creating if necessary) the database at dsn and ensures
// the schema exists. The codec is required: rows only ever hold
// encoded blobs.
func Open(dsn string, codec *storage.Codec, logger *slog.Logger, opts ...Option) (*Store, error) {
	if codec == nil {
		return nil, fmt.Errorf("codec is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	s := &Store{
		db:     db,
		codec:  codec,
		logger: logger,
		tracer: tracenoop.NewTracerProvider().Tracer(""),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get retrieves the token for a principal.
func (s *Store) Get(ctx context.Context, id helix.Principal) (token *helix.AuthToken, err error) {
	ctx, span := s.tracer.Start(ctx, "store.get")
	defer span.End()
	start := time.Now()
	defer func() { s.observe(ctx, span, "get", start, err) }()

	var blob []byte
	err = s.db.QueryRowContext(ctx, `SELECT token FROM AuthTokens WHERE id = ?`, int64(id)).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query token for principal %d: %w", id, err)
	}

	token, err = s.codec.Decode(blob)
	if err != nil {
		return nil, &helix.PersistenceError{Principal: id, Op: "read", Err: err}
	}
	return token, nil
}

// GetAll retrieves every stored token.
func (s *Store) GetAll(ctx context.Context) (tokens []*helix.AuthToken, err error) {
	ctx, span := s.tracer.Start(ctx, "store.get_all")
	defer span.End()
	start := time.Now()
	defer func() { s.observe(ctx, span, "get_all", start, err) }()

	rows, err := s.db.QueryContext(ctx, `SELECT id, token FROM AuthTokens`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tokens: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var id int64
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan token row: %w", err)
		}
		token, err := s.codec.Decode(blob)
		if err != nil {
			return nil, &helix.PersistenceError{Principal: helix.Principal(id), Op: "read", Err: err}
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate token rows: %w", err)
	}
	return tokens, nil
}

// Put stores a token, replacing any row for the same principal.
func (s *Store) Put(ctx context.Context, token *helix.AuthToken) (err error) {
	ctx, span := s.tracer.Start(ctx, "store.put")
	defer span.End()
	start := time.Now()
	defer func() { s.observe(ctx, span, "put", start, err) }()

	blob, err := s.codec.Encode(token)
	if err != nil {
		return &helix.PersistenceError{Principal: token.ID, Op: "write", Err: err}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO AuthTokens (id, token) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET token = excluded.token`,
		int64(token.ID), blob)
	if err != nil {
		return fmt.Errorf("failed to upsert token for principal %d: %w", token.ID, err)
	}
	return nil
}

// Delete removes the token row for a principal.
func (s *Store) Delete(ctx context.Context, id helix.Principal) (err error) {
	ctx, span := s.tracer.Start(ctx, "store.delete")
	defer span.End()
	start := time.Now()
	defer func() { s.observe(ctx, span, "delete", start, err) }()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM AuthTokens WHERE id = ?`, int64(id)); err != nil {
		return fmt.Errorf("failed to delete token for principal %d: %w", id, err)
	}
	return nil
}

// observe records the span outcome and the operation count and
// duration metrics for one store call.
func (s *Store) observe(ctx context.Context, span trace.Span, op string, start time.Time, err error) {
	instrumentation.AddStorageAttributes(span, op, "sqlite")
	if err != nil {
		instrumentation.RecordError(span, err)
	} else {
		instrumentation.SetSpanSuccess(span)
	}

	if s.inst == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	attrs := metric.WithAttributes(
		attribute.String(instrumentation.AttrStorageOperation, op),
		attribute.String(instrumentation.AttrStorageType, "sqlite"),
		attribute.String(instrumentation.AttrOutcome, outcome),
	)
	m := s.inst.Metrics()
	m.StorageOperationTotal.Add(ctx, 1, attrs)
	m.StorageOperationDuration.Record(ctx, float64(time.Since(start))/float64(time.Millisecond), attrs)
}
