// Package store persists soporte records in PostgreSQL through a pgx
// connection pool. It owns id and fecha_creacion assignment and surfaces
// natural-key collisions as domain errors.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mensajeria/soporte-api/internal/config"
	"github.com/mensajeria/soporte-api/internal/soporte"
)

// DefaultListLimit bounds a listing page when the caller supplies no limit.
const DefaultListLimit = 100

// uniqueViolation is the PostgreSQL error code for unique constraint hits.
const uniqueViolation = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS soportes (
	id             BIGSERIAL PRIMARY KEY,
	nombre         VARCHAR(255) NOT NULL,
	direccion      VARCHAR(500) NOT NULL,
	cedula         VARCHAR(50)  NOT NULL UNIQUE,
	fecha_creacion TIMESTAMPTZ  NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_soportes_fecha_creacion ON soportes (fecha_creacion DESC, id DESC);
`

// Store wraps a pgx connection pool with record operations.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a pool from the database configuration. Connections open
// lazily; call WaitReady or Ping to verify reachability.
func New(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	pcfg.MaxConns = int32(cfg.MaxConns)
	pcfg.MinConns = int32(cfg.MinConns)
	pcfg.MaxConnLifetime = cfg.MaxConnLifetime
	pcfg.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Init applies the table schema. Idempotent, runs at startup.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	slog.Info("database schema ready", "table", "soportes")
	return nil
}

// Ping verifies database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the underlying pool. Idempotent.
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// Create validates the candidate, assigns id and fecha_creacion, and
// persists a new record. A cedula collision returns *soporte.DuplicateError.
func (s *Store) Create(ctx context.Context, p soporte.CreateParams) (*soporte.Record, error) {
	p = p.Normalize()
	if err := p.Validate(); err != nil {
		return nil, err
	}

	const q = `
		INSERT INTO soportes (nombre, direccion, cedula)
		VALUES ($1, $2, $3)
		RETURNING id, fecha_creacion`

	rec := soporte.Record{
		Nombre:    p.Nombre,
		Direccion: p.Direccion,
		Cedula:    p.Cedula,
	}
	err := s.pool.QueryRow(ctx, q, p.Nombre, p.Direccion, p.Cedula).
		Scan(&rec.ID, &rec.FechaCreacion)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, &soporte.DuplicateError{Cedula: p.Cedula}
		}
		return nil, fmt.Errorf("%w: insert soporte: %w", soporte.ErrStorage, err)
	}
	return &rec, nil
}

// List returns a page of records ordered by creation time, newest first.
// Non-positive limits fall back to DefaultListLimit; negative offsets to 0.
func (s *Store) List(ctx context.Context, offset, limit int) ([]soporte.Record, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if offset < 0 {
		offset = 0
	}

	const q = `
		SELECT id, nombre, direccion, cedula, fecha_creacion
		FROM soportes
		ORDER BY fecha_creacion DESC, id DESC
		OFFSET $1 LIMIT $2`

	rows, err := s.pool.Query(ctx, q, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list soportes: %w", soporte.ErrStorage, err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// All returns every record, newest first. Used by the export endpoints.
func (s *Store) All(ctx context.Context) ([]soporte.Record, error) {
	const q = `
		SELECT id, nombre, direccion, cedula, fecha_creacion
		FROM soportes
		ORDER BY fecha_creacion DESC, id DESC`

	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%w: export soportes: %w", soporte.ErrStorage, err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// GetByID returns the record with the given id, or soporte.ErrNotFound.
func (s *Store) GetByID(ctx context.Context, id int64) (*soporte.Record, error) {
	const q = `
		SELECT id, nombre, direccion, cedula, fecha_creacion
		FROM soportes WHERE id = $1`
	return s.getOne(ctx, q, id)
}

// GetByCedula returns the record with the given cedula, or soporte.ErrNotFound.
func (s *Store) GetByCedula(ctx context.Context, cedula string) (*soporte.Record, error) {
	const q = `
		SELECT id, nombre, direccion, cedula, fecha_creacion
		FROM soportes WHERE cedula = $1`
	return s.getOne(ctx, q, cedula)
}

func (s *Store) getOne(ctx context.Context, q string, arg any) (*soporte.Record, error) {
	var rec soporte.Record
	err := s.pool.QueryRow(ctx, q, arg).
		Scan(&rec.ID, &rec.Nombre, &rec.Direccion, &rec.Cedula, &rec.FechaCreacion)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, soporte.ErrNotFound
		}
		return nil, fmt.Errorf("%w: get soporte: %w", soporte.ErrStorage, err)
	}
	return &rec, nil
}

// Delete removes the record with the given id. It reports whether a record
// existed and was removed.
func (s *Store) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM soportes WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("%w: delete soporte: %w", soporte.ErrStorage, err)
	}
	return tag.RowsAffected() > 0, nil
}

// ImportTx stages rows of one bulk import inside a single transaction.
// Either Commit or Rollback must be called on every exit path; Rollback
// after a successful Commit is a harmless no-op.
type ImportTx interface {
	// ExistsCedula reports whether a record with this cedula is already
	// persisted (rows staged earlier in this transaction included).
	ExistsCedula(ctx context.Context, cedula string) (bool, error)

	// Insert stages one record. A failed insert leaves the transaction
	// usable so remaining rows can still be processed.
	Insert(ctx context.Context, p soporte.CreateParams) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// BeginImport opens the transaction backing one bulk import.
func (s *Store) BeginImport(ctx context.Context) (ImportTx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: begin import: %w", soporte.ErrStorage, err)
	}
	return &importTx{tx: tx}, nil
}

type importTx struct {
	tx  pgx.Tx
	seq int
}

func (t *importTx) ExistsCedula(ctx context.Context, cedula string) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM soportes WHERE cedula = $1)`, cedula).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%w: check cedula: %w", soporte.ErrStorage, err)
	}
	return exists, nil
}

// Insert wraps the row insert in a savepoint. On failure the savepoint is
// rolled back, so the enclosing transaction survives per-row errors.
func (t *importTx) Insert(ctx context.Context, p soporte.CreateParams) error {
	t.seq++
	sp := fmt.Sprintf("sp_%d", t.seq)

	if _, err := t.tx.Exec(ctx, "SAVEPOINT "+sp); err != nil {
		return fmt.Errorf("%w: savepoint: %w", soporte.ErrStorage, err)
	}

	_, err := t.tx.Exec(ctx,
		`INSERT INTO soportes (nombre, direccion, cedula) VALUES ($1, $2, $3)`,
		p.Nombre, p.Direccion, p.Cedula)
	if err != nil {
		_, _ = t.tx.Exec(ctx, "ROLLBACK TO SAVEPOINT "+sp)
		if isUniqueViolation(err) {
			return &soporte.DuplicateError{Cedula: p.Cedula}
		}
		return fmt.Errorf("%w: insert row: %w", soporte.ErrStorage, err)
	}

	_, _ = t.tx.Exec(ctx, "RELEASE SAVEPOINT "+sp)
	return nil
}

func (t *importTx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit import: %w", soporte.ErrStorage, err)
	}
	return nil
}

func (t *importTx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func scanRecords(rows pgx.Rows) ([]soporte.Record, error) {
	records := make([]soporte.Record, 0, 32)
	for rows.Next() {
		var rec soporte.Record
		if err := rows.Scan(&rec.ID, &rec.Nombre, &rec.Direccion, &rec.Cedula, &rec.FechaCreacion); err != nil {
			return nil, fmt.Errorf("%w: scan soporte: %w", soporte.ErrStorage, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate soportes: %w", soporte.ErrStorage, err)
	}
	return records, nil
}

// Stats returns a snapshot of pool state for the health endpoint.
func (s *Store) Stats() *pgxpool.Stat {
	if s == nil || s.pool == nil {
		return nil
	}
	return s.pool.Stat()
}

// WaitReady pings the database until it responds or the deadline passes.
// Useful when the service starts alongside the database container.
func (s *Store) WaitReady(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		err := s.Ping(ctx)
		if err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("database not ready after %s: %w", timeout, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
}
