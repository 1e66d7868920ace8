package store

import (
	"context"
	"errors"
	"fmt"

	"receivables-analytics/internal/core"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Store reads the ledger store and reads/writes the projection tables.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// ListActiveTenants returns every active company ordered by guid.
func (s *Store) ListActiveTenants(ctx context.Context) ([]core.Tenant, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT company_guid, COALESCE(name, ''), active
		FROM companies
		WHERE active
		ORDER BY company_guid
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tenants: %w", err)
	}
	defer rows.Close()

	var tenants []core.Tenant
	for rows.Next() {
		var t core.Tenant
		if err := rows.Scan(&t.GUID, &t.Name, &t.Active); err != nil {
			return nil, fmt.Errorf("failed to scan tenant: %w", err)
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

// WithTenantTx runs fn inside one transaction scoped to tenantID. The
// transaction holds an advisory lock keyed on the tenant, so concurrent
// refreshes of the same tenant run one after the other. fn's error rolls
// everything back.
func (s *Store) WithTenantTx(ctx context.Context, tenantID string, fn func(*Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext('refresh:' || $1))`, tenantID); err != nil {
		return fmt.Errorf("failed to acquire tenant lock: %w", err)
	}

	if err := fn(&Tx{q: tx, tenantID: tenantID}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// Tx is the tenant-scoped view of an open transaction.
type Tx struct {
	q        querier
	tenantID string
}

func (t *Tx) TenantID() string { return t.tenantID }
