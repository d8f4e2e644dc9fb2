package transfer

import (
	"context"
	"encoding/json"
	"time"

	"sales_leads_backend/internal/ingest/source"
	"sales_leads_backend/internal/leads/repository"
	"sales_leads_backend/platform/db"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Batch is one open transaction over the staging table and the leads table.
type Batch interface {
	// Pending locks and returns every entry not yet transferred.
	// Entries locked by a concurrent batch are skipped.
	Pending(ctx context.Context) ([]source.StagedEntry, error)
	Insert(ctx context.Context, params repository.CreateLeadParams) (repository.Lead, error)
	MarkTransferred(ctx context.Context, entryIDs []int64, at string) error
}

// Store opens batches. fn's error rolls the batch back.
type Store interface {
	WithBatch(ctx context.Context, fn func(Batch) error) error
}

// PostgresStore runs batches inside a pgx transaction.
type PostgresStore struct {
	pool           *pgxpool.Pool
	leads          repository.BatchInserter
	acquireTimeout time.Duration
}

func NewPostgresStore(pool *pgxpool.Pool, leads repository.BatchInserter, acquireTimeout time.Duration) *PostgresStore {
	return &PostgresStore{pool: pool, leads: leads, acquireTimeout: acquireTimeout}
}

var _ Store = (*PostgresStore)(nil)

func (s *PostgresStore) WithBatch(ctx context.Context, fn func(Batch) error) error {
	return db.InTx(ctx, s.pool, s.acquireTimeout, func(tx pgx.Tx) error {
		return fn(&txBatch{tx: tx, leads: s.leads})
	})
}

const (
	pendingEntriesQuery = `
		SELECT entry_id, fields, to_char(date, 'YYYY-MM-DD HH24:MI:SS')
		FROM wpforms_entries
		WHERE transferred_at IS NULL
		ORDER BY entry_id
		FOR UPDATE SKIP LOCKED`

	markTransferredQuery = `
		UPDATE wpforms_entries
		SET transferred_at = $2::timestamp
		WHERE entry_id = ANY($1::bigint[])`
)

type txBatch struct {
	tx    pgx.Tx
	leads repository.BatchInserter
}

func (b *txBatch) Pending(ctx context.Context) ([]source.StagedEntry, error) {
	rows, err := b.tx.Query(ctx, pendingEntriesQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]source.StagedEntry, 0)
	for rows.Next() {
		var (
			e      source.StagedEntry
			fields []byte
		)
		if err := rows.Scan(&e.ID, &fields, &e.Date); err != nil {
			return nil, err
		}
		e.Fields = json.RawMessage(fields)
		entries = append(entries, e)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return entries, nil
}

func (b *txBatch) Insert(ctx context.Context, params repository.CreateLeadParams) (repository.Lead, error) {
	return b.leads.InsertWith(ctx, b.tx, params)
}

func (b *txBatch) MarkTransferred(ctx context.Context, entryIDs []int64, at string) error {
	_, err := b.tx.Exec(ctx, markTransferredQuery, entryIDs, at)
	return err
}
