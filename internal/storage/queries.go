package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type SnapshotRow struct {
	Kind      string
	FetchedAt int64
	ItemCount int64
	Payload   []byte
	UpdatedAt string
}

const upsertSnapshot = `
INSERT INTO snapshots (kind, fetched_at, item_count, payload, updated_at)
VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(kind) DO UPDATE SET
    fetched_at = excluded.fetched_at,
    item_count = excluded.item_count,
    payload    = excluded.payload,
    updated_at = CURRENT_TIMESTAMP
`

type UpsertSnapshotParams struct {
	Kind      string
	FetchedAt int64
	ItemCount int64
	Payload   []byte
}

func (q *Queries) UpsertSnapshot(ctx context.Context, arg UpsertSnapshotParams) error {
	_, err := q.db.ExecContext(ctx, upsertSnapshot, arg.Kind, arg.FetchedAt, arg.ItemCount, arg.Payload)
	return err
}

const getSnapshot = `
SELECT kind, fetched_at, item_count, payload, updated_at
FROM snapshots
WHERE kind = ?
`

func (q *Queries) GetSnapshot(ctx context.Context, kind string) (SnapshotRow, error) {
	row := q.db.QueryRowContext(ctx, getSnapshot, kind)
	var i SnapshotRow
	err := row.Scan(&i.Kind, &i.FetchedAt, &i.ItemCount, &i.Payload, &i.UpdatedAt)
	return i, err
}

const listSnapshotKinds = `
SELECT kind FROM snapshots ORDER BY kind
`

func (q *Queries) ListSnapshotKinds(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listSnapshotKinds)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var kind string
		if err := rows.Scan(&kind); err != nil {
			return nil, err
		}
		items = append(items, kind)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
