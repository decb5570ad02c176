package reconcile

import (
	"context"

	"github.com/caseworks/casesync/model"
)

// TableGateway is the remote store consumed by the engine: a per-table
// CRUD API over owner-partitioned rows. Implementations classify their
// failures with the errors package so the retry policy can tell an
// unprovisioned relation from a constraint violation or a timeout.
type TableGateway interface {
	// Select returns every row of the table owned by owner.
	Select(ctx context.Context, table, owner string) ([]model.Row, error)

	// SelectIDs returns the identifiers currently present remotely for
	// the table and owner.
	SelectIDs(ctx context.Context, table, owner string) ([]string, error)

	// Upsert inserts or replaces rows keyed on their identifier.
	Upsert(ctx context.Context, table string, rows []model.Row) error

	// Delete removes the identified rows owned by owner.
	Delete(ctx context.Context, table, owner string, ids []string) error

	// DeleteAll removes every row of the table owned by owner.
	DeleteAll(ctx context.Context, table, owner string) error
}
