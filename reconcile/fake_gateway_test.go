package reconcile

import (
	"context"
	"sort"
	"sync"

	"github.com/caseworks/casesync/model"
)

type gatewayCall struct {
	op    string // "upsert", "select_ids", "delete", "delete_all"
	table string
	size  int
	ids   []string
}

// fakeGateway is an in-memory TableGateway that records every call and
// can be told to fail specific operations.
type fakeGateway struct {
	mu     sync.Mutex
	calls  []gatewayCall
	remote map[string]map[string]model.Row // table -> id -> row

	// failWith returns this error for op+table ("upsert:visits").
	failWith map[string]error
	// failTimes limits how often failWith fires; 0 means always.
	failTimes map[string]int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		remote:    make(map[string]map[string]model.Row),
		failWith:  make(map[string]error),
		failTimes: make(map[string]int),
	}
}

func (g *fakeGateway) failure(op, table string) error {
	key := op + ":" + table
	err, ok := g.failWith[key]
	if !ok {
		return nil
	}
	if left, limited := g.failTimes[key]; limited {
		if left <= 0 {
			return nil
		}
		g.failTimes[key] = left - 1
	}
	return err
}

func (g *fakeGateway) tableRows(table string) map[string]model.Row {
	if g.remote[table] == nil {
		g.remote[table] = make(map[string]model.Row)
	}
	return g.remote[table]
}

func (g *fakeGateway) Select(ctx context.Context, table, owner string) ([]model.Row, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failure("select", table); err != nil {
		return nil, err
	}
	var rows []model.Row
	for _, row := range g.tableRows(table) {
		if row[model.ColumnOwner] == owner {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func (g *fakeGateway) SelectIDs(ctx context.Context, table, owner string) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, gatewayCall{op: "select_ids", table: table})
	if err := g.failure("select_ids", table); err != nil {
		return nil, err
	}
	var ids []string
	for id, row := range g.tableRows(table) {
		if row[model.ColumnOwner] == owner {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (g *fakeGateway) Upsert(ctx context.Context, table string, rows []model.Row) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, gatewayCall{op: "upsert", table: table, size: len(rows)})
	if err := g.failure("upsert", table); err != nil {
		return err
	}
	stored := g.tableRows(table)
	for _, row := range rows {
		stored[row["id"].(string)] = row
	}
	return nil
}

func (g *fakeGateway) Delete(ctx context.Context, table, owner string, ids []string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, gatewayCall{op: "delete", table: table, size: len(ids), ids: append([]string(nil), ids...)})
	if err := g.failure("delete", table); err != nil {
		return err
	}
	stored := g.tableRows(table)
	for _, id := range ids {
		if row, ok := stored[id]; ok && row[model.ColumnOwner] == owner {
			delete(stored, id)
		}
	}
	return nil
}

func (g *fakeGateway) DeleteAll(ctx context.Context, table, owner string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, gatewayCall{op: "delete_all", table: table})
	if err := g.failure("delete_all", table); err != nil {
		return err
	}
	stored := g.tableRows(table)
	for id, row := range stored {
		if row[model.ColumnOwner] == owner {
			delete(stored, id)
		}
	}
	return nil
}

func (g *fakeGateway) callsFor(op, table string) []gatewayCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []gatewayCall
	for _, c := range g.calls {
		if c.op == op && (table == "" || c.table == table) {
			out = append(out, c)
		}
	}
	return out
}

func (g *fakeGateway) storedIDs(table string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	var ids []string
	for id := range g.tableRows(table) {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (g *fakeGateway) seed(table, owner string, ids ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	stored := g.tableRows(table)
	for _, id := range ids {
		stored[id] = model.Row{"id": id, model.ColumnOwner: owner}
	}
}
