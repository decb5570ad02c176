package reconcile

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/caseworks/casesync/errors"
	"github.com/caseworks/casesync/model"
)

const testOwner = "owner-1"

func testEngine(gw TableGateway) *Engine {
	return NewEngine(gw, Config{
		Retry: RetryPolicy{
			MaxAttempts:     3,
			InitialDelay:    time.Millisecond,
			MaxDelay:        2 * time.Millisecond,
			Multiplier:      2.0,
			ConstraintDelay: time.Millisecond,
		},
	}, nil, nil)
}

func fullSnapshot() *model.Snapshot {
	return &model.Snapshot{
		Families: []model.Family{{ID: "f1", Name: "Maria"}},
		Members:  []model.Member{{ID: "m1", FamilyID: "f1", Name: "Pedro"}},
		Visits:   []model.Visit{{ID: "v1", FamilyID: "f1", Volunteers: []string{"Carlos"}}},
		Deliveries: []model.Delivery{
			{ID: "d1", FamilyID: "f1", Status: model.StatusDelivered},
		},
	}
}

func TestDependencyOrdering(t *testing.T) {
	gw := newFakeGateway()
	engine := testEngine(gw)

	result := engine.Reconcile(context.Background(), fullSnapshot(), testOwner)
	if !result.Ok() {
		t.Fatalf("unexpected failures: %v", result.Failed)
	}

	var upsertOrder []string
	for _, c := range gw.callsFor("upsert", "") {
		upsertOrder = append(upsertOrder, c.table)
	}
	want := []string{model.TableFamilies, model.TableMembers, model.TableVisits, model.TableDeliveries}
	if len(upsertOrder) != len(want) {
		t.Fatalf("upsert calls = %v", upsertOrder)
	}
	for i := range want {
		if upsertOrder[i] != want[i] {
			t.Fatalf("upsert order = %v, want parents before children %v", upsertOrder, want)
		}
	}
}

func TestFamilyBatchCompletesBeforeMemberUpsert(t *testing.T) {
	gw := newFakeGateway()
	engine := testEngine(gw)
	engine.Reconcile(context.Background(), fullSnapshot(), testOwner)

	gw.mu.Lock()
	defer gw.mu.Unlock()
	familyDone := -1
	memberStart := -1
	for i, c := range gw.calls {
		if c.op == "upsert" && c.table == model.TableFamilies {
			familyDone = i
		}
		if c.op == "upsert" && c.table == model.TableMembers && memberStart == -1 {
			memberStart = i
		}
	}
	if familyDone == -1 || memberStart == -1 || familyDone > memberStart {
		t.Errorf("family upsert (call %d) must complete before member upsert (call %d)", familyDone, memberStart)
	}
}

func TestBatchPartitioning45Rows(t *testing.T) {
	snap := &model.Snapshot{}
	for i := 0; i < 45; i++ {
		snap.Deliveries = append(snap.Deliveries, model.Delivery{
			ID: string(rune('a'+i/26)) + string(rune('a'+i%26)), FamilyID: "f1",
		})
	}
	gw := newFakeGateway()
	engine := testEngine(gw)
	engine.Reconcile(context.Background(), snap, testOwner)

	calls := gw.callsFor("upsert", model.TableDeliveries)
	if len(calls) != 3 {
		t.Fatalf("45 rows produced %d batches, want 3", len(calls))
	}
	sizes := []int{calls[0].size, calls[1].size, calls[2].size}
	if sizes[0] != 20 || sizes[1] != 20 || sizes[2] != 5 {
		t.Errorf("batch sizes = %v, want [20 20 5]", sizes)
	}
}

func TestTimeoutScalesWithRecordCountOnly(t *testing.T) {
	engine := NewEngine(newFakeGateway(), Config{
		BaseTimeout:   10 * time.Second,
		TimeoutPerTen: 2 * time.Second,
		MaxTimeout:    30 * time.Second,
	}, nil, nil)

	tests := []struct {
		records int
		want    time.Duration
	}{
		{1, 10 * time.Second},
		{5, 10 * time.Second},
		{10, 12 * time.Second},
		{20, 14 * time.Second},
		{200, 30 * time.Second}, // capped
	}
	for _, tt := range tests {
		if got := engine.timeoutFor(tt.records); got != tt.want {
			t.Errorf("timeoutFor(%d) = %v, want %v", tt.records, got, tt.want)
		}
	}
}

func TestPartialFailureIsolation(t *testing.T) {
	gw := newFakeGateway()
	gw.failWith["upsert:visits"] = errors.NewTransient(errors.OpUpsert, "gateway", stderrors.New("boom"))
	engine := testEngine(gw)

	result := engine.Reconcile(context.Background(), fullSnapshot(), testOwner)

	if len(result.Failed) != 1 || result.Failed[0] != model.TableVisits {
		t.Fatalf("failed tables = %v, want [visits]", result.Failed)
	}
	if got := gw.storedIDs(model.TableDeliveries); len(got) != 1 || got[0] != "d1" {
		t.Errorf("deliveries not synced after visits failure: %v", got)
	}
}

func TestMissingTableIsSkippedNotFailed(t *testing.T) {
	gw := newFakeGateway()
	gw.failWith["upsert:visits"] = errors.NewMissingTable(errors.OpUpsert, "gateway", stderrors.New("42P01"))
	engine := testEngine(gw)

	result := engine.Reconcile(context.Background(), fullSnapshot(), testOwner)

	if len(result.Failed) != 0 {
		t.Errorf("missing table counted as failure: %v", result.Failed)
	}
	if len(result.Skipped) != 1 || result.Skipped[0] != model.TableVisits {
		t.Errorf("skipped = %v, want [visits]", result.Skipped)
	}
	if !result.Ok() {
		t.Error("run with only skipped tables should be Ok")
	}
}

func TestTransientUpsertRecoversWithinRetryBudget(t *testing.T) {
	gw := newFakeGateway()
	gw.failWith["upsert:families"] = errors.NewTimeout(errors.OpUpsert, "gateway", context.DeadlineExceeded)
	gw.failTimes["upsert:families"] = 2 // fail twice, then succeed
	engine := testEngine(gw)

	result := engine.Reconcile(context.Background(), fullSnapshot(), testOwner)

	if !result.Ok() {
		t.Fatalf("recovery within budget still failed: %v", result.Failed)
	}
	if calls := gw.callsFor("upsert", model.TableFamilies); len(calls) != 3 {
		t.Errorf("families upsert attempted %d times, want 3", len(calls))
	}
}

func TestDiffDeleteRemovesRemoteOnlyRows(t *testing.T) {
	gw := newFakeGateway()
	gw.seed(model.TableDeliveries, testOwner, "d1", "d2", "d3")
	engine := testEngine(gw)
	engine.EnableDeletes()

	snap := &model.Snapshot{Deliveries: []model.Delivery{{ID: "d1", FamilyID: "f1"}}}
	engine.Reconcile(context.Background(), snap, testOwner)

	deletes := gw.callsFor("delete", model.TableDeliveries)
	if len(deletes) != 1 {
		t.Fatalf("delete calls = %d, want 1", len(deletes))
	}
	if got := deletes[0].ids; len(got) != 2 || got[0] != "d2" || got[1] != "d3" {
		t.Errorf("deleted ids = %v, want [d2 d3]", got)
	}
	if got := gw.storedIDs(model.TableDeliveries); len(got) != 1 || got[0] != "d1" {
		t.Errorf("remote deliveries = %v, want [d1]", got)
	}
}

func TestEmptyCollectionTriggersFullClear(t *testing.T) {
	gw := newFakeGateway()
	gw.seed(model.TableDeliveries, testOwner, "d1", "d2")
	engine := testEngine(gw)
	engine.EnableDeletes()

	engine.Reconcile(context.Background(), &model.Snapshot{}, testOwner)

	if calls := gw.callsFor("delete_all", model.TableDeliveries); len(calls) != 1 {
		t.Fatalf("empty local collection should clear the remote table, got %d delete_all calls", len(calls))
	}
	if got := gw.storedIDs(model.TableDeliveries); len(got) != 0 {
		t.Errorf("remote deliveries not cleared: %v", got)
	}
}

func TestDeletePhaseWithheldBeforeInitialLoad(t *testing.T) {
	gw := newFakeGateway()
	gw.seed(model.TableDeliveries, testOwner, "d1", "d2")
	engine := testEngine(gw) // deletes not enabled

	engine.Reconcile(context.Background(), &model.Snapshot{}, testOwner)

	if calls := gw.callsFor("delete_all", ""); len(calls) != 0 {
		t.Error("full clear must be withheld until the initial remote load completes")
	}
	if calls := gw.callsFor("delete", ""); len(calls) != 0 {
		t.Error("diff deletes must be withheld until the initial remote load completes")
	}
	if got := gw.storedIDs(model.TableDeliveries); len(got) != 2 {
		t.Errorf("remote rows touched before load: %v", got)
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	gw := newFakeGateway()
	engine := testEngine(gw)
	engine.EnableDeletes()
	snap := fullSnapshot()

	engine.Reconcile(context.Background(), snap, testOwner)
	after1 := map[string][]string{}
	for _, table := range model.TablesInDependencyOrder() {
		after1[table] = gw.storedIDs(table)
	}

	engine.Reconcile(context.Background(), snap, testOwner)

	for _, table := range model.TablesInDependencyOrder() {
		after2 := gw.storedIDs(table)
		if len(after2) != len(after1[table]) {
			t.Errorf("table %s changed on identical re-reconcile: %v vs %v", table, after1[table], after2)
		}
	}
	if deletes := gw.callsFor("delete", ""); len(deletes) != 0 {
		t.Errorf("identical re-reconcile issued deletes: %v", deletes)
	}
}

func TestUpsertAttachesOwnerAndStripsNothingRequired(t *testing.T) {
	gw := newFakeGateway()
	engine := testEngine(gw)
	engine.Reconcile(context.Background(), fullSnapshot(), testOwner)

	gw.mu.Lock()
	row := gw.tableRows(model.TableMembers)["m1"]
	gw.mu.Unlock()
	if row[model.ColumnOwner] != testOwner {
		t.Errorf("upserted row missing owner: %v", row)
	}
	if row["family_id"] != "f1" {
		t.Errorf("upserted row missing family reference: %v", row)
	}
}
