package reconcile

import "time"

// Collector receives observability events from the engine. Sync
// failures never block or crash the caller, so metrics and logs are the
// only way they surface.
type Collector interface {
	// RecordRun reports a finished reconciliation run and how many
	// tables failed in it.
	RecordRun(d time.Duration, failedTables int)

	// RecordBatch reports one remote batch request ("upsert" or
	// "delete") and its size.
	RecordBatch(table, op string, size int)

	// RecordRetries reports extra attempts spent on one batch.
	RecordRetries(table, op string, retries int)

	// RecordTableFailure reports a table whose retries were exhausted.
	RecordTableFailure(table string)

	// RecordTableSkipped reports a table skipped because the remote
	// relation is not provisioned.
	RecordTableSkipped(table string)
}

// NoOpCollector discards all events.
type NoOpCollector struct{}

func (NoOpCollector) RecordRun(d time.Duration, failedTables int)      {}
func (NoOpCollector) RecordBatch(table, op string, size int)           {}
func (NoOpCollector) RecordRetries(table, op string, retries int)      {}
func (NoOpCollector) RecordTableFailure(table string)                  {}
func (NoOpCollector) RecordTableSkipped(table string)                  {}
