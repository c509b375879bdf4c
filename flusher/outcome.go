package flusher

import (
	"github.com/samber/lo"

	"github.com/rudderlabs/rudder-telemetry/gaugedb"
)

// EventBatchResult is the transient record of one batch send attempt.
type EventBatchResult struct {
	// Success reports whether the send completed without error.
	Success bool
	// Events are the events that were attempted.
	Events []gaugedb.Event
	// Spec identifies the attempted event records in the store, for deletion.
	Spec gaugedb.FetchSpec
}

type outcomeKind int

const (
	// allSucceeded: every dispatched batch send succeeded. A cycle with zero
	// dispatched batches counts as allSucceeded, so empty obsolete rollups
	// still get cleaned up.
	allSucceeded outcomeKind = iota
	// allFailed: at least one batch was dispatched and every send failed.
	allFailed
	// mixed: at least one success and at least one failure.
	mixed
)

func (k outcomeKind) String() string {
	switch k {
	case allSucceeded:
		return "all_succeeded"
	case allFailed:
		return "all_failed"
	default:
		return "mixed"
	}
}

// flushOutcome is the classification of one flush cycle, carrying the
// partitioned batch-result sets.
type flushOutcome struct {
	kind      outcomeKind
	succeeded []EventBatchResult
	failed    []EventBatchResult
}

// classifyResults partitions the batch results of one cycle and derives the
// three-way outcome that drives the deletion cascade.
func classifyResults(results []EventBatchResult) flushOutcome {
	succeeded, failed := lo.FilterReject(results, func(r EventBatchResult, _ int) bool {
		return r.Success
	})
	o := flushOutcome{succeeded: succeeded, failed: failed}
	switch {
	case len(failed) == 0:
		o.kind = allSucceeded
	case len(succeeded) == 0:
		o.kind = allFailed
	default:
		o.kind = mixed
	}
	return o
}
