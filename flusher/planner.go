package flusher

// batchIterations returns how many fetch/send iterations are needed to drain
// eventCount events in batches of at most perBatchLimit, i.e. the ceiling of
// eventCount/perBatchLimit. Zero events need zero iterations. The caller
// guarantees perBatchLimit > 0.
func batchIterations(eventCount, perBatchLimit int) int {
	if eventCount <= 0 {
		return 0
	}
	return (eventCount + perBatchLimit - 1) / perBatchLimit
}
