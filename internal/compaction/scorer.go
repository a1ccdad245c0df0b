package compaction

import (
	"context"
	"log/slog"
)

// Score samples up to sampleSize record positions from file in batches of
// batchSize, reading at most BatchesToCheck batches, classifies each
// sampled record as live or replaced, and returns the fraction of sampled
// payload bytes still live as a percentage in [0, 100]. Lower is a better
// compaction candidate.
//
// A transient I/O error on the source is not surfaced: the file is scored
// 100.0 (worst candidate) so the job keeps making forward progress.
func Score(
	ctx context.Context,
	store JournalFileStore,
	file JournalHandle,
	filter FilterFunc,
	ledger LedgerSnapshot,
	maxSQN uint64,
	sampleSize, batchSize int,
) float64 {
	positions, err := store.GetPositions(ctx, file, sampleSize)
	if err != nil {
		slog.Warn("scorer: failed to enumerate positions, scoring worst-case",
			"file", store.Filename(file), "error", err)
		return 100.0
	}

	var live, replaced float64

	for batchNum, start := 0, 0; start < len(positions) && batchNum < BatchesToCheck; batchNum, start = batchNum+1, start+batchSize {
		end := min(start+batchSize, len(positions))

		batch, err := store.DirectFetchKeySize(ctx, file, positions[start:end])
		if err != nil {
			slog.Warn("scorer: batch fetch failed, scoring worst-case",
				"file", store.Filename(file), "error", err)
			return 100.0
		}

		for _, ks := range batch {
			payload := float64(ks.Size - CRCSize)
			if payload < 0 {
				payload = 0
			}
			isLive := filter(ledger, ks.Key.LedgerKey, ks.Key.SQN) || ks.Key.SQN > maxSQN
			if isLive {
				live += payload
			} else {
				replaced += payload
			}
		}
	}

	if live+replaced == 0 {
		// Empty sample: nothing to reclaim, so nothing is worth compacting
		// here. This sentinel is deliberate, not inverted.
		return 100.0
	}

	return 100.0 * live / (live + replaced)
}
