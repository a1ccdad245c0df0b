package compaction

import (
	"context"
	"fmt"
	"log/slog"

	"journalclerk/pkg/dberrors"
)

// RewriteParams bundles the immutable inputs to a single rewrite call.
type RewriteParams struct {
	Store      JournalFileStore
	Codec      Codec
	WriterOpts WriterOptions
	FilterFn   FilterFunc
	Ledger     LedgerSnapshot
	MaxSQN     uint64
	Strategies ReloadStrategy
}

// Rewrite streams records out of every source file in run through the
// Filter, applies the reload strategy to survivors, and writes them into
// one or more destination files, rolling over on the file store's size
// signal. It returns the resulting manifest slice and the job-wide
// prompt_delete flag.
func Rewrite(ctx context.Context, run []Candidate, p RewriteParams) (ManifestSlice, bool, error) {
	var slice ManifestSlice
	promptDelete := true
	var active WriterHandle

	sealActive := func() error {
		if active == nil {
			return nil
		}
		reader, err := active.Complete(ctx)
		active = nil
		if err != nil {
			return fmt.Errorf("failed to seal destination: %w: %w", err, dberrors.ErrWriteFailed)
		}
		firstKey, err := p.Store.FirstKey(ctx, reader)
		if err != nil {
			return fmt.Errorf("failed to read sealed destination's first key: %w", err)
		}
		slice = append(slice, ManifestEntry{
			StartSQN: firstKey.SQN,
			Filename: p.Store.Filename(reader),
			Reader:   reader,
		})
		return nil
	}

	for _, source := range run {
		positions, err := p.Store.GetAllPositions(ctx, source.Journal)
		if err != nil {
			return nil, false, fmt.Errorf("failed to enumerate positions for %s: %w: %w", source.Filename, err, dberrors.ErrWriteFailed)
		}

		for start := 0; start < len(positions); start += BatchSize {
			end := min(start+BatchSize, len(positions))

			batch, err := p.Store.DirectFetchKeyValueCheck(ctx, source.Journal, positions[start:end])
			if err != nil {
				return nil, false, fmt.Errorf("failed to fetch batch from %s: %w: %w", source.Filename, err, dberrors.ErrWriteFailed)
			}

			survivors, keptDelete := classifyBatch(batch, p)
			if !keptDelete {
				promptDelete = false
			}

			for _, kvc := range survivors {
				if active == nil {
					opts := p.WriterOpts
					opts.FirstSQNHint = kvc.Key.SQN
					active, err = p.Store.OpenWriter(ctx, opts)
					if err != nil {
						return nil, false, fmt.Errorf("failed to open destination: %w: %w", err, dberrors.ErrWriteFailed)
					}
				}

				result, err := active.Put(ctx, kvc.Key, kvc.Value)
				if err != nil {
					return nil, false, fmt.Errorf("failed to write survivor sqn=%d: %w: %w", kvc.Key.SQN, err, dberrors.ErrWriteFailed)
				}
				if result == WriteRoll {
					if err := sealActive(); err != nil {
						return nil, false, err
					}
					// Re-open a fresh destination for this same survivor.
					opts := p.WriterOpts
					opts.FirstSQNHint = kvc.Key.SQN
					active, err = p.Store.OpenWriter(ctx, opts)
					if err != nil {
						return nil, false, fmt.Errorf("failed to open destination after roll: %w: %w", err, dberrors.ErrWriteFailed)
					}
					if _, err := active.Put(ctx, kvc.Key, kvc.Value); err != nil {
						return nil, false, fmt.Errorf("failed to write survivor sqn=%d after roll: %w: %w", kvc.Key.SQN, err, dberrors.ErrWriteFailed)
					}
				}
			}
		}
	}

	if err := sealActive(); err != nil {
		return nil, false, err
	}

	return slice, promptDelete, nil
}

// classifyBatch runs the Filter over one fetched batch, applies the
// codec's strategy rewrite to KeepCompacted survivors, and reports
// whether deletion may still proceed (false if any record was corrupt).
func classifyBatch(batch []KeyValueCheck, p RewriteParams) ([]KeyValueCheck, bool) {
	survivors := make([]KeyValueCheck, 0, len(batch))
	keptDelete := true

	for _, kvc := range batch {
		rec := Record{Key: kvc.Key, Value: kvc.Value, CRCOk: kvc.CRCOk}
		strategy := p.Strategies[kvc.Key.LedgerKey.Tag]

		switch Classify(rec, p.Strategies, p.Ledger, p.FilterFn, p.MaxSQN) {
		case Corrupt:
			keptDelete = false
			slog.Warn("rewriter: dropping corrupt record", "sqn", kvc.Key.SQN, "error", dberrors.ErrCorruptRecord)
		case Drop:
			// nothing survives
		case KeepOriginal:
			survivors = append(survivors, kvc)
		case KeepCompacted:
			skip, compacted, err := p.Codec.CompactInkerKVC(kvc, strategy)
			if err != nil {
				slog.Warn("rewriter: codec failed to compact record, dropping", "sqn", kvc.Key.SQN, "error", err)
				continue
			}
			if !skip {
				survivors = append(survivors, compacted)
			}
		}
	}

	return survivors, keptDelete
}
