package compaction

// Decision is the per-record outcome of Classify.
type Decision int8

const (
	KeepOriginal Decision = iota
	KeepCompacted
	Drop
	Corrupt
)

// Record is one journal record as fetched from the source file, ready for
// classification.
type Record struct {
	Key   JournalKey
	Value JournalValue
	CRCOk bool
}

// Classify applies the retention decision table, rows evaluated in
// order. Tombstones are never removed by this core regardless of
// strategy or ledger state: a superseded tombstone is not routed
// through filterFn or the strategy switch at all, since neither is
// trusted to preserve it on its own. A stale record whose tag has no
// entry in strategies is dropped.
func Classify(
	rec Record,
	strategies ReloadStrategy,
	ledger LedgerSnapshot,
	filterFn FilterFunc,
	maxSQN uint64,
) Decision {
	if !rec.CRCOk {
		return Corrupt
	}
	if rec.Key.Kind == Tombstone {
		return KeepOriginal
	}

	sqn := rec.Key.SQN
	ledgerKey := rec.Key.LedgerKey
	keyValid := filterFn(ledger, ledgerKey, sqn)
	beyondHorizon := sqn > maxSQN

	if keyValid {
		return KeepOriginal
	}
	if beyondHorizon {
		return KeepOriginal
	}

	strategy, known := strategies[ledgerKey.Tag]
	if !known {
		return Drop
	}

	switch strategy {
	case Retain:
		return KeepCompacted
	case Recalc, Recovr:
		return Drop
	}
	return Drop
}
