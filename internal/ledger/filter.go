package ledger

import "journalclerk/internal/compaction"

// DefaultFilterFunc reports liveness by direct lookup in the snapshot
// passed to it. It is the compaction.FilterFunc a caller wires against a
// LiveIndex-backed ledger. It carries no record-kind information — a
// live tombstone still passes because its key still maps to that
// tombstone's own SQN — but a superseded tombstone is never routed
// through this function at all: Classify keeps every tombstone by
// record kind before filterFn is ever consulted.
func DefaultFilterFunc(snapshot compaction.LedgerSnapshot, key compaction.LedgerKey, sqn uint64) bool {
	return snapshot.IsLive(key, sqn)
}

// Initiate adapts a LiveIndex into a compaction.InitiateFunc: it takes a
// snapshot of the index and reports the caller-supplied compaction
// horizon unchanged. maxSQN is fixed at construction because this demo
// ledger has no independent notion of "how far the writer has flushed" —
// a real ledger oracle would derive it from its own commit point.
func Initiate(index *LiveIndex, maxSQN uint64) compaction.InitiateFunc {
	return func(any) (compaction.LedgerSnapshot, uint64, error) {
		return index.Snapshot(), maxSQN, nil
	}
}
