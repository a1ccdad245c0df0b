// Package ledger is a demo compaction.LedgerSnapshot backed by a
// concurrent skip list, standing in for the external ledger oracle that a
// real deployment would query out-of-process.
package ledger

import (
	"github.com/zhangyunhao116/skipmap"

	"journalclerk/internal/compaction"
)

func encodeKey(key compaction.LedgerKey) string {
	return string(key.Tag) + "\x00" + key.Key
}

// LiveIndex tracks, per ledger key, the SQN of the record currently
// considered live. It is safe for concurrent use: writers keep it updated
// as new versions land, while a compaction job reads a point-in-time
// Snapshot of it.
type LiveIndex struct {
	m *skipmap.StringMap[uint64]
}

// New returns an empty LiveIndex.
func New() *LiveIndex {
	return &LiveIndex{m: skipmap.NewString[uint64]()}
}

// Set records sqn as the current live version of key, superseding
// whatever was live before. Deleting a key is Set with the tombstone's
// own SQN: the ledger keeps mapping the key to that SQN until some
// external process (outside compaction) decides to forget it, which is
// what lets a live tombstone survive compaction through the ordinary
// liveness check rather than a special case.
func (l *LiveIndex) Set(key compaction.LedgerKey, sqn uint64) {
	l.m.Store(encodeKey(key), sqn)
}

// Delete removes a key from the ledger entirely, meaning no future SQN
// for it will ever be reported live again.
func (l *LiveIndex) Delete(key compaction.LedgerKey) {
	l.m.Delete(encodeKey(key))
}

// IsLive satisfies compaction.LedgerSnapshot against the current state of
// the index directly (no snapshot isolation).
func (l *LiveIndex) IsLive(key compaction.LedgerKey, sqn uint64) bool {
	v, ok := l.m.Load(encodeKey(key))
	return ok && v == sqn
}

// Len reports the number of distinct keys currently tracked.
func (l *LiveIndex) Len() int {
	return l.m.Len()
}

// Snapshot copies the current state of the index into an immutable view
// suitable for handing to a single compaction job: the ledger oracle is
// queried through a snapshot taken once at job start, so a run's
// liveness decisions can't shift under it mid-job.
func (l *LiveIndex) Snapshot() compaction.LedgerSnapshot {
	frozen := make(frozenSnapshot, l.m.Len())
	l.m.Range(func(key string, value uint64) bool {
		frozen[key] = value
		return true
	})
	return frozen
}

type frozenSnapshot map[string]uint64

func (f frozenSnapshot) IsLive(key compaction.LedgerKey, sqn uint64) bool {
	v, ok := f[encodeKey(key)]
	return ok && v == sqn
}
