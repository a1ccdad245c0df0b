package journalstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"

	"journalclerk/internal/compaction"
)

// HashTable is a positional index over one journal file's ledger keys.
// It is unrelated to compaction scoring or rewriting — it exists purely
// to back the clerk's hashtable_calc request.
type HashTable struct {
	mu      sync.RWMutex
	buckets map[uint64][]compaction.Position
}

// NewHashTable returns an empty index.
func NewHashTable() *HashTable {
	return &HashTable{buckets: map[uint64][]compaction.Position{}}
}

func hashLedgerKey(lk compaction.LedgerKey) uint64 {
	d := xxhash.New()
	d.WriteString(string(lk.Tag))
	d.Write([]byte{0})
	d.WriteString(lk.Key)
	return d.Sum64()
}

// Lookup returns every position recorded for a ledger key.
func (h *HashTable) Lookup(lk compaction.LedgerKey) []compaction.Position {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]compaction.Position(nil), h.buckets[hashLedgerKey(lk)]...)
}

func (h *HashTable) insert(lk compaction.LedgerKey, pos compaction.Position) {
	h.mu.Lock()
	defer h.mu.Unlock()
	key := hashLedgerKey(lk)
	h.buckets[key] = append(h.buckets[key], pos)
}

// Size reports how many buckets currently hold at least one position.
func (h *HashTable) Size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.buckets)
}

// BuildHashTable computes, or incrementally extends, a HashTable for one
// sealed journal file. Positions strictly before startPos are assumed
// already indexed and are skipped, so a Clerk can pass back a
// previously-returned table to extend it after an append.
//
// Signature matches clerk.HashtableCalcRequest.Compute exactly so it can
// be wired in directly: `Compute: store.BuildHashTable`.
func (s *Store) BuildHashTable(hashTree any, startPos compaction.Position, cdb compaction.JournalHandle) (any, error) {
	table, _ := hashTree.(*HashTable)
	if table == nil {
		table = NewHashTable()
	}

	handle, ok := cdb.(*Handle)
	if !ok {
		return nil, fmt.Errorf("journalstore: hashtable_calc requires a *journalstore.Handle, got %T", cdb)
	}

	positions, err := s.GetAllPositions(context.Background(), handle)
	if err != nil {
		return nil, fmt.Errorf("journalstore: failed to enumerate positions for hashtable_calc: %w", err)
	}

	for _, pos := range positions {
		if pos < startPos {
			continue
		}
		key, _, _, _, err := decodeRecordAt(handle.file, int64(pos))
		if err != nil {
			return nil, fmt.Errorf("journalstore: failed to read record at %d during hashtable_calc: %w", pos, err)
		}
		table.insert(key.LedgerKey, pos)
	}

	return table, nil
}
