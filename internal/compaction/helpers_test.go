package compaction

import (
	"context"
	"fmt"
)

// memHandle is a JournalHandle backed by an in-memory file name.
type memHandle struct{ name string }

func (h *memHandle) Filename() string { return h.name }

// memRecord is one record inside a memStore file.
type memRecord struct {
	key   JournalKey
	value JournalValue
	crcOk bool
}

// memStore is a minimal in-memory JournalFileStore good enough to drive
// scorer, rewriter, and coordinator tests without touching a filesystem.
type memStore struct {
	files      map[string][]memRecord
	writers    map[string]*memWriter
	nextWriter int
	payload    int // fixed per-record payload size for scoring tests

	deleted []string
}

func newMemStore() *memStore {
	return &memStore{
		files:   map[string][]memRecord{},
		writers: map[string]*memWriter{},
		payload: 6,
	}
}

func (s *memStore) addFile(name string, records []memRecord) JournalHandle {
	s.files[name] = records
	return &memHandle{name: name}
}

func (s *memStore) Filename(h JournalHandle) string {
	return h.(*memHandle).name
}

func (s *memStore) GetPositions(_ context.Context, h JournalHandle, n int) ([]Position, error) {
	return s.GetAllPositions(context.Background(), h)
}

func (s *memStore) GetAllPositions(_ context.Context, h JournalHandle) ([]Position, error) {
	recs, ok := s.files[h.(*memHandle).name]
	if !ok {
		return nil, fmt.Errorf("no such file: %s", h.(*memHandle).name)
	}
	out := make([]Position, len(recs))
	for i := range recs {
		out[i] = Position(i)
	}
	return out, nil
}

func (s *memStore) DirectFetchKeySize(_ context.Context, h JournalHandle, positions []Position) ([]KeySize, error) {
	recs := s.files[h.(*memHandle).name]
	out := make([]KeySize, len(positions))
	for i, p := range positions {
		out[i] = KeySize{Key: recs[p].key, Size: s.payload + CRCSize}
	}
	return out, nil
}

func (s *memStore) DirectFetchKeyValueCheck(_ context.Context, h JournalHandle, positions []Position) ([]KeyValueCheck, error) {
	recs := s.files[h.(*memHandle).name]
	out := make([]KeyValueCheck, len(positions))
	for i, p := range positions {
		r := recs[p]
		out[i] = KeyValueCheck{Key: r.key, Value: r.value, CRCOk: r.crcOk}
	}
	return out, nil
}

type memWriter struct {
	store   *memStore
	name    string
	records []memRecord
}

func (s *memStore) OpenWriter(_ context.Context, opts WriterOptions) (WriterHandle, error) {
	s.nextWriter++
	name := fmt.Sprintf("%s-%d-%d.%s", opts.CompactionTag, opts.FirstSQNHint, s.nextWriter, FileExtension)
	w := &memWriter{store: s, name: name}
	s.writers[name] = w
	return w, nil
}

func (w *memWriter) Put(_ context.Context, key JournalKey, value JournalValue) (WriteResult, error) {
	w.records = append(w.records, memRecord{key: key, value: value, crcOk: true})
	return WriteOK, nil
}

func (w *memWriter) Complete(_ context.Context) (JournalHandle, error) {
	w.store.files[w.name] = w.records
	return &memHandle{name: w.name}, nil
}

func (s *memStore) OpenReader(_ context.Context, path string) (JournalHandle, error) {
	if _, ok := s.files[path]; !ok {
		return nil, fmt.Errorf("no such file: %s", path)
	}
	return &memHandle{name: path}, nil
}

func (s *memStore) FirstKey(_ context.Context, h JournalHandle) (JournalKey, error) {
	recs := s.files[h.(*memHandle).name]
	if len(recs) == 0 {
		return JournalKey{}, fmt.Errorf("empty file: %s", h.(*memHandle).name)
	}
	return recs[0].key, nil
}

func (s *memStore) DeletePending(_ context.Context, h JournalHandle, _ uint64, _ JournalController) error {
	s.deleted = append(s.deleted, h.(*memHandle).name)
	return nil
}

// memLedger is a snapshot mapping (ledger key, sqn) to liveness.
type memLedger map[LedgerKey]uint64

func (l memLedger) IsLive(key LedgerKey, sqn uint64) bool {
	return l[key] == sqn
}

func directFilter(ledger LedgerSnapshot, key LedgerKey, sqn uint64) bool {
	return ledger.IsLive(key, sqn)
}

// memController is a scriptable JournalController for coordinator tests.
type memController struct {
	manifest      ManifestSlice
	completeCalls int
	lastSlice     ManifestSlice
	lastConsumed  []ConsumedFile
	nextSQN       uint64
}

func (c *memController) GetManifest(_ context.Context) (ManifestSlice, error) {
	return c.manifest, nil
}

func (c *memController) UpdateManifest(_ context.Context, slice ManifestSlice, consumed []ConsumedFile) (uint64, error) {
	c.lastSlice = slice
	c.lastConsumed = consumed
	c.nextSQN++
	return c.nextSQN, nil
}

func (c *memController) CompactionComplete(_ context.Context) {
	c.completeCalls++
}

func s3Records() []memRecord {
	key1 := LedgerKey{Tag: "default", Key: "Key1"}
	key2 := LedgerKey{Tag: "default", Key: "Key2"}
	key3 := LedgerKey{Tag: "default", Key: "Key3"}

	mk := func(sqn uint64, lk LedgerKey, obj string) memRecord {
		var deltas []byte
		if lk.Key == "Key1" {
			deltas = []byte("deltas1")
		}
		return memRecord{
			key:   JournalKey{SQN: sqn, Kind: Standard, LedgerKey: lk},
			value: JournalValue{Object: []byte(obj), KeyDeltas: deltas},
			crcOk: true,
		}
	}

	return []memRecord{
		mk(1, key1, "Value1a"),
		mk(2, key2, "Value2"),
		mk(3, key3, "Value3"),
		mk(4, key1, "Value1b"),
		mk(5, key1, "Value1c"),
		mk(6, key1, "Value1d"),
		mk(7, key1, "Value1e"),
		mk(8, key1, "Value1f"),
	}
}

func s3Ledger() memLedger {
	return memLedger{
		{Tag: "default", Key: "Key1"}: 8,
		{Tag: "default", Key: "Key2"}: 2,
		{Tag: "default", Key: "Key3"}: 3,
	}
}
