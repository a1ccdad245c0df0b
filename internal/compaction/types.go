package compaction

import "context"

// RecordKind distinguishes the three journal record shapes.
type RecordKind int8

const (
	Standard RecordKind = iota
	Tombstone
	KeyDeltas
)

// StrategyKind is the small closed sum driving per-tag retention:
// implemented as a tagged variant matched in the filter, not through
// virtual dispatch or string keys.
type StrategyKind int8

const (
	Retain StrategyKind = iota
	Recalc
	Recovr
)

// Tag classifies a ledger key for reload-strategy lookup.
type Tag string

// LedgerKey carries a tag alongside whatever the ledger uses to identify a
// user key.
type LedgerKey struct {
	Tag Tag
	Key string
}

// JournalKey identifies one journal record.
type JournalKey struct {
	SQN       uint64
	Kind      RecordKind
	LedgerKey LedgerKey
}

// JournalValue is the decoded payload of a journal record. Which fields
// are meaningful depends on the owning JournalKey.Kind: a Standard record
// carries the object and its key deltas, a KeyDeltas record only the
// deltas, and a Tombstone neither.
type JournalValue struct {
	Object    []byte
	KeyDeltas []byte
}

// ReloadStrategy maps a tag to its retention policy.
type ReloadStrategy map[Tag]StrategyKind

// JournalHandle is an opaque reference to a journal file, managed entirely
// outside this package: the core never walks a graph through it and never
// stores back-pointers.
type JournalHandle interface {
	Filename() string
}

// Candidate describes one journal file eligible for compaction.
type Candidate struct {
	LowSQN         uint64
	Filename       string
	Journal        JournalHandle
	CompactionPerc float64
}

// ManifestEntry is one line of the manifest: a live journal file and the
// smallest SQN it holds.
type ManifestEntry struct {
	StartSQN uint64
	Filename string
	Reader   JournalHandle
}

// ManifestSlice is the ordered manifest delta a job produces.
type ManifestSlice []ManifestEntry

// ConsumedFile is a source file the coordinator asks the controller to
// schedule for deletion once compaction succeeds.
type ConsumedFile struct {
	LowSQN   uint64
	Filename string
	Handle   JournalHandle
}

// Position is an opaque record locator inside a journal file, produced and
// consumed only by the JournalFileStore implementation.
type Position uint64

// KeySize is the (key, size) shape used when scoring: the scorer never
// needs the value, only enough to classify live/replaced and to know the
// record's on-disk footprint.
type KeySize struct {
	Key  JournalKey
	Size int
}

// KeyValueCheck is the (key, value, crc_ok) shape the rewriter fetches
// batches of during rewrite.
type KeyValueCheck struct {
	Key   JournalKey
	Value JournalValue
	CRCOk bool
}

// FilterFunc reports whether the ledger still records exactly this
// (ledger_key, sqn) pair — true iff the record is still the live one.
type FilterFunc func(ledger LedgerSnapshot, key LedgerKey, sqn uint64) bool

// LedgerSnapshot is the ground truth of "is this record still live",
// snapshotted once per job by the caller's initiate function.
type LedgerSnapshot interface {
	IsLive(key LedgerKey, sqn uint64) bool
}

// WriterOptions configures a new destination file. FirstSQNHint lets the
// file store encode the destination's starting SQN plus a compaction
// marker into its filename.
type WriterOptions struct {
	Dir           string
	MaxSizeBytes  int64
	CompactionTag string
	FirstSQNHint  uint64
}

// WriteResult reports the outcome of a single mput call.
type WriteResult int8

const (
	WriteOK WriteResult = iota
	WriteRoll
)

// WriterHandle is a destination file mid-rewrite: open for append, not yet
// sealed.
type WriterHandle interface {
	Put(ctx context.Context, key JournalKey, value JournalValue) (WriteResult, error)
	Complete(ctx context.Context) (JournalHandle, error)
}

// JournalFileStore is the append-only file format and its hash-table
// index — out of scope for this core, consumed only through this
// interface.
type JournalFileStore interface {
	Filename(h JournalHandle) string
	GetPositions(ctx context.Context, h JournalHandle, n int) ([]Position, error)
	GetAllPositions(ctx context.Context, h JournalHandle) ([]Position, error)
	DirectFetchKeySize(ctx context.Context, h JournalHandle, positions []Position) ([]KeySize, error)
	DirectFetchKeyValueCheck(ctx context.Context, h JournalHandle, positions []Position) ([]KeyValueCheck, error)
	OpenWriter(ctx context.Context, opts WriterOptions) (WriterHandle, error)
	OpenReader(ctx context.Context, path string) (JournalHandle, error)
	FirstKey(ctx context.Context, h JournalHandle) (JournalKey, error)
	DeletePending(ctx context.Context, h JournalHandle, manifestSQN uint64, controller JournalController) error
}

// JournalController serializes manifest updates — the journal owner, out
// of scope for this core.
type JournalController interface {
	GetManifest(ctx context.Context) (ManifestSlice, error)
	UpdateManifest(ctx context.Context, slice ManifestSlice, consumed []ConsumedFile) (uint64, error)
	CompactionComplete(ctx context.Context)
}

// Codec is the compact/decode boundary between the on-disk journal value
// and the in-memory JournalValue. Unlike the file store, controller, and
// ledger, it has no independent state or lifecycle, so it gets a default
// implementation in this package rather than a separate stand-in package.
type Codec interface {
	CompactInkerKVC(kvc KeyValueCheck, strategy StrategyKind) (skip bool, compacted KeyValueCheck, err error)
	FromJournalKey(key JournalKey) (sqn uint64, ledgerKey LedgerKey)
	CreateValueForJournal(value JournalValue) ([]byte, error)
}
