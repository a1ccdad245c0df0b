package journalowner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"journalclerk/internal/compaction"
)

// persistedEntry is the on-disk shape of one manifest line: only enough
// to reopen the file through the store on load, since JournalHandle
// itself isn't serializable.
type persistedEntry struct {
	StartSQN uint64 `json:"start_sqn"`
	Filename string `json:"filename"`
}

type manifestData struct {
	SQN     uint64           `json:"sqn"`
	Entries []persistedEntry `json:"entries"`
}

// Owner is a demo implementation of compaction.JournalController: a
// JSON-persisted manifest file guarded by a mutex, atomically swapped in
// memory and resaved on every update.
type Owner struct {
	mu       sync.Mutex
	filePath string
	store    compaction.JournalFileStore

	sqn     uint64
	entries []persistedEntry
}

// New loads (or initializes) a manifest under dir. store is used to
// reopen file handles for entries loaded back from disk.
func New(dir string, store compaction.JournalFileStore) (*Owner, error) {
	o := &Owner{
		filePath: filepath.Join(dir, "JOURNAL_MANIFEST.json"),
		store:    store,
	}

	if _, err := os.Stat(o.filePath); os.IsNotExist(err) {
		if err := o.save(); err != nil {
			return nil, fmt.Errorf("failed to initialize manifest: %w", err)
		}
		return o, nil
	}

	data, err := os.ReadFile(o.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var parsed manifestData
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	o.sqn = parsed.SQN
	o.entries = parsed.Entries
	return o, nil
}

func (o *Owner) save() error {
	if err := os.MkdirAll(filepath.Dir(o.filePath), 0750); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}
	data, err := json.MarshalIndent(manifestData{SQN: o.sqn, Entries: o.entries}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(o.filePath, data, 0600); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// Publish appends (or replaces, by filename) a manifest entry directly —
// used to seed the active write-tip file outside of any compaction job.
func (o *Owner) Publish(startSQN uint64, filename string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	for i, e := range o.entries {
		if e.Filename == filename {
			o.entries[i] = persistedEntry{StartSQN: startSQN, Filename: filename}
			o.sortLocked()
			return o.save()
		}
	}
	o.entries = append(o.entries, persistedEntry{StartSQN: startSQN, Filename: filename})
	o.sortLocked()
	return o.save()
}

func (o *Owner) sortLocked() {
	sort.Slice(o.entries, func(i, j int) bool { return o.entries[i].StartSQN < o.entries[j].StartSQN })
}

// GetManifest satisfies compaction.JournalController.
func (o *Owner) GetManifest(ctx context.Context) (compaction.ManifestSlice, error) {
	o.mu.Lock()
	entries := append([]persistedEntry(nil), o.entries...)
	o.mu.Unlock()

	slice := make(compaction.ManifestSlice, len(entries))
	for i, e := range entries {
		handle, err := o.store.OpenReader(ctx, e.Filename)
		if err != nil {
			return nil, fmt.Errorf("failed to open manifest entry %s: %w", e.Filename, err)
		}
		slice[i] = compaction.ManifestEntry{StartSQN: e.StartSQN, Filename: e.Filename, Reader: handle}
	}
	return slice, nil
}

// UpdateManifest satisfies compaction.JournalController: it replaces the
// consumed files with the rewrite's manifest slice in a single
// in-memory swap, then persists and bumps the manifest sqn.
func (o *Owner) UpdateManifest(_ context.Context, slice compaction.ManifestSlice, consumed []compaction.ConsumedFile) (uint64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	consumedNames := make(map[string]bool, len(consumed))
	for _, c := range consumed {
		consumedNames[c.Filename] = true
	}

	kept := o.entries[:0:0]
	for _, e := range o.entries {
		if !consumedNames[e.Filename] {
			kept = append(kept, e)
		}
	}
	for _, e := range slice {
		kept = append(kept, persistedEntry{StartSQN: e.StartSQN, Filename: e.Filename})
	}
	o.entries = kept
	o.sortLocked()
	o.sqn++

	if err := o.save(); err != nil {
		return 0, fmt.Errorf("failed to persist manifest update: %w", err)
	}
	return o.sqn, nil
}

// CompactionComplete satisfies compaction.JournalController.
func (o *Owner) CompactionComplete(_ context.Context) {
	slog.Info("journalowner: compaction job complete")
}
