package journalstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"journalclerk/internal/compaction"
	"journalclerk/pkg/listener"
)

// TipEntry is one record queued for the active tip file.
type TipEntry struct {
	Key   compaction.JournalKey
	Value compaction.JournalValue
}

// TipAppender serializes writes to the one journal file a manifest's
// caller keeps open for new records — the tip file RunJob always skips.
// Every entry is written, then fsynced, before the next is accepted, the
// same durability contract a write-ahead log gives its callers.
type TipAppender struct {
	*listener.Listener[TipEntry]

	store  *Store
	handle *Handle
	codec  compaction.Codec

	written int64

	inputCh chan TipEntry
	doneCh  chan uint64
}

// OpenTipAppender opens (or creates) the tip file for compactionTag under
// dir and starts its appender actor. If the file already holds records
// from a prior run, they're scanned so new positions append correctly.
func (s *Store) OpenTipAppender(dir, compactionTag string, codec compaction.Codec) (*TipAppender, error) {
	if dir == "" {
		dir = s.dir
	}
	handle, err := s.openOrCreateTip(dir, compactionTag)
	if err != nil {
		return nil, err
	}

	info, err := handle.file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat tip file %s: %w", handle.path, err)
	}

	t := &TipAppender{
		store:   s,
		handle:  handle,
		codec:   codec,
		written: info.Size(),
		inputCh: make(chan TipEntry, 3),
		doneCh:  make(chan uint64, 3),
	}
	t.Listener = listener.New(t.inputCh, t.writeEntry, t.stop)
	t.Start(context.Background())
	return t, nil
}

// Append enqueues a record for durable append. Fire-and-forget: the
// caller observes success via Done().
func (t *TipAppender) Append(key compaction.JournalKey, value compaction.JournalValue) {
	t.inputCh <- TipEntry{Key: key, Value: value}
}

// Done reports the SQN of each entry once it is durably on disk.
func (t *TipAppender) Done() <-chan uint64 {
	return t.doneCh
}

// Handle returns the tip file's JournalHandle, suitable for
// journalowner.Owner.Publish as the manifest's first (never-compacted)
// entry.
func (t *TipAppender) Handle() compaction.JournalHandle {
	return t.handle
}

func (t *TipAppender) writeEntry(entry TipEntry) error {
	rec, err := encodeRecord(t.codec, entry.Key, entry.Value)
	if err != nil {
		return fmt.Errorf("failed to encode tip entry sqn=%d: %w", entry.Key.SQN, err)
	}

	t.handle.mu.Lock()
	offset := t.written
	n, err := t.handle.file.WriteAt(rec, offset)
	if err == nil {
		err = t.handle.file.Sync()
	}
	if err == nil {
		t.written += int64(n)
		t.handle.positions = append(t.handle.positions, compaction.Position(offset))
	}
	t.handle.mu.Unlock()

	if err != nil {
		return fmt.Errorf("failed to append tip entry sqn=%d: %w", entry.Key.SQN, err)
	}

	t.doneCh <- entry.Key.SQN
	return nil
}

func (t *TipAppender) stop() {
	close(t.inputCh)
	close(t.doneCh)
}

func (s *Store) openOrCreateTip(dir, compactionTag string) (*Handle, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create journal directory %s: %w", dir, err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%s-tip.%s", compactionTag, compaction.FileExtension))

	s.mu.Lock()
	if h, ok := s.handles[path]; ok {
		s.mu.Unlock()
		return h, nil
	}
	s.mu.Unlock()

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open tip file %s: %w", path, err)
	}

	positions, err := scanPositions(file)
	if err != nil {
		return nil, fmt.Errorf("failed to scan existing tip file %s: %w", path, err)
	}

	handle := &Handle{path: path, file: file, positions: positions}
	s.registerHandle(handle)
	return handle, nil
}
