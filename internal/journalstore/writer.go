package journalstore

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"journalclerk/internal/compaction"
)

// Writer is a destination journal file mid-rewrite. It rejects a Put
// that would push a non-empty file past MaxSizeBytes (returning WriteRoll
// without writing) rather than accepting it and rolling after the fact —
// the rewriter depends on this to retry the record against a fresh
// destination. The first record of a file is always written, whatever
// its size.
type Writer struct {
	store   *Store
	path    string
	file    *os.File
	bufw    *bufio.Writer
	codec   compaction.Codec
	maxSize int64
	written int64
}

func newWriter(store *Store, path string, file *os.File, maxSize int64) *Writer {
	return &Writer{
		store:   store,
		path:    path,
		file:    file,
		bufw:    bufio.NewWriter(file),
		codec:   compaction.NewCodec(),
		maxSize: maxSize,
	}
}

func (w *Writer) Put(_ context.Context, key compaction.JournalKey, value compaction.JournalValue) (compaction.WriteResult, error) {
	rec, err := encodeRecord(w.codec, key, value)
	if err != nil {
		return 0, fmt.Errorf("failed to encode record sqn=%d: %w", key.SQN, err)
	}

	if w.maxSize > 0 && w.written > 0 && w.written+int64(len(rec)) > w.maxSize {
		return compaction.WriteRoll, nil
	}

	if _, err := w.bufw.Write(rec); err != nil {
		return 0, fmt.Errorf("failed to write record sqn=%d to %s: %w", key.SQN, w.path, err)
	}
	w.written += int64(len(rec))
	return compaction.WriteOK, nil
}

func (w *Writer) Complete(_ context.Context) (compaction.JournalHandle, error) {
	if err := w.bufw.Flush(); err != nil {
		return nil, fmt.Errorf("failed to flush %s: %w", w.path, err)
	}
	if err := w.file.Sync(); err != nil {
		return nil, fmt.Errorf("failed to sync %s: %w", w.path, err)
	}
	if err := w.file.Close(); err != nil {
		return nil, fmt.Errorf("failed to close %s: %w", w.path, err)
	}

	reopened, err := os.Open(w.path)
	if err != nil {
		return nil, fmt.Errorf("failed to reopen sealed file %s: %w", w.path, err)
	}

	positions, err := scanPositions(reopened)
	if err != nil {
		reopened.Close()
		return nil, fmt.Errorf("failed to index sealed file %s: %w", w.path, err)
	}

	h := &Handle{path: w.path, file: reopened, positions: positions}
	w.store.registerHandle(h)
	return h, nil
}
