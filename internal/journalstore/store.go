package journalstore

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"journalclerk/internal/compaction"
)

// Handle is a journal file, either mid-write or sealed for reading.
// Positions are cached once computed since files are immutable once
// sealed.
type Handle struct {
	path string

	mu        sync.Mutex
	file      *os.File
	positions []compaction.Position
}

// Filename satisfies compaction.JournalHandle.
func (h *Handle) Filename() string { return h.path }

// Store is a demo on-disk journal file store: length-prefixed,
// CRC32-checked records, one file per journal segment, extension "cdb".
// It implements compaction.JournalFileStore.
type Store struct {
	dir string

	mu      sync.Mutex
	handles map[string]*Handle
	nextSeq int
}

// New returns a Store rooted at dir. dir is created lazily by OpenWriter.
func New(dir string) *Store {
	return &Store{
		dir:     dir,
		handles: map[string]*Handle{},
	}
}

func (s *Store) Filename(h compaction.JournalHandle) string {
	return h.(*Handle).path
}

func (s *Store) GetAllPositions(_ context.Context, h compaction.JournalHandle) ([]compaction.Position, error) {
	handle := h.(*Handle)
	handle.mu.Lock()
	defer handle.mu.Unlock()

	if handle.positions == nil {
		positions, err := scanPositions(handle.file)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", handle.path, err)
		}
		handle.positions = positions
	}
	return append([]compaction.Position(nil), handle.positions...), nil
}

// GetPositions returns an evenly-strided sample of n positions, or every
// position if n is at least the file's record count.
func (s *Store) GetPositions(ctx context.Context, h compaction.JournalHandle, n int) ([]compaction.Position, error) {
	all, err := s.GetAllPositions(ctx, h)
	if err != nil {
		return nil, err
	}
	if n <= 0 || n >= len(all) {
		return all, nil
	}

	out := make([]compaction.Position, 0, n)
	step := float64(len(all)) / float64(n)
	for i := 0; i < n; i++ {
		idx := int(float64(i) * step)
		if idx >= len(all) {
			idx = len(all) - 1
		}
		out = append(out, all[idx])
	}
	return out, nil
}

func (s *Store) DirectFetchKeySize(_ context.Context, h compaction.JournalHandle, positions []compaction.Position) ([]compaction.KeySize, error) {
	handle := h.(*Handle)
	out := make([]compaction.KeySize, 0, len(positions))
	for _, pos := range positions {
		key, _, _, size, err := decodeRecordAt(handle.file, int64(pos))
		if err != nil {
			return nil, fmt.Errorf("failed to read record at %d in %s: %w", pos, handle.path, err)
		}
		out = append(out, compaction.KeySize{Key: key, Size: size})
	}
	return out, nil
}

func (s *Store) DirectFetchKeyValueCheck(_ context.Context, h compaction.JournalHandle, positions []compaction.Position) ([]compaction.KeyValueCheck, error) {
	handle := h.(*Handle)
	out := make([]compaction.KeyValueCheck, 0, len(positions))
	for _, pos := range positions {
		key, value, crcOk, _, err := decodeRecordAt(handle.file, int64(pos))
		if err != nil {
			return nil, fmt.Errorf("failed to read record at %d in %s: %w", pos, handle.path, err)
		}
		out = append(out, compaction.KeyValueCheck{Key: key, Value: value, CRCOk: crcOk})
	}
	return out, nil
}

func (s *Store) OpenWriter(_ context.Context, opts compaction.WriterOptions) (compaction.WriterHandle, error) {
	dir := opts.Dir
	if dir == "" {
		dir = s.dir
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create journal directory %s: %w", dir, err)
	}

	s.mu.Lock()
	s.nextSeq++
	seq := s.nextSeq
	s.mu.Unlock()

	name := fmt.Sprintf("%s-%020d-%d.%s", opts.CompactionTag, opts.FirstSQNHint, seq, compaction.FileExtension)
	path := filepath.Join(dir, name)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to create journal file %s: %w", path, err)
	}

	return newWriter(s, path, file, opts.MaxSizeBytes), nil
}

func (s *Store) OpenReader(_ context.Context, path string) (compaction.JournalHandle, error) {
	s.mu.Lock()
	if h, ok := s.handles[path]; ok {
		s.mu.Unlock()
		return h, nil
	}
	s.mu.Unlock()

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal file %s: %w", path, err)
	}

	h := &Handle{path: path, file: file}
	s.mu.Lock()
	s.handles[path] = h
	s.mu.Unlock()
	return h, nil
}

func (s *Store) FirstKey(_ context.Context, h compaction.JournalHandle) (compaction.JournalKey, error) {
	handle := h.(*Handle)
	key, _, _, _, err := decodeRecordAt(handle.file, 0)
	if err != nil {
		return compaction.JournalKey{}, fmt.Errorf("failed to read first key of %s: %w", handle.path, err)
	}
	return key, nil
}

func (s *Store) DeletePending(_ context.Context, h compaction.JournalHandle, manifestSQN uint64, _ compaction.JournalController) error {
	handle := h.(*Handle)
	slog.Info("journalstore: scheduling source file for deletion", "file", handle.path, "manifest_sqn", manifestSQN)

	handle.mu.Lock()
	closeErr := handle.file.Close()
	handle.mu.Unlock()
	if closeErr != nil {
		slog.Warn("journalstore: failed to close file before deletion", "file", handle.path, "error", closeErr)
	}

	s.mu.Lock()
	delete(s.handles, handle.path)
	s.mu.Unlock()

	if err := os.Remove(handle.path); err != nil {
		return fmt.Errorf("failed to remove %s: %w", handle.path, err)
	}
	return nil
}

func (s *Store) registerHandle(h *Handle) {
	s.mu.Lock()
	s.handles[h.path] = h
	s.mu.Unlock()
}

func scanPositions(file *os.File) ([]compaction.Position, error) {
	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat journal file: %w", err)
	}

	size := info.Size()
	var positions []compaction.Position
	var offset int64
	for offset < size {
		_, _, _, recSize, err := decodeRecordAt(file, offset)
		if err != nil {
			return nil, err
		}
		positions = append(positions, compaction.Position(offset))
		offset += int64(recSize)
	}
	return positions, nil
}
