package journalowner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"journalclerk/internal/compaction"
)

type stubHandle struct{ name string }

func (h *stubHandle) Filename() string { return h.name }

type stubStore struct{ compaction.JournalFileStore }

func (stubStore) OpenReader(_ context.Context, path string) (compaction.JournalHandle, error) {
	return &stubHandle{name: path}, nil
}

func TestPublishThenGetManifestRoundTrips(t *testing.T) {
	owner, err := New(t.TempDir(), stubStore{})
	require.NoError(t, err)

	require.NoError(t, owner.Publish(100, "tip.cdb"))
	require.NoError(t, owner.Publish(1, "src-1.cdb"))

	manifest, err := owner.GetManifest(context.Background())
	require.NoError(t, err)
	require.Len(t, manifest, 2)
	require.Equal(t, "src-1.cdb", manifest[0].Filename) // ascending start_sqn
	require.Equal(t, "tip.cdb", manifest[1].Filename)
}

func TestUpdateManifestSwapsConsumedForNew(t *testing.T) {
	owner, err := New(t.TempDir(), stubStore{})
	require.NoError(t, err)
	require.NoError(t, owner.Publish(100, "tip.cdb"))
	require.NoError(t, owner.Publish(1, "src-1.cdb"))
	require.NoError(t, owner.Publish(2, "src-2.cdb"))

	sqn, err := owner.UpdateManifest(context.Background(),
		compaction.ManifestSlice{{StartSQN: 1, Filename: "compacted-1.cdb"}},
		[]compaction.ConsumedFile{{Filename: "src-1.cdb"}, {Filename: "src-2.cdb"}},
	)
	require.NoError(t, err)
	require.Equal(t, uint64(1), sqn)

	manifest, err := owner.GetManifest(context.Background())
	require.NoError(t, err)
	require.Len(t, manifest, 2)
	require.Equal(t, "compacted-1.cdb", manifest[0].Filename)
	require.Equal(t, "tip.cdb", manifest[1].Filename)
}

func TestManifestPersistsAcrossReload(t *testing.T) {
	dir := t.TempDir()
	owner, err := New(dir, stubStore{})
	require.NoError(t, err)
	require.NoError(t, owner.Publish(1, "src-1.cdb"))

	reloaded, err := New(dir, stubStore{})
	require.NoError(t, err)
	manifest, err := reloaded.GetManifest(context.Background())
	require.NoError(t, err)
	require.Len(t, manifest, 1)
	require.Equal(t, "src-1.cdb", manifest[0].Filename)
}
