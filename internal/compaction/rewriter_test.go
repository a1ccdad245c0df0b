package compaction

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func runFromFile(store *memStore, name string, records []memRecord) []Candidate {
	handle := store.addFile(name, records)
	return []Candidate{{LowSQN: records[0].key.SQN, Filename: name, Journal: handle}}
}

func TestRewriteRecovrDropsStaleKeepsLive(t *testing.T) {
	store := newMemStore()
	run := runFromFile(store, "src-1.cdb", s3Records())
	ledger := s3Ledger()

	slice, promptDelete, err := Rewrite(context.Background(), run, RewriteParams{
		Store:      store,
		Codec:      NewCodec(),
		WriterOpts: WriterOptions{CompactionTag: "compacted"},
		FilterFn:   directFilter,
		Ledger:     ledger,
		MaxSQN:     9,
		Strategies: ReloadStrategy{"default": Recovr},
	})
	require.NoError(t, err)
	require.True(t, promptDelete)
	require.Len(t, slice, 1)
	require.Equal(t, uint64(2), slice[0].StartSQN)

	out := store.files[slice[0].Filename]
	require.Len(t, out, 3) // sqn 2, 3, 8 survive; 1,4,5,6,7 dropped

	bySQN := map[uint64]memRecord{}
	for _, r := range out {
		bySQN[r.key.SQN] = r
	}
	_, hasOne := bySQN[1]
	_, hasSeven := bySQN[7]
	require.False(t, hasOne)
	require.False(t, hasSeven)

	eight, hasEight := bySQN[8]
	require.True(t, hasEight)
	require.Equal(t, Standard, eight.key.Kind)

	two, hasTwo := bySQN[2]
	require.True(t, hasTwo)
	require.Equal(t, "Value2", string(two.value.Object))
	require.Empty(t, two.value.KeyDeltas)
}

func TestRewriteRetainKeepsCompactedDeltasForStale(t *testing.T) {
	store := newMemStore()
	run := runFromFile(store, "src-1.cdb", s3Records())
	ledger := s3Ledger()

	slice, promptDelete, err := Rewrite(context.Background(), run, RewriteParams{
		Store:      store,
		Codec:      NewCodec(),
		WriterOpts: WriterOptions{CompactionTag: "compacted"},
		FilterFn:   directFilter,
		Ledger:     ledger,
		MaxSQN:     9,
		Strategies: ReloadStrategy{"default": Retain},
	})
	require.NoError(t, err)
	require.True(t, promptDelete)
	require.Len(t, slice, 1)
	require.Equal(t, uint64(1), slice[0].StartSQN) // all 8 records survive now

	out := store.files[slice[0].Filename]
	require.Len(t, out, 8)

	bySQN := map[uint64]memRecord{}
	for _, r := range out {
		bySQN[r.key.SQN] = r
	}

	stale := bySQN[7]
	require.Equal(t, KeyDeltas, stale.key.Kind)
	require.Empty(t, stale.value.Object)
	require.Equal(t, "deltas1", string(stale.value.KeyDeltas))

	live := bySQN[2]
	require.Equal(t, Standard, live.key.Kind)
	require.Equal(t, "Value2", string(live.value.Object))
}

func TestRewriteCorruptRecordDroppedAndBlocksDeletion(t *testing.T) {
	store := newMemStore()
	records := s3Records()
	records[6].crcOk = false // sqn 7 for Key1, already stale under recovr
	run := runFromFile(store, "src-1.cdb", records)
	ledger := s3Ledger()

	slice, promptDelete, err := Rewrite(context.Background(), run, RewriteParams{
		Store:      store,
		Codec:      NewCodec(),
		WriterOpts: WriterOptions{CompactionTag: "compacted"},
		FilterFn:   directFilter,
		Ledger:     ledger,
		MaxSQN:     9,
		Strategies: ReloadStrategy{"default": Recovr},
	})
	require.NoError(t, err)
	require.False(t, promptDelete)
	require.Len(t, slice, 1)

	out := store.files[slice[0].Filename]
	for _, r := range out {
		require.NotEqual(t, uint64(7), r.key.SQN)
	}
}
