package compaction

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func s3Initiate(any) (LedgerSnapshot, uint64, error) {
	return s3Ledger(), 9, nil
}

func TestRunJobCompactsSingleEligibleFile(t *testing.T) {
	store := newMemStore()
	tip := store.addFile("tip.cdb", []memRecord{{key: JournalKey{SQN: 100, LedgerKey: LedgerKey{Tag: "default", Key: "KeyT"}}, crcOk: true}})
	src := store.addFile("src-1.cdb", s3Records())

	controller := &memController{
		manifest: ManifestSlice{
			{StartSQN: 100, Filename: "tip.cdb", Reader: tip},
			{StartSQN: 1, Filename: "src-1.cdb", Reader: src},
		},
	}

	report, err := RunJob(context.Background(), CoordinatorParams{
		Store:        store,
		Codec:        NewCodec(),
		Controller:   controller,
		MaxRunLength: DefaultMaxRun,
		SampleSize:   SampleSize,
		BatchSize:    BatchSize,
		Strategies:   ReloadStrategy{"default": Recovr},
		WriterOpts:   WriterOptions{CompactionTag: "compacted"},
		FilterFn:     directFilter,
		Initiate:     s3Initiate,
	})
	require.NoError(t, err)
	require.True(t, report.Ran)
	require.Len(t, report.Run, 1)
	require.Greater(t, report.Score, 0.0)
	require.True(t, report.PromptDelete)
	require.Equal(t, uint64(1), report.ManifestSQN)
	require.Equal(t, 1, controller.completeCalls)
	require.Contains(t, store.deleted, "src-1.cdb")
	require.Len(t, controller.lastConsumed, 1)
	require.Equal(t, "src-1.cdb", controller.lastConsumed[0].Filename)
}

func TestRunJobEmptyManifestSkipsWork(t *testing.T) {
	store := newMemStore()
	controller := &memController{manifest: nil}

	report, err := RunJob(context.Background(), CoordinatorParams{
		Store: store, Codec: NewCodec(), Controller: controller,
		MaxRunLength: DefaultMaxRun, SampleSize: SampleSize, BatchSize: BatchSize,
		FilterFn: directFilter, Initiate: s3Initiate,
	})
	require.NoError(t, err)
	require.False(t, report.Ran)
	require.Equal(t, 1, controller.completeCalls)
}

func TestRunJobOnlyTipFileSkipsWork(t *testing.T) {
	store := newMemStore()
	tip := store.addFile("tip.cdb", nil)
	controller := &memController{manifest: ManifestSlice{{StartSQN: 1, Filename: "tip.cdb", Reader: tip}}}

	report, err := RunJob(context.Background(), CoordinatorParams{
		Store: store, Codec: NewCodec(), Controller: controller,
		MaxRunLength: DefaultMaxRun, SampleSize: SampleSize, BatchSize: BatchSize,
		FilterFn: directFilter, Initiate: s3Initiate,
	})
	require.NoError(t, err)
	require.False(t, report.Ran)
	require.Equal(t, 1, controller.completeCalls)
	require.Empty(t, store.deleted)
}

func TestCheckIdempotentTrueOnEmptyManifest(t *testing.T) {
	store := newMemStore()
	controller := &memController{manifest: nil}

	dry, err := CheckIdempotent(context.Background(), CoordinatorParams{
		Store: store, Codec: NewCodec(), Controller: controller,
		MaxRunLength: DefaultMaxRun, SampleSize: SampleSize, BatchSize: BatchSize,
		FilterFn: directFilter, Initiate: s3Initiate,
	})
	require.NoError(t, err)
	require.True(t, dry)
}

func TestExplainJobReportsChosenRunOnNonEmptyManifest(t *testing.T) {
	store := newMemStore()
	tip := store.addFile("tip.cdb", nil)
	src := store.addFile("src-1.cdb", s3Records())
	controller := &memController{manifest: ManifestSlice{
		{StartSQN: 100, Filename: "tip.cdb", Reader: tip},
		{StartSQN: 1, Filename: "src-1.cdb", Reader: src},
	}}

	explanation, err := ExplainJob(context.Background(), CoordinatorParams{
		Store: store, Codec: NewCodec(), Controller: controller,
		MaxRunLength: DefaultMaxRun, SampleSize: SampleSize, BatchSize: BatchSize,
		FilterFn: directFilter, Initiate: s3Initiate,
	})
	require.NoError(t, err)
	require.Len(t, explanation.Chosen, 1)
	require.Greater(t, explanation.ChosenScore, 0.0)
	require.NotEmpty(t, explanation.RunnersUp)
	require.Equal(t, 0, controller.completeCalls) // explain never touches CompactionComplete
}

func TestExplainJobEmptyManifestReportsNothing(t *testing.T) {
	store := newMemStore()
	controller := &memController{manifest: nil}

	explanation, err := ExplainJob(context.Background(), CoordinatorParams{
		Store: store, Codec: NewCodec(), Controller: controller,
		MaxRunLength: DefaultMaxRun, SampleSize: SampleSize, BatchSize: BatchSize,
		FilterFn: directFilter, Initiate: s3Initiate,
	})
	require.NoError(t, err)
	require.Empty(t, explanation.Chosen)
}

func TestCheckIdempotentFalseWhenWorkRemains(t *testing.T) {
	store := newMemStore()
	tip := store.addFile("tip.cdb", nil)
	src := store.addFile("src-1.cdb", s3Records())
	controller := &memController{manifest: ManifestSlice{
		{StartSQN: 100, Filename: "tip.cdb", Reader: tip},
		{StartSQN: 1, Filename: "src-1.cdb", Reader: src},
	}}

	dry, err := CheckIdempotent(context.Background(), CoordinatorParams{
		Store: store, Codec: NewCodec(), Controller: controller,
		MaxRunLength: DefaultMaxRun, SampleSize: SampleSize, BatchSize: BatchSize,
		FilterFn: directFilter, Initiate: s3Initiate,
	})
	require.NoError(t, err)
	require.False(t, dry)
}
