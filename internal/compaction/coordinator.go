package compaction

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
)

// InitiateFunc snapshots the ledger for a job and returns the SQN horizon
// beyond which every record is kept regardless of liveness.
type InitiateFunc func(checker any) (LedgerSnapshot, uint64, error)

// CoordinatorParams bundles a job's collaborators.
type CoordinatorParams struct {
	Store        JournalFileStore
	Codec        Codec
	Controller   JournalController
	MaxRunLength int
	SampleSize   int
	BatchSize    int
	Strategies   ReloadStrategy
	WriterOpts   WriterOptions
	FilterFn     FilterFunc
	Initiate     InitiateFunc
	Checker      any
}

// JobReport summarizes a completed job for callers that want more than
// fire-and-forget (the demo admin API, tests).
type JobReport struct {
	Ran          bool
	Run          []Candidate
	Score        float64
	Slice        ManifestSlice
	PromptDelete bool
	ManifestSQN  uint64
}

// RunJob drives a single compaction job end-to-end: fetch manifest,
// score, plan, rewrite, report the manifest delta, request deletion of
// consumed files.
func RunJob(ctx context.Context, p CoordinatorParams) (JobReport, error) {
	manifest, err := p.Controller.GetManifest(ctx)
	if err != nil {
		return JobReport{}, fmt.Errorf("failed to fetch manifest: %w", err)
	}
	if len(manifest) == 0 {
		p.Controller.CompactionComplete(ctx)
		return JobReport{Ran: false}, nil
	}
	// The active write-tip file is never compacted.
	eligible := manifest[1:]

	ledger, maxSQN, err := p.Initiate(p.Checker)
	if err != nil {
		return JobReport{}, fmt.Errorf("failed to initiate job: %w", err)
	}

	candidates := make([]Candidate, len(eligible))
	for i, entry := range eligible {
		perc := Score(ctx, p.Store, entry.Reader, p.FilterFn, ledger, maxSQN, p.SampleSize, p.BatchSize)
		candidates[i] = Candidate{
			LowSQN:         entry.StartSQN,
			Filename:       entry.Filename,
			Journal:        entry.Reader,
			CompactionPerc: perc,
		}
	}

	run := Plan(candidates, p.MaxRunLength)
	score := ScoreRun(run, p.MaxRunLength)

	if score <= 0 {
		p.Controller.CompactionComplete(ctx)
		return JobReport{Ran: false, Run: run, Score: score}, nil
	}

	sortRun(run)

	slice, promptDelete, err := Rewrite(ctx, run, RewriteParams{
		Store:      p.Store,
		Codec:      p.Codec,
		WriterOpts: p.WriterOpts,
		FilterFn:   p.FilterFn,
		Ledger:     ledger,
		MaxSQN:     maxSQN,
		Strategies: p.Strategies,
	})
	if err != nil {
		slog.Error("coordinator: rewrite failed, no manifest delta published", "error", err)
		return JobReport{}, fmt.Errorf("rewrite failed: %w", err)
	}

	consumed := make([]ConsumedFile, len(run))
	for i, c := range run {
		consumed[i] = ConsumedFile{LowSQN: c.LowSQN, Filename: c.Filename, Handle: c.Journal}
	}

	manifestSQN, err := p.Controller.UpdateManifest(ctx, slice, consumed)
	if err != nil {
		return JobReport{}, fmt.Errorf("failed to update manifest: %w", err)
	}

	p.Controller.CompactionComplete(ctx)

	if promptDelete {
		for _, c := range consumed {
			if err := p.Store.DeletePending(ctx, c.Handle, manifestSQN, p.Controller); err != nil {
				slog.Warn("coordinator: failed to schedule source deletion", "file", c.Filename, "error", err)
			}
		}
	}

	return JobReport{
		Ran:          true,
		Run:          run,
		Score:        score,
		Slice:        slice,
		PromptDelete: promptDelete,
		ManifestSQN:  manifestSQN,
	}, nil
}

// sortRun defensively orders a run by ascending low_sqn.
func sortRun(run []Candidate) {
	sort.Slice(run, func(i, j int) bool { return run[i].LowSQN < run[j].LowSQN })
}

// CheckIdempotent runs a dry-run plan over the current manifest a second
// time and reports whether the result has non-positive score, i.e.
// nothing left to compact — rewrite idempotence as a callable operation
// rather than a test-only property.
func CheckIdempotent(ctx context.Context, p CoordinatorParams) (bool, error) {
	manifest, err := p.Controller.GetManifest(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to fetch manifest: %w", err)
	}
	if len(manifest) == 0 {
		return true, nil
	}
	eligible := manifest[1:]

	ledger, maxSQN, err := p.Initiate(p.Checker)
	if err != nil {
		return false, fmt.Errorf("failed to initiate check: %w", err)
	}

	candidates := make([]Candidate, len(eligible))
	for i, entry := range eligible {
		perc := Score(ctx, p.Store, entry.Reader, p.FilterFn, ledger, maxSQN, p.SampleSize, p.BatchSize)
		candidates[i] = Candidate{LowSQN: entry.StartSQN, Filename: entry.Filename, Journal: entry.Reader, CompactionPerc: perc}
	}

	run := Plan(candidates, p.MaxRunLength)
	return ScoreRun(run, p.MaxRunLength) <= 0, nil
}

// ExplainJob scores the current manifest the same way RunJob would, but
// returns the planner's full PlanExplanation instead of acting on it —
// operational visibility into the run the planner would pick and the
// runner-up windows it considered, without touching a single file.
func ExplainJob(ctx context.Context, p CoordinatorParams) (PlanExplanation, error) {
	manifest, err := p.Controller.GetManifest(ctx)
	if err != nil {
		return PlanExplanation{}, fmt.Errorf("failed to fetch manifest: %w", err)
	}
	if len(manifest) == 0 {
		return PlanExplanation{}, nil
	}
	eligible := manifest[1:]

	ledger, maxSQN, err := p.Initiate(p.Checker)
	if err != nil {
		return PlanExplanation{}, fmt.Errorf("failed to initiate explain: %w", err)
	}

	candidates := make([]Candidate, len(eligible))
	for i, entry := range eligible {
		perc := Score(ctx, p.Store, entry.Reader, p.FilterFn, ledger, maxSQN, p.SampleSize, p.BatchSize)
		candidates[i] = Candidate{LowSQN: entry.StartSQN, Filename: entry.Filename, Journal: entry.Reader, CompactionPerc: perc}
	}

	return Explain(candidates, p.MaxRunLength), nil
}
