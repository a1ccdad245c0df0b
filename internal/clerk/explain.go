package clerk

import (
	"context"

	"journalclerk/internal/compaction"
)

// ExplainRequest asks what a compact job run right now would choose to
// run, and what it considered along the way, without rewriting anything.
// It rides the same mailbox as CompactRequest so the explanation reflects
// the manifest state exactly between two real jobs.
type ExplainRequest struct {
	Checker  any
	Initiate compaction.InitiateFunc
	FilterFn compaction.FilterFunc
	Report   chan<- ExplainResult
}

// ExplainResult is delivered on ExplainRequest.Report, if set.
type ExplainResult struct {
	Explanation compaction.PlanExplanation
	Err         error
}

// Explain enqueues a dry-run planning explanation. Fire-and-forget like
// Compact and CheckIdempotent; the answer arrives on req.Report.
func (c *Clerk) Explain(req ExplainRequest) {
	c.in <- message{kind: MsgExplain, explain: req}
}

func (c *Clerk) runExplain(req ExplainRequest) {
	explanation, err := compaction.ExplainJob(context.Background(), compaction.CoordinatorParams{
		Store:        c.opts.Store,
		Codec:        c.opts.Codec,
		Controller:   c.opts.Inker,
		MaxRunLength: c.opts.MaxRunLength,
		SampleSize:   c.opts.SampleSize,
		BatchSize:    c.opts.BatchSize,
		Strategies:   c.opts.ReloadStrategy,
		WriterOpts:   c.opts.WriterOpts,
		FilterFn:     req.FilterFn,
		Initiate:     req.Initiate,
		Checker:      req.Checker,
	})
	if req.Report != nil {
		req.Report <- ExplainResult{Explanation: explanation, Err: err}
	}
}
