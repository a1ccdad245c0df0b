package clerk

import (
	"context"

	"journalclerk/internal/compaction"
)

// IdempotentRequest asks whether a compact job run right now would find
// any more work, without actually rewriting anything. It rides the same
// mailbox as CompactRequest so the answer reflects the manifest state
// exactly between two real jobs, never a state torn by one running
// concurrently.
type IdempotentRequest struct {
	Checker  any
	Initiate compaction.InitiateFunc
	FilterFn compaction.FilterFunc
	Report   chan<- IdempotentResult
}

type IdempotentResult struct {
	Idle bool
	Err  error
}

// CheckIdempotent enqueues an idempotency check. Fire-and-forget like
// Compact and HashtableCalc; the answer arrives on req.Report.
func (c *Clerk) CheckIdempotent(req IdempotentRequest) {
	c.in <- message{kind: MsgCheckIdempotent, idempotent: req}
}

func (c *Clerk) runCheckIdempotent(req IdempotentRequest) {
	idle, err := compaction.CheckIdempotent(context.Background(), compaction.CoordinatorParams{
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
		req.Report <- IdempotentResult{Idle: idle, Err: err}
	}
}
