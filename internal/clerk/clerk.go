package clerk

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"journalclerk/internal/compaction"
	"journalclerk/pkg/dberrors"
	"journalclerk/pkg/listener"
)

// Options configures a Clerk for its whole lifetime. Construction is the
// only synchronous call in the clerk's public API; everything after it
// travels over the mailbox.
type Options struct {
	Inker          compaction.JournalController
	Store          compaction.JournalFileStore
	Codec          compaction.Codec
	MaxRunLength   int
	SampleSize     int
	BatchSize      int
	WriterOpts     compaction.WriterOptions
	ReloadStrategy compaction.ReloadStrategy
	MailboxSize    int
}

// CompactRequest is the payload of a compact message.
type CompactRequest struct {
	Checker    any
	Initiate   compaction.InitiateFunc
	FilterFn   compaction.FilterFunc
	Controller compaction.JournalController // overrides Options.Inker when set
	Timeout    time.Duration                // accepted, not enforced; see design notes
	Report     chan<- JobOutcome            // optional observability hook
}

// JobOutcome is delivered on CompactRequest.Report, if set, once a job
// finishes. The controller's own callbacks (UpdateManifest,
// CompactionComplete) remain the durable result path — this channel
// exists only for callers that want to observe the outcome in-process.
type JobOutcome struct {
	Report compaction.JobReport
	Err    error
}

// Clerk is a single-flight compaction actor: a worker task with a
// bounded inbox that processes compact and hashtable_calc requests
// serially, standing in for a long-lived process with a mailbox.
type Clerk struct {
	*listener.Listener[message]

	opts Options
	in   chan message
}

// New starts a Clerk.
func New(opts Options) (*Clerk, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("clerk: Store is required: %w", dberrors.ErrInvalidArgument)
	}
	if opts.Inker == nil {
		return nil, fmt.Errorf("clerk: Inker is required: %w", dberrors.ErrInvalidArgument)
	}
	if opts.MaxRunLength <= 0 {
		opts.MaxRunLength = compaction.DefaultMaxRun
	}
	if opts.SampleSize <= 0 {
		opts.SampleSize = compaction.SampleSize
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = compaction.BatchSize
	}
	if opts.Codec == nil {
		opts.Codec = compaction.NewCodec()
	}
	if opts.MailboxSize <= 0 {
		opts.MailboxSize = 3
	}

	c := &Clerk{
		opts: opts,
		in:   make(chan message, opts.MailboxSize),
	}
	c.Listener = listener.New(c.in, c.handle, c.stop)
	c.Start(context.Background())
	return c, nil
}

// Compact enqueues a compaction job. Fire-and-forget: the result is
// published to the controller via its own callbacks, plus optionally to
// req.Report.
func (c *Clerk) Compact(req CompactRequest) {
	c.in <- message{kind: MsgCompact, compact: req}
}

// HashtableCalc enqueues a one-shot index computation, unrelated to
// compaction. A Clerk used only for hashtable_calc work should be
// Stopped once its single request completes, matching the "distinct
// lifecycle" this request kind is documented to have.
func (c *Clerk) HashtableCalc(req HashtableCalcRequest) {
	c.in <- message{kind: MsgHashtableCalc, hashtableCalc: req}
}

func (c *Clerk) handle(msg message) error {
	switch msg.kind {
	case MsgCompact:
		c.runCompact(msg.compact)
	case MsgHashtableCalc:
		c.runHashtableCalc(msg.hashtableCalc)
	case MsgCheckIdempotent:
		c.runCheckIdempotent(msg.idempotent)
	case MsgExplain:
		c.runExplain(msg.explain)
	}
	return nil
}

func (c *Clerk) runCompact(req CompactRequest) {
	if req.Timeout > 0 {
		slog.Debug("clerk: Timeout accepted but not enforced on in-flight work", "timeout", req.Timeout)
	}

	controller := req.Controller
	if controller == nil {
		controller = c.opts.Inker
	}

	report, err := compaction.RunJob(context.Background(), compaction.CoordinatorParams{
		Store:        c.opts.Store,
		Codec:        c.opts.Codec,
		Controller:   controller,
		MaxRunLength: c.opts.MaxRunLength,
		SampleSize:   c.opts.SampleSize,
		BatchSize:    c.opts.BatchSize,
		Strategies:   c.opts.ReloadStrategy,
		WriterOpts:   c.opts.WriterOpts,
		FilterFn:     req.FilterFn,
		Initiate:     req.Initiate,
		Checker:      req.Checker,
	})
	if err != nil {
		slog.Error("clerk: compaction job failed", "error", err)
	}

	if req.Report != nil {
		req.Report <- JobOutcome{Report: report, Err: err}
	}
}

func (c *Clerk) stop() {
	close(c.in)
}
