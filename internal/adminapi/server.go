// Package adminapi is a chi-routed HTTP surface for operating a Clerk:
// triggering a compaction cycle, polling its outcome, asking whether the
// manifest is currently idle, and explaining what a job run right now
// would choose without acting on it, alongside a Prometheus scrape
// endpoint.
package adminapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"journalclerk/internal/clerk"
	"journalclerk/internal/compaction"
	"journalclerk/pkg/metrics"
)

const (
	contentTypeJSON        = "application/json"
	defaultPort            = "8090"
	defaultShutdownTimeout = 5 * time.Second
)

type jobKind string

const (
	kindCompact    jobKind = "compact"
	kindIdempotent jobKind = "idempotent"
	kindExplain    jobKind = "explain"
)

type jobRecord struct {
	kind        jobKind
	done        bool
	report      compaction.JobReport
	idle        bool
	explanation compaction.PlanExplanation
	err         error
}

// Server exposes a Clerk over HTTP. It is a thin translation layer only:
// every request it accepts becomes exactly one mailbox message on the
// wrapped Clerk, and every response it returns comes from that message's
// own report channel.
type Server struct {
	clerk    *clerk.Clerk
	initiate compaction.InitiateFunc
	filterFn compaction.FilterFunc
	registry *prometheus.Registry
	metrics  metrics.Collector

	httpServer *http.Server
	addr       string
	URL        string

	mu     sync.Mutex
	jobs   map[string]*jobRecord
	nextID atomic.Uint64
}

// New builds an admin server around an already-running Clerk. initiate and
// filterFn are the defaults used for every /compact, /idempotent, and
// /explain request that doesn't run against a specific checker;
// registry, if non-nil, is scraped by GET /metrics.
func New(c *clerk.Clerk, initiate compaction.InitiateFunc, filterFn compaction.FilterFunc, registry *prometheus.Registry, port string) *Server {
	if port == "" {
		port = defaultPort
	}
	return &Server{
		clerk:    c,
		initiate: initiate,
		filterFn: filterFn,
		registry: registry,
		URL:      "http://localhost:" + port,
		addr:     ":" + port,
		jobs:     make(map[string]*jobRecord),
	}
}

// SetMetrics attaches a metrics.Collector that request handling reports
// job counts to. Optional: a nil collector (the default) means requests
// go unrecorded beyond the /metrics scrape endpoint itself.
func (s *Server) SetMetrics(m metrics.Collector) {
	s.metrics = m
}

func (s *Server) createRouter() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", s.handleHealth)
	if s.registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	} else {
		r.Get("/metrics", s.handlePlainMetrics)
	}
	r.Post("/compact", s.handleCompact)
	r.Post("/idempotent", s.handleIdempotent)
	r.Post("/explain", s.handleExplain)
	r.Get("/jobs/{id}", s.handleJobStatus)

	return r
}

// Start begins serving in the background.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.createRouter(),
		ReadHeaderTimeout: time.Second,
	}
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("adminapi: server error", "error", err)
		}
	}()
	slog.Info("adminapi: server started", "addr", s.URL)
	return nil
}

// Stop shuts the server down, letting in-flight requests finish.
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown adminapi server: %w", err)
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data Response) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := writeJSONBody(w, data); err != nil {
		slog.Warn("adminapi: failed to encode response", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, newOKResponse())
}

func (s *Server) handlePlainMetrics(w http.ResponseWriter, _ *http.Request) {
	if _, err := w.Write([]byte("# no prometheus registry configured\n")); err != nil {
		slog.Warn("adminapi: failed to write metrics response", "error", err)
	}
}

// handleCompact enqueues a compaction job and returns its id immediately;
// the job runs asynchronously on the clerk's own mailbox.
func (s *Server) handleCompact(w http.ResponseWriter, r *http.Request) {
	if s.initiate == nil {
		s.writeJSON(w, http.StatusServiceUnavailable, newErrorResponse("no initiate function configured"))
		return
	}

	id := s.newJobID()
	s.mu.Lock()
	s.jobs[id] = &jobRecord{kind: kindCompact}
	s.mu.Unlock()

	report := make(chan clerk.JobOutcome, 1)
	s.clerk.Compact(clerk.CompactRequest{
		Initiate: s.initiate,
		FilterFn: s.filterFn,
		Report:   report,
	})

	go func() {
		out := <-report
		s.mu.Lock()
		s.jobs[id].done = true
		s.jobs[id].report = out.Report
		s.jobs[id].err = out.Err
		s.mu.Unlock()
		s.recordJob("compact", out.Err)
	}()

	s.writeJSON(w, http.StatusAccepted, newPendingResponse(id))
}

// handleIdempotent enqueues an idempotency check the same way handleCompact
// enqueues a real job, so a caller can poll GET /jobs/{id} for the answer.
func (s *Server) handleIdempotent(w http.ResponseWriter, r *http.Request) {
	if s.initiate == nil {
		s.writeJSON(w, http.StatusServiceUnavailable, newErrorResponse("no initiate function configured"))
		return
	}

	id := s.newJobID()
	s.mu.Lock()
	s.jobs[id] = &jobRecord{kind: kindIdempotent}
	s.mu.Unlock()

	result := make(chan clerk.IdempotentResult, 1)
	s.clerk.CheckIdempotent(clerk.IdempotentRequest{
		Initiate: s.initiate,
		FilterFn: s.filterFn,
		Report:   result,
	})

	go func() {
		out := <-result
		s.mu.Lock()
		s.jobs[id].done = true
		s.jobs[id].idle = out.Idle
		s.jobs[id].err = out.Err
		s.mu.Unlock()
		s.recordJob("idempotent", out.Err)
	}()

	s.writeJSON(w, http.StatusAccepted, newPendingResponse(id))
}

// handleExplain enqueues a dry-run planning explanation the same way
// handleIdempotent enqueues an idempotency check, so a caller can poll
// GET /jobs/{id} for the chosen run and its runner-up attempts.
func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	if s.initiate == nil {
		s.writeJSON(w, http.StatusServiceUnavailable, newErrorResponse("no initiate function configured"))
		return
	}

	id := s.newJobID()
	s.mu.Lock()
	s.jobs[id] = &jobRecord{kind: kindExplain}
	s.mu.Unlock()

	result := make(chan clerk.ExplainResult, 1)
	s.clerk.Explain(clerk.ExplainRequest{
		Initiate: s.initiate,
		FilterFn: s.filterFn,
		Report:   result,
	})

	go func() {
		out := <-result
		s.mu.Lock()
		s.jobs[id].done = true
		s.jobs[id].explanation = out.Explanation
		s.jobs[id].err = out.Err
		s.mu.Unlock()
		s.recordJob("explain", out.Err)
	}()

	s.writeJSON(w, http.StatusAccepted, newPendingResponse(id))
}

// recordJob reports one finished job's outcome to the attached metrics
// collector, if any. status is "ok" or "error".
func (s *Server) recordJob(kind string, err error) {
	if s.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.metrics.IncCounter("journalclerk_jobs_total", map[string]string{"kind": kind, "status": status}, 1)
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		s.writeJSON(w, http.StatusNotFound, newErrorResponse("unknown job id"))
		return
	}
	if !job.done {
		s.writeJSON(w, http.StatusOK, newPendingResponse(id))
		return
	}
	if job.err != nil {
		s.writeJSON(w, http.StatusInternalServerError, newErrorResponse(job.err.Error()))
		return
	}

	var value any
	switch job.kind {
	case kindIdempotent:
		value = map[string]bool{"idle": job.idle}
	case kindExplain:
		value = job.explanation
	default:
		value = job.report
	}
	s.writeJSON(w, http.StatusOK, newSuccessResponse(id, value))
}

func (s *Server) newJobID() string {
	return "job-" + strconv.FormatUint(s.nextID.Add(1), 10)
}
