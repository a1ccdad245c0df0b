package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"journalclerk/internal/adminapi"
	"journalclerk/internal/clerk"
	"journalclerk/internal/compaction"
	"journalclerk/internal/journalowner"
	"journalclerk/internal/journalstore"
	"journalclerk/internal/ledger"
	"journalclerk/pkg/clock"
	"journalclerk/pkg/cluster"
	"journalclerk/pkg/config"
	"journalclerk/pkg/metrics"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := initConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	initLogger(&cfg)

	if err := run(cfg); err != nil {
		slog.Error("journalclerk exited with error", "error", err)
		os.Exit(1)
	}
}

// run wires a Store, its manifest owner, a live index acting as the
// ledger oracle, a Clerk, and the admin HTTP surface around them, then
// blocks until an interrupt or terminate signal arrives.
func run(cfg config.Config) error {
	strategies, err := cfg.Clerk.ReloadStrategy()
	if err != nil {
		return err
	}

	store := journalstore.New(cfg.JournalStore.Dir)
	owner, err := journalowner.New(cfg.JournalStore.Dir, store)
	if err != nil {
		return err
	}

	codec := compaction.NewCodec()
	sqns := clock.NewAtomic(0)

	tip, err := store.OpenTipAppender(cfg.JournalStore.Dir, cfg.JournalStore.CompactionTag, codec)
	if err != nil {
		return err
	}
	defer tip.Stop()

	if err := owner.Publish(sqns.Val(), store.Filename(tip.Handle())); err != nil {
		return err
	}

	index := ledger.New()

	c, err := clerk.New(clerk.Options{
		Inker:          owner,
		Store:          store,
		Codec:          codec,
		MaxRunLength:   cfg.Clerk.MaxRunLength,
		SampleSize:     cfg.Clerk.SampleSize,
		BatchSize:      cfg.Clerk.BatchSize,
		MailboxSize:    cfg.Clerk.MailboxSize,
		ReloadStrategy: strategies,
		WriterOpts: compaction.WriterOptions{
			Dir:           cfg.JournalStore.Dir,
			MaxSizeBytes:  cfg.JournalStore.MaxSizeBytes,
			CompactionTag: cfg.JournalStore.CompactionTag,
		},
	})
	if err != nil {
		return err
	}
	defer c.Stop()

	registry := prometheus.NewRegistry()
	collector := metrics.NewPrometheusCollector(registry)

	admin := adminapi.New(c, ledger.Initiate(index, sqns.Val()), ledger.DefaultFilterFunc,
		registry, formatPort(cfg.AdminServer.Port))
	admin.SetMetrics(collector)
	if err := admin.Start(); err != nil {
		return err
	}
	defer func() {
		if err := admin.Stop(); err != nil {
			slog.Warn("adminapi: shutdown error", "error", err)
		}
	}()

	if len(cfg.Cluster.ZKServers) > 0 {
		clerkRegistry, err := cluster.NewClerkRegistry(cfg.Cluster.ZKServers, cfg.Cluster.RootPath, cfg.Cluster.LocalAddr)
		if err != nil {
			slog.Warn("cluster: registration disabled, connect failed", "error", err)
		} else {
			defer clerkRegistry.Close()
			if err := clerkRegistry.RegisterSelf(); err != nil {
				slog.Warn("cluster: failed to register self", "error", err)
			}
		}
	}

	slog.Info("journalclerk started", "admin_addr", admin.URL, "journal_dir", cfg.JournalStore.Dir)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	<-ctx.Done()

	slog.Info("journalclerk shutting down")
	return nil
}

func formatPort(port int) string {
	if port <= 0 {
		return ""
	}
	return strconv.Itoa(port)
}
