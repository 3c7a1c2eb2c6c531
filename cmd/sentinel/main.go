package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dd0wney/cluso-sentinel/pkg/api"
	"github.com/dd0wney/cluso-sentinel/pkg/config"
	"github.com/dd0wney/cluso-sentinel/pkg/detect"
	"github.com/dd0wney/cluso-sentinel/pkg/enrichment"
	"github.com/dd0wney/cluso-sentinel/pkg/health"
	"github.com/dd0wney/cluso-sentinel/pkg/logging"
	"github.com/dd0wney/cluso-sentinel/pkg/metrics"
	"github.com/dd0wney/cluso-sentinel/pkg/notify"
	"github.com/dd0wney/cluso-sentinel/pkg/pubsub"
	"github.com/dd0wney/cluso-sentinel/pkg/server"
	"github.com/dd0wney/cluso-sentinel/pkg/store"
)

func main() {
	configPath := flag.String("config", "./config/thresholds.yaml", "Path to thresholds config")
	port := flag.Int("port", 0, "HTTP server port (default from config, or set PORT)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	if *port != 0 {
		cfg.Server.Port = *port
	} else if envPort := os.Getenv("PORT"); envPort != "" {
		if p, err := strconv.Atoi(envPort); err == nil {
			cfg.Server.Port = p
		}
	}

	logger := logging.NewJSONLogger(os.Stdout, logging.ParseLevel(cfg.LogLevel))
	logger.Info("sentinel starting",
		logging.Int("port", cfg.Server.Port),
		logging.String("config", *configPath),
	)

	reg := metrics.NewRegistry()
	bus := pubsub.New()
	checker := health.NewChecker()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Persistence: PostgreSQL when DATABASE_URL is set, otherwise the
	// in-memory stores backed by the edge journal.
	var (
		edges     store.EdgeStore
		alerts    store.AlertStore
		pg        *store.PG
		journaled *store.MemoryEdgeStore
	)
	if cfg.Store.DatabaseURL != "" {
		pg, err = store.NewPG(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to database", logging.Error(err))
			os.Exit(1)
		}
		edges = pg.Edges
		alerts = pg.Alerts
		checker.RegisterReadinessCheck("database", health.DatabaseCheck(pg.Ping))
		logger.Info("using postgres stores")
	} else {
		journaled, err = store.NewJournaledEdgeStore(cfg.Store.JournalPath)
		if err != nil {
			logger.Error("failed to open edge journal",
				logging.String("path", cfg.Store.JournalPath),
				logging.Error(err),
			)
			os.Exit(1)
		}
		edges = journaled
		alerts = store.NewMemoryAlertStore()
		logger.Info("using in-memory stores",
			logging.String("journal", cfg.Store.JournalPath),
		)
	}

	// Enrichment sources follow the same split: database-backed when
	// running against postgres, files when configured, static defaults
	// otherwise.
	vaultSrc, acctSrc, closeSources, err := enrichmentSources(ctx, cfg)
	if err != nil {
		logger.Error("failed to set up enrichment sources", logging.Error(err))
		os.Exit(1)
	}

	refreshInterval := time.Duration(cfg.Enrichment.RefreshIntervalSeconds) * time.Second
	enrich := enrichment.NewManager(vaultSrc, acctSrc, refreshInterval, logger)
	enrich.Instrument(reg)
	if err := enrich.Load(ctx); err != nil {
		logger.Error("initial enrichment load failed", logging.Error(err))
		os.Exit(1)
	}
	enrich.Start()

	dispatcher := detect.NewDispatcher(cfg, enrich, logger, reg, bus)

	history, err := edges.AllForGraph(ctx)
	if err != nil {
		logger.Error("failed to load edge history", logging.Error(err))
		os.Exit(1)
	}
	dispatcher.Warm(history)
	logger.Info("graph warmed",
		logging.Int("edges", len(history)),
		logging.Int("nodes", dispatcher.Graph().NodeCount()),
	)

	checker.RegisterReadinessCheck("enrichment",
		health.EnrichmentCheck(enrich.Ready, enrich.LastRefreshed, refreshInterval))
	checker.RegisterLivenessCheck("graph",
		health.GraphCheck(dispatcher.GraphNodeCount, cfg.AuthChain.MaxGraphNodes))

	apiServer := api.NewServer(dispatcher, edges, alerts, enrich, checker, logger, reg, cfg)
	gs := server.NewGracefulServer(fmt.Sprintf(":%d", cfg.Server.Port), apiServer.Handler(), logger)

	if cfg.Notify.ListenAddr != "" {
		notifier, err := notify.NewNotifier(cfg.Notify.ListenAddr, logger)
		if err != nil {
			logger.Error("failed to start notifier", logging.Error(err))
			os.Exit(1)
		}
		notifier.Run(bus, detect.AlertTopic)
		gs.OnShutdown("notifier", func(ctx context.Context) error {
			return notifier.Stop()
		})
	}

	gs.OnShutdown("pubsub", func(ctx context.Context) error {
		bus.Shutdown()
		return nil
	})
	gs.OnShutdown("enrichment", func(ctx context.Context) error {
		enrich.Stop()
		closeSources()
		return nil
	})
	if pg != nil {
		gs.OnShutdown("database", func(ctx context.Context) error {
			pg.Close()
			return nil
		})
	}
	if journaled != nil {
		gs.OnShutdown("journal", func(ctx context.Context) error {
			return journaled.Close()
		})
	}

	if err := gs.Start(); err != nil {
		logger.Error("server failed", logging.Error(err))
		os.Exit(1)
	}
}

// enrichmentSources picks where vault and critical-account data come
// from, in priority order: postgres, files, built-in static data. The
// returned close func releases any backing connections.
func enrichmentSources(ctx context.Context, cfg config.AppConfig) (enrichment.VaultSource, enrichment.AccountsSource, func(), error) {
	if cfg.Store.DatabaseURL != "" {
		src, err := enrichment.NewPGSource(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		return src, src, src.Close, nil
	}
	if cfg.Enrichment.VaultFile != "" && cfg.Enrichment.CriticalAccountsFile != "" {
		src := &enrichment.FileSource{
			VaultPath:    cfg.Enrichment.VaultFile,
			AccountsPath: cfg.Enrichment.CriticalAccountsFile,
		}
		return src, src, func() {}, nil
	}
	src := enrichment.DefaultStaticSource()
	return src, src, func() {}, nil
}
