package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/arbfeed/internal/api"
	"github.com/rickgao/arbfeed/internal/config"
	"github.com/rickgao/arbfeed/internal/database"
	"github.com/rickgao/arbfeed/internal/engine"
	"github.com/rickgao/arbfeed/internal/journal"
	"github.com/rickgao/arbfeed/internal/metrics"
	"github.com/rickgao/arbfeed/internal/poller"
	"github.com/rickgao/arbfeed/internal/server"
	"github.com/rickgao/arbfeed/internal/version"
)

const shutdownTimeout = 15 * time.Second

func main() {
	configPath := flag.String("config", "configs/arbfeed.local.yaml", "path to config file")
	envFile := flag.String("env", ".env", "optional dotenv file loaded before the config")
	flag.Parse()

	if err := run(*configPath, *envFile); err != nil {
		slog.Error("arbfeed exited with error", "error", err)
		os.Exit(1)
	}
}

func run(configPath, envFile string) error {
	if err := config.LoadEnv(envFile); err != nil {
		return err
	}

	cfg, err := config.LoadAndValidate(configPath)
	if err != nil {
		return err
	}

	logger, logCloser, err := newLogger(cfg.Logging)
	if err != nil {
		return err
	}
	if logCloser != nil {
		defer logCloser.Close()
	}
	slog.SetDefault(logger)

	logger.Info("starting arbfeed",
		"version", version.String(),
		"config", configPath,
		"stream_url", cfg.Stream.URL,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var m *metrics.Metrics
	observers := engine.MultiObserver{engine.NewLogObserver(logger.With("component", "feed"))}
	if cfg.Metrics.Enabled {
		m = metrics.New()
		observers = append(observers, m)
	}

	// Journal
	var (
		pool   *pgxpool.Pool
		writer *journal.Writer
	)
	if cfg.Journal.Enabled {
		pool, err = database.Connect(ctx, cfg.Journal.Database, logger)
		if err != nil {
			return err
		}
		defer pool.Close()

		writer = journal.NewWriter(journalConfig(cfg.Journal), pool, logger.With("component", "journal"))
		if err := writer.EnsureSchema(ctx); err != nil {
			return err
		}
		observers = append(observers, journalObserver{Writer: writer})
		if m != nil {
			m.WatchPool("journal", pool)
		}
	}

	// Engine
	engCfg, err := engineConfig(cfg)
	if err != nil {
		return err
	}
	eng := engine.New(engCfg, observers, logger.With("component", "engine"))
	if m != nil {
		m.WatchEngine(eng)
	}

	// Collaborator polling
	var (
		p       *poller.Poller
		catalog server.Catalog
	)
	if cfg.Collaborator.Enabled {
		opts := append(apiOptions(cfg.Collaborator), api.WithLogger(logger.With("component", "api")))
		client := api.NewClient(cfg.Collaborator.RestURL, opts...)

		// Poll failures are already logged by the poller.
		var onError poller.ErrorHandler = engine.NopObserver{}
		if m != nil {
			onError = m
		}
		p = poller.New(pollerConfig(cfg.Collaborator), client, poller.NewCatalog(), onError, logger.With("component", "poller"))
		catalog = p.Catalog()
	}

	// HTTP server
	var srvOpts []server.Option
	if m != nil {
		srvOpts = append(srvOpts, server.WithMetrics(m.Handler()))
	}
	srv := server.New(serverConfig(cfg), eng, catalog, logger.With("component", "server"), srvOpts...)

	if writer != nil {
		if err := writer.Start(ctx); err != nil {
			return err
		}
	}
	if p != nil {
		if err := p.Start(ctx); err != nil {
			return err
		}
	}
	if err := srv.Start(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return eng.Run(gctx)
	})

	logger.Info("arbfeed running", "addr", cfg.Server.Addr, "autostart", cfg.Stream.AutoStart)
	<-gctx.Done()
	logger.Info("shutting down")

	// Wait for the engine first so its final transitions reach the journal.
	runErr := g.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := srv.Stop(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	if p != nil {
		if err := p.Stop(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
	}
	if writer != nil {
		if err := writer.Stop(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
	}
	if runErr != nil {
		errs = append(errs, runErr)
	}

	logger.Info("arbfeed stopped")
	return errors.Join(errs...)
}
