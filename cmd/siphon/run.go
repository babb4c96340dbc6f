package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"siphon/internal/config"
	"siphon/internal/containers"
	"siphon/internal/fileindex"
	"siphon/internal/ingest"
	"siphon/internal/logging"
	"siphon/internal/runlock"
	"siphon/internal/services/depot"
	"siphon/internal/services/fits2plane"
	"siphon/internal/services/repository"
	"siphon/internal/services/stores"
)

type runOptions struct {
	mode            ingest.Mode
	retainOverrides bool
}

// runPipeline executes one batch run: lock the work dir, drain every source
// into the catalog, resolve provenance, then drive planes when ingest mode
// is active. The returned error makes the process exit non-zero; completed
// observations are never rolled back.
func runPipeline(cmdCtx context.Context, ctx *commandContext, sources []string, opts runOptions, out io.Writer) error {
	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	archive, err := ctx.archiveName(cfg)
	if err != nil {
		return err
	}
	collection, err := ctx.collectionName(cfg)
	if err != nil {
		return err
	}
	filter, err := ctx.listingFilter()
	if err != nil {
		return err
	}
	patterns, err := cfg.CompileNamePatterns()
	if err != nil {
		return err
	}

	lock, err := runlock.Acquire(cfg.Paths.WorkDir)
	if err != nil {
		return err
	}
	defer lock.Release()

	rc, err := ingest.NewRunContext(cfg, opts.mode)
	if err != nil {
		return err
	}
	retain := opts.retainOverrides || cfg.Tool.RetainOverrides
	defer rc.Cleanup(retain)

	logger, logPath, err := logging.NewForRun(cfg.Paths.LogDir, rc.ID, cfg.Logging.Level, ctx.logFormat(cfg))
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger = logger.With(logging.String(logging.FieldRunID, rc.ID))
	logger.Info("run starting",
		logging.String("mode", opts.mode.String()),
		logging.String(logging.FieldCollection, collection),
		logging.Int("sources", len(sources)))

	clients, err := buildClients(cfg, opts.mode)
	if err != nil {
		return err
	}

	var index *fileindex.Index
	if cfg.Archive.FileIndexPath != "" {
		index, err = fileindex.Open(cfg.Archive.FileIndexPath)
		if err != nil {
			return err
		}
		defer index.Close()
	}

	accOpts := []ingest.AccumulatorOption{ingest.WithNamePatterns(patterns)}
	if opts.mode.Store {
		accOpts = append(accOpts,
			ingest.WithStorer(ingest.NewStorer(clients.store, archive, cfg.Store.Stream, logger)))
	}
	acc := ingest.NewAccumulator(ingest.NewKeywordAdapter(archive, collection), logger, accOpts...)

	deps := containers.Deps{Ledger: rc.Ledger}
	if clients.store != nil {
		deps.Store = clients.store
	}
	if clients.depot != nil {
		deps.Depot = clients.depot
	}

	for _, source := range sources {
		if err := drainSource(signalCtx, rc, acc, source, deps, filter); err != nil {
			logging.ErrorWithContext(logger, "drain failed", "drain_failed",
				logging.String("source", source), logging.Error(err))
			return err
		}
	}

	if index != nil {
		if err := ingest.ResolveProvenance(signalCtx, rc, index); err != nil {
			return err
		}
	}

	summary := ingest.NewSummary(rc)
	var runErr error
	if opts.mode.Ingest {
		driverOpts := []ingest.DriverOption{
			ingest.WithToolFiles(cfg.Tool.ConfigPath, cfg.Tool.DefaultPath),
			ingest.WithRetainOverrides(retain),
		}
		if index != nil {
			driverOpts = append(driverOpts, ingest.WithPlaneRecorder(index))
		}
		driver := ingest.NewDriver(clients.repo, clients.converter, logger, driverOpts...)
		summary, runErr = driver.Run(signalCtx, rc)
	}

	rc.Ledger.Report(logger)
	renderSummary(out, rc, summary, logPath)

	if runErr != nil {
		return runErr
	}
	if failed := summary.Failed(); failed > 0 {
		return fmt.Errorf("%d of %d planes failed", failed, len(summary.Planes))
	}
	if opts.mode.Commit() && summary.Errors > 0 {
		return fmt.Errorf("run recorded %d errors", summary.Errors)
	}
	return nil
}

// runClients holds the service clients a run's mode requires. Unconfigured
// optional clients stay nil; required ones fail construction.
type runClients struct {
	store     *stores.Client
	depot     *depot.Client
	repo      *repository.Client
	converter *fits2plane.Client
}

func buildClients(cfg *config.Config, mode ingest.Mode) (*runClients, error) {
	clients := &runClients{}
	var err error

	if cfg.Store.URL != "" {
		clients.store, err = stores.New(cfg.Store.URL, time.Duration(cfg.Store.TimeoutSeconds)*time.Second)
		if err != nil {
			return nil, err
		}
	} else if mode.Store {
		return nil, fmt.Errorf("store mode requires store.url to be configured")
	}

	if cfg.Depot.URL != "" {
		clients.depot, err = depot.New(cfg.Depot.URL, time.Duration(cfg.Depot.TimeoutSeconds)*time.Second)
		if err != nil {
			return nil, err
		}
	}

	if mode.Ingest {
		base := time.Duration(cfg.Repository.RetryBaseSeconds) * time.Second
		clients.repo, err = repository.New(cfg.Repository.URL,
			time.Duration(cfg.Repository.TimeoutSeconds)*time.Second,
			repository.WithRetries(cfg.Repository.RetryAttempts),
			repository.WithBackoff(base, base<<3))
		if err != nil {
			return nil, err
		}
		clients.converter, err = fits2plane.New(cfg.Tool.Binary, cfg.Tool.TimeoutSeconds)
		if err != nil {
			return nil, err
		}
	}

	return clients, nil
}

// drainSource opens one source as a container and drains it. The container
// closes before the next source opens so backing resources never stack.
func drainSource(ctx context.Context, rc *ingest.RunContext, acc *ingest.Accumulator, source string, deps containers.Deps, filter containers.Filter) error {
	container, err := containers.Open(ctx, source, rc.FilesDir, deps, filter)
	if err != nil {
		return err
	}
	defer container.Close()

	return acc.Drain(ctx, rc, container)
}
