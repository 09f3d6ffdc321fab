// Package app wires every component into a runnable process. Run is the
// single entry point cmd/ghingest calls after loading configuration.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/wisbric/ghingest/internal/config"
	"github.com/wisbric/ghingest/internal/httpserver"
	"github.com/wisbric/ghingest/internal/platform"
	"github.com/wisbric/ghingest/internal/telemetry"
	"github.com/wisbric/ghingest/pkg/avatar"
	"github.com/wisbric/ghingest/pkg/blobdownload"
	"github.com/wisbric/ghingest/pkg/blobstore"
	"github.com/wisbric/ghingest/pkg/fetch"
	"github.com/wisbric/ghingest/pkg/fetchguard"
	"github.com/wisbric/ghingest/pkg/githubapi"
	"github.com/wisbric/ghingest/pkg/ingest"
	"github.com/wisbric/ghingest/pkg/jobs"
	"github.com/wisbric/ghingest/pkg/kv"
	"github.com/wisbric/ghingest/pkg/orchestrator"
	"github.com/wisbric/ghingest/pkg/pushevent"
	"github.com/wisbric/ghingest/pkg/ratelimit"
	"github.com/wisbric/ghingest/pkg/store"
)

const defaultStalenessThreshold = 5 * time.Minute

// Job payload shapes mirrored from pkg/pushevent's unexported equivalents:
// the queue is class-agnostic, so the runtime must decode each class's
// args into its own matching struct.
type fetchRepoArgs struct {
	Owner string `json:"owner"`
	Name  string `json:"name"`
}

type fetchUserArgs struct {
	Login string `json:"login"`
}

type fetchOrgArgs struct {
	Login string `json:"login"`
}

// Run takes the loaded config, connects to infrastructure, and starts the mode cfg
// selects: "worker" runs the ingestion loop and job runtime alongside the
// observability HTTP surface; "metrics" serves only that surface.
func Run(ctx context.Context, cfg *config.Config) error {
	logger := telemetry.NewLogger(cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("starting ghingest", "mode", cfg.Mode, "metrics_addr", cfg.MetricsAddr())

	db, err := platform.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	rdb, err := platform.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error("closing redis", "error", err)
		}
	}()

	if err := platform.RunGlobalMigrations(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("migrations applied")

	metricsReg := telemetry.NewRegistry()

	srv := httpserver.NewServer(logger, db, rdb, metricsReg)
	httpSrv := &http.Server{
		Addr:         cfg.MetricsAddr(),
		Handler:      srv,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("observability server listening", "addr", cfg.MetricsAddr())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
		close(errCh)
	}()

	switch cfg.Mode {
	case "metrics":
		// Observability surface only; nothing else to run.

	case "worker":
		runtime, worker, err := buildWorker(cfg, logger, db, rdb)
		if err != nil {
			return fmt.Errorf("building worker: %w", err)
		}
		go runJobRuntime(ctx, runtime, logger)
		go runIngestionWorker(ctx, worker, logger)

	default:
		return fmt.Errorf("unknown mode: %s", cfg.Mode)
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// buildWorker wires every collaborator the "worker" mode needs: the rate
// coordinator and GitHub client, the blob download/store pair, the four
// row stores, the fetch guard and three fetchers, the push-event handler,
// and the job runtime with all five job classes registered.
func buildWorker(cfg *config.Config, logger *slog.Logger, db *pgxpool.Pool, rdb *redis.Client) (*jobs.Runtime, *ingest.Worker, error) {
	kvStore := kv.NewRedis(rdb)
	limiter := ratelimit.NewManager(kvStore, logger)
	client := githubapi.New(cfg.GitHubAPIBaseURL, cfg.GitHubAPIToken, limiter)

	downloader := blobdownload.New()
	blobs, err := blobstore.New(context.Background(), blobstore.Config{
		Bucket:          cfg.AvatarS3Bucket,
		Region:          cfg.AWSRegion,
		AccessKeyID:     cfg.AWSAccessKeyID,
		SecretAccessKey: cfg.AWSSecretAccessKey,
		Endpoint:        cfg.AWSEndpointURL,
		ForcePathStyle:  cfg.AWSForcePathStyle,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("building blob store: %w", err)
	}

	pushEventStore := store.NewPushEventStore(db)
	userStore := store.NewUserStore(db)
	repoStore := store.NewRepositoryStore(db)
	orgStore := store.NewOrganizationStore(db)

	guard := fetchguard.New(resolveStalenessThreshold(cfg.StalenessThresholdMinutes, logger))

	queue := jobs.NewRedisQueue(rdb)

	userFetcher := fetch.NewUserFetcher(client, userStore, guard, queue, logger)
	repoFetcher := fetch.NewRepositoryFetcher(client, repoStore, guard, logger)
	orgFetcher := fetch.NewOrganizationFetcher(client, orgStore, guard, logger)

	pushHandler := pushevent.NewHandler(pushEventStore, queue, logger)
	avatarPipeline := avatar.NewPipeline(downloader, blobs, userStore)

	runtime := jobs.NewRuntime(queue, logger)

	runtime.Handle(jobs.ClassHandleEvent, func(ctx context.Context, job jobs.Job) error {
		var event githubapi.Event
		if err := json.Unmarshal(job.Args, &event); err != nil {
			return fmt.Errorf("decoding handle-event args: %w", err)
		}
		return pushHandler.Handle(ctx, event)
	})

	runtime.Handle(jobs.ClassFetchRepo, func(ctx context.Context, job jobs.Job) error {
		var args fetchRepoArgs
		if err := json.Unmarshal(job.Args, &args); err != nil {
			return fmt.Errorf("decoding fetch-repo args: %w", err)
		}
		_, err := repoFetcher.Fetch(ctx, args.Owner, args.Name)
		return err
	})

	runtime.Handle(jobs.ClassFetchUser, func(ctx context.Context, job jobs.Job) error {
		var args fetchUserArgs
		if err := json.Unmarshal(job.Args, &args); err != nil {
			return fmt.Errorf("decoding fetch-user args: %w", err)
		}
		_, err := userFetcher.Fetch(ctx, args.Login)
		return err
	})

	runtime.Handle(jobs.ClassFetchOrg, func(ctx context.Context, job jobs.Job) error {
		var args fetchOrgArgs
		if err := json.Unmarshal(job.Args, &args); err != nil {
			return fmt.Errorf("decoding fetch-org args: %w", err)
		}
		_, err := orgFetcher.Fetch(ctx, args.Login)
		return err
	})

	runtime.Handle(jobs.ClassProcessAvatar, func(ctx context.Context, job jobs.Job) error {
		var args avatar.Args
		if err := json.Unmarshal(job.Args, &args); err != nil {
			return fmt.Errorf("decoding process-avatar args: %w", err)
		}
		return avatarPipeline.Process(ctx, args)
	})

	orch := orchestrator.New(client, queue)
	pollInterval := ingest.ResolvePollInterval(cfg.IngestionPollInterval, logger)
	worker := ingest.New(orch, logger, pollInterval)

	return runtime, worker, nil
}

func runJobRuntime(ctx context.Context, runtime *jobs.Runtime, logger *slog.Logger) {
	logger.Info("job runtime started")
	runtime.RunLoop(ctx)
	logger.Info("job runtime stopped")
}

func runIngestionWorker(ctx context.Context, worker *ingest.Worker, logger *slog.Logger) {
	if err := worker.Run(ctx); err != nil {
		logger.Error("ingestion worker exited with error", "error", err)
	}
}

// resolveStalenessThreshold parses raw as a whole number of minutes,
// falling back to the 5-minute default (with a warning) on any parse
// failure or non-positive value, mirroring ingest.ResolvePollInterval's
// fallback-rather-than-fail behavior for operator-tunable settings.
func resolveStalenessThreshold(raw string, logger *slog.Logger) time.Duration {
	if raw == "" {
		return defaultStalenessThreshold
	}
	minutes, err := strconv.Atoi(raw)
	if err != nil || minutes <= 0 {
		logger.Warn("invalid STALENESS_THRESHOLD_MINUTES, falling back to default",
			"value", raw, "default", defaultStalenessThreshold)
		return defaultStalenessThreshold
	}
	return time.Duration(minutes) * time.Minute
}
