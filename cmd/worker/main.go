package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-zawadi/internal/app"
	"github.com/noah-isme/backend-zawadi/internal/config"
	"github.com/noah-isme/backend-zawadi/internal/obs"
	"github.com/noah-isme/backend-zawadi/internal/pos"
	"github.com/noah-isme/backend-zawadi/internal/queue"
	"github.com/noah-isme/backend-zawadi/internal/resilience"
)

const retryJitter = 0.2

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Str("component", "worker").Logger()
	obs.MustRegisterDomainMetrics(cfg.MetricsNamespace, nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bootCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	deps, err := app.Build(bootCtx, cfg, logger)
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise dependencies")
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.Error().Err(err).Msg("close dependencies")
		}
	}()

	process := deps.Processor().Process
	logger.Info().Str("queue_backend", cfg.Queue.Backend).Str("pos_mode", deps.POS.Mode()).Msg("worker starting")

	switch cfg.Queue.Backend {
	case "asynq":
		err = runAsynq(ctx, cfg, logger, process)
	default:
		err = runRedisQueue(ctx, cfg, deps, logger, process)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("worker stopped with error")
		return
	}
	logger.Info().Msg("worker shutdown complete")
}

func runRedisQueue(ctx context.Context, cfg *config.Config, deps *app.Dependencies, logger zerolog.Logger, process pos.ProcessFunc) error {
	worker := queue.Worker{
		R:                 deps.Redis,
		Prefix:            cfg.Queue.RedisPrefix,
		Kind:              pos.TaskKind,
		Concurrency:       cfg.Queue.Concurrency,
		VisibilityTimeout: cfg.Queue.VisibilityTimeout,
		RetryBase:         cfg.Queue.RetryBase,
		RetryJitter:       retryJitter,
		Store:             queue.NewStore(deps.DB),
		Logger:            &logger,
		Handler:           pos.QueueHandler(process),
	}
	return worker.Run(ctx)
}

func runAsynq(ctx context.Context, cfg *config.Config, logger zerolog.Logger, process pos.ProcessFunc) error {
	opt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return err
	}
	srv := asynq.NewServer(opt, asynq.Config{
		Concurrency: cfg.Queue.Concurrency,
		Queues:      map[string]int{app.AsynqQueue: 1},
		RetryDelayFunc: func(n int, _ error, _ *asynq.Task) time.Duration {
			return resilience.Backoff(cfg.Queue.RetryBase, n+1, retryJitter)
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(_ context.Context, task *asynq.Task, err error) {
			logger.Warn().Err(err).Str("kind", task.Type()).Msg("task failed")
		}),
		ShutdownTimeout: cfg.Queue.VisibilityTimeout,
	})
	if err := srv.Start(pos.NewAsynqMux(process)); err != nil {
		return err
	}
	<-ctx.Done()
	srv.Shutdown()
	return ctx.Err()
}
