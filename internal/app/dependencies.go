package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-zawadi/internal/cache"
	"github.com/noah-isme/backend-zawadi/internal/cart"
	"github.com/noah-isme/backend-zawadi/internal/config"
	"github.com/noah-isme/backend-zawadi/internal/customize"
	"github.com/noah-isme/backend-zawadi/internal/db"
	"github.com/noah-isme/backend-zawadi/internal/events"
	"github.com/noah-isme/backend-zawadi/internal/lock"
	"github.com/noah-isme/backend-zawadi/internal/menu"
	"github.com/noah-isme/backend-zawadi/internal/order"
	"github.com/noah-isme/backend-zawadi/internal/pos"
	"github.com/noah-isme/backend-zawadi/internal/queue"
	"github.com/noah-isme/backend-zawadi/internal/resilience"
)

// AsynqQueue is the asynq queue POS submissions are scheduled on.
const AsynqQueue = "pos"

// Dependencies holds the services shared by the API and the worker.
type Dependencies struct {
	Config  *config.Config
	Logger  zerolog.Logger
	DB      *pgxpool.Pool
	Redis   *redis.Client
	Catalog *menu.Catalog

	Locker   *lock.Locker
	Events   *events.Bus
	Queue    queue.Enqueuer
	Tasks    *asynq.Client
	POS      pos.Submitter
	Sessions *customize.Service
	Carts    *cart.Service
	Orders   *order.Service

	closers []func() error
}

// Build loads the catalog and connects Postgres and Redis. Anything opened
// before a failure is closed again.
func Build(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Dependencies, error) {
	d := &Dependencies{Config: cfg, Logger: logger}

	catalog, err := menu.LoadFile(cfg.CatalogPath, menu.Defaults{
		LockInclusions: cfg.CustomizeLockInclusions,
		MaxSauces:      cfg.CustomizeMaxSauces,
	})
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	d.Catalog = catalog

	pool, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	d.DB = pool
	d.closers = append(d.closers, func() error { pool.Close(); return nil })

	rdb, err := NewRedis(ctx, cfg.RedisURL, logger)
	if err != nil {
		d.Close()
		return nil, err
	}
	d.Redis = rdb
	d.closers = append(d.closers, rdb.Close)

	if cfg.Queue.Backend == "asynq" {
		opt, err := asynq.ParseRedisURI(cfg.RedisURL)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("parse asynq redis url: %w", err)
		}
		d.Tasks = asynq.NewClient(opt)
		d.closers = append(d.closers, d.Tasks.Close)
	}

	d.wire()
	return d, nil
}

// wire assembles the domain services on top of the opened connections.
func (d *Dependencies) wire() {
	cfg := d.Config
	prefix := cfg.Queue.RedisPrefix

	d.Locker = &lock.Locker{
		R:            d.Redis,
		Prefix:       prefix,
		RetryBackoff: cfg.LockRetryBackoff,
		MaxWait:      cfg.LockMaxWait,
	}
	d.Events = &events.Bus{
		Store:     &events.PGStore{Pool: d.DB},
		Notifiers: []events.Notifier{events.LogNotifier{Logger: d.Logger}},
	}
	d.Queue = queue.Enqueuer{
		R:           d.Redis,
		Prefix:      prefix,
		DedupTTL:    cfg.Queue.DedupTTL,
		MaxAttempts: cfg.Queue.MaxAttempts,
	}
	d.POS = NewSubmitter(cfg.POS, d.Logger)

	d.Sessions = &customize.Service{
		Catalog: d.Catalog,
		Store:   cache.NewJSON(d.Redis, prefix+":session", cfg.SessionTTL),
		Locker:  d.Locker,
		LockTTL: cfg.LockTTL,
	}
	d.Carts = &cart.Service{
		Catalog: d.Catalog,
		Store:   cache.NewJSON(d.Redis, prefix+":cart", cfg.CartTTL),
		Locker:  d.Locker,
		LockTTL: cfg.LockTTL,
		TaxBps:  cfg.TaxRateBps,
	}
	d.Orders = &order.Service{
		Store:      &order.PGStore{Pool: d.DB},
		Carts:      d.Carts,
		Locker:     d.Locker,
		LockTTL:    cfg.LockTTL,
		TaxBps:     cfg.TaxRateBps,
		Events:     d.Events,
		Dispatcher: d.Dispatcher(),
	}
}

// Dispatcher returns the order dispatcher for the configured queue backend.
func (d *Dependencies) Dispatcher() order.Dispatcher {
	if d.Tasks != nil {
		return pos.AsynqDispatcher{Client: d.Tasks, MaxRetry: d.Config.Queue.MaxAttempts - 1, Queue: AsynqQueue}
	}
	return pos.QueueDispatcher{Queue: d.Queue, MaxAttempts: d.Config.Queue.MaxAttempts}
}

// Processor returns the POS submission processor run by the worker.
func (d *Dependencies) Processor() *order.Processor {
	logger := d.Logger
	return &order.Processor{Svc: d.Orders, POS: d.POS, Logger: &logger}
}

// Close releases connections in reverse order of opening.
func (d *Dependencies) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}

// NewRedis connects to url with tracing instrumentation and checks the
// connection.
func NewRedis(ctx context.Context, url string, logger zerolog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(strings.TrimSpace(url))
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// NewSubmitter picks the HTTP submitter when a POS base URL is configured and
// the local one otherwise.
func NewSubmitter(cfg config.POSConfig, logger zerolog.Logger) pos.Submitter {
	if !cfg.Configured() {
		return pos.LocalSubmitter{Logger: &logger}
	}
	breaker := resilience.NewBreaker(cfg.CircuitMinRequests, cfg.CircuitFailRatio, cfg.CircuitOpenFor).
		WithTarget("pos").
		WithLogger(logger)
	return pos.NewHTTPSubmitter(pos.HTTPConfig{
		BaseURL:     cfg.BaseURL,
		APIKey:      cfg.APIKey,
		Timeout:     cfg.Timeout,
		MaxAttempts: cfg.MaxAttempts,
		BaseBackoff: cfg.RetryBase,
		Breaker:     breaker,
	})
}
