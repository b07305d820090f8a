// Package app wires the Ripple gateway runtime: config, logging, the HTTP
// surface, and the realtime core's backing stores.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"ripple/cmd/internal/realtime"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

// App owns the HTTP server, the gateway, and the lifecycle of the DB pool and
// Redis client.
type App struct {
	cfg Config
	log Logger

	dbPool    *pgxpool.Pool
	dbEnabled bool

	rdb          *redis.Client
	redisEnabled bool

	gw      *realtime.Gateway
	promReg *prometheus.Registry
}

// New constructs a fully wired App instance from config and logger.
func New(cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel)
	}

	ctx := context.Background()
	instanceID := uuid.NewString()

	deps := realtime.GatewayDeps{
		Registry: realtime.NewConnectionRegistry(log),
		Tasks:    realtime.NewTaskRunner(log, 4, 256),
	}

	var (
		dbPool    *pgxpool.Pool
		dbEnabled bool
	)
	if cfg.DatabaseURL != "" {
		pool, err := NewDBPool(ctx, cfg)
		if err != nil {
			return nil, err
		}

		store, err := realtime.NewPostgresStore(pool)
		if err != nil {
			pool.Close()
			return nil, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}

		rooms, err := realtime.NewPostgresRoomDirectory(pool)
		if err != nil {
			pool.Close()
			return nil, err
		}

		deps.Store = store
		deps.Rooms = rooms
		dbPool = pool
		dbEnabled = true
		log.Info("db.enabled.postgres_store")
	} else {
		log.Info("db.disabled.inmemory_store")
	}

	var (
		rdb          *redis.Client
		redisEnabled bool
	)
	if cfg.RedisURL != "" {
		client, err := NewRedisClient(ctx, cfg)
		if err != nil {
			if dbPool != nil {
				dbPool.Close()
			}
			return nil, err
		}

		presence, err := realtime.NewRedisPresenceSet(client)
		if err == nil {
			deps.Presence = presence
		}
		cache, err := realtime.NewRedisRecentCache(client, cfg.CacheCapacity)
		if err == nil {
			deps.Cache = cache
		}
		relay, err := realtime.NewRedisRelay(log, client)
		if err == nil {
			deps.Relay = relay
		}

		rdb = client
		redisEnabled = true
		log.Info("redis.enabled.shared_bus")
	} else {
		deps.Cache = realtime.NewMemoryRecentCache(cfg.CacheCapacity)
		log.Info("redis.disabled.local_bus")
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	deps.Metrics = realtime.NewMetrics(promReg)

	gw := realtime.NewGateway(log, realtime.GatewayConfig{
		InstanceID:       instanceID,
		WriteTimeout:     cfg.WSWriteTimeout,
		ReadIdleTimeout:  cfg.WSReadIdleTimeout,
		SendQueueSize:    cfg.WSSendQueue,
		HeartbeatEvery:   cfg.WSHeartbeatInterval,
		HeartbeatTimeout: cfg.WSHeartbeatTimeout,
		RateEvents:       cfg.WSRateEvents,
		RateWindow:       cfg.WSRateWindow,
	}, deps)

	if err := gw.Bootstrap(ctx, cfg.DefaultRooms); err != nil {
		gw.Close()
		if dbPool != nil {
			dbPool.Close()
		}
		if rdb != nil {
			_ = rdb.Close()
		}
		return nil, err
	}

	return &App{
		cfg:          cfg,
		log:          log,
		dbPool:       dbPool,
		dbEnabled:    dbEnabled,
		rdb:          rdb,
		redisEnabled: redisEnabled,
		gw:           gw,
		promReg:      promReg,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal
// server error.
func (a *App) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	registerHTTP(mux, a)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           WithRequestLogging(mux, a.log),
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start",
		"addr", a.cfg.HTTPAddr,
		"instance_id", a.gw.InstanceID(),
		"db_enabled", a.dbEnabled,
		"redis_enabled", a.redisEnabled,
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	a.gw.Close()
	if a.dbPool != nil {
		a.dbPool.Close()
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
	}

	a.log.Info("server.stopped")
	return nil
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
