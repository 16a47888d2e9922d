package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/hackgods/clinic-scheduling-assistant/internal/api"
	"github.com/hackgods/clinic-scheduling-assistant/internal/appointment"
	"github.com/hackgods/clinic-scheduling-assistant/internal/config"
	"github.com/hackgods/clinic-scheduling-assistant/internal/db"
	"github.com/hackgods/clinic-scheduling-assistant/internal/dialogue"
	"github.com/hackgods/clinic-scheduling-assistant/internal/doctor"
	"github.com/hackgods/clinic-scheduling-assistant/internal/logging"
	"github.com/hackgods/clinic-scheduling-assistant/internal/observability/metrics"
	redisclient "github.com/hackgods/clinic-scheduling-assistant/internal/redis"
	"github.com/hackgods/clinic-scheduling-assistant/internal/scheduling"
	"github.com/hackgods/clinic-scheduling-assistant/internal/tool"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Default().WithError(err).Fatal("config load error")
	}

	log := logging.New(cfg.LogLevel)
	log.WithFields(logrus.Fields{
		"env":       cfg.Env,
		"http_port": cfg.HTTPPort,
		"store":     cfg.StoreBackend,
		"provider":  cfg.LLM.Provider,
		"model":     cfg.LLM.Model,
	}).Info("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		store    doctor.Store
		repo     appointment.Repository
		pgPinger api.Pinger
	)
	switch cfg.StoreBackend {
	case config.StorePostgres:
		pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
		pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, db.PoolOptions{MaxConns: int32(cfg.PostgresMaxConn)})
		cancelPg()
		if err != nil {
			log.WithError(err).Fatal("postgres connection error")
		}
		defer pgPool.Close()
		log.Info("connected to Postgres")

		store = doctor.NewPgStore(pgPool)
		repo = appointment.NewPgRepository(pgPool)
		pgPinger = pgPool
	default:
		doctors := doctor.Catalog(gofakeit.New(0), 9)
		store = doctor.NewMemoryStore(doctors...)
		repo = appointment.NewMemoryRepository()
		log.WithField("doctors", len(doctors)).Warn("using in-memory store, data is lost on restart")
	}

	var (
		locker      redisclient.Locker = redisclient.NoopLocker{}
		redisPinger api.Pinger
	)
	if cfg.RedisAddr != "" {
		rdb, err := redisclient.NewRedisClient(rootCtx, redisclient.ClientOptions{
			Addr:        cfg.RedisAddr,
			Username:    cfg.RedisUsername,
			Password:    cfg.RedisPassword,
			PingTimeout: cfg.RedisPingTimeout,
		})
		if err != nil {
			log.WithError(err).Fatal("redis connection error")
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				log.WithError(err).Warn("error closing redis")
			}
		}()
		log.Info("connected to Redis")

		locker = redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL)
		redisPinger = redisPing(rdb)
	}

	model, err := newModelClient(rootCtx, cfg.LLM)
	if err != nil {
		log.WithError(err).Fatal("model client error")
	}

	location, _ := time.LoadLocation(cfg.Timezone)
	mode, _ := doctor.ParseMatchMode(cfg.DoctorMatchMode)

	reg := prometheus.DefaultRegisterer
	directory := doctor.NewDirectory(store, mode)
	svc := scheduling.NewService(directory, repo, scheduling.Policy(cfg.Schedule),
		scheduling.WithLocker(locker),
		scheduling.WithLogger(log),
		scheduling.WithMetrics(metrics.NewSchedulingMetrics(reg)),
	)
	executor := tool.NewExecutor(tool.Registry(directory, svc),
		tool.WithTimeout(cfg.ToolTimeout),
		tool.WithLogger(log),
		tool.WithMetrics(metrics.NewToolMetrics(reg)),
	)
	orchestrator := dialogue.NewOrchestrator(model, executor,
		dialogue.WithModelTimeout(cfg.ModelTimeout),
		dialogue.WithClock(time.Now, location),
		dialogue.WithLogger(log),
		dialogue.WithMetrics(metrics.NewDialogueMetrics(reg)),
	)

	router := api.NewRouter(api.RouterConfig{
		Chat:      orchestrator,
		Directory: directory,
		Scheduler: svc,
		Health:    api.NewHealthHandler(pgPinger, redisPinger, cfg.Env, version),
		Logger:    log,
	})

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.WithField("addr", srv.Addr).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("http server error")
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
		os.Exit(1)
	}
	log.Info("api-server stopped")
}

func redisPing(rdb *redis.Client) api.PingFunc {
	return func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
}
