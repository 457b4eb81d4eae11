package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"credrec/internal/credential/contract"
	"credrec/internal/credential/handler"
	credentialMetrics "credrec/internal/credential/metrics"
	"credrec/internal/credential/service"
	"credrec/internal/host"
	hostMetrics "credrec/internal/host/metrics"
	"credrec/internal/host/storage"
	jwttoken "credrec/internal/jwt_token"
	"credrec/internal/platform/config"
	"credrec/internal/platform/database"
	"credrec/internal/platform/health"
	"credrec/internal/platform/httpserver"
	"credrec/internal/platform/logger"
	"credrec/internal/platform/middleware"
	redisclient "credrec/internal/platform/redis"
	"credrec/pkg/domain"
)

const shutdownTimeout = 10 * time.Second

// main wires the storage backend, host and credential record service behind
// the HTTP router and runs the server until SIGINT or SIGTERM.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Environment)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	healthHandler := health.New(cfg.Environment)
	backend, closeBackend, err := buildBackend(ctx, cfg, log, healthHandler)
	if err != nil {
		return err
	}
	defer closeBackend()

	h, err := host.New(backend,
		host.WithLogger(log),
		host.WithMetrics(hostMetrics.New(prometheus.DefaultRegisterer)),
	)
	if err != nil {
		return err
	}

	svc := service.New(h, contract.New(contractOptions(cfg.Contract)...),
		service.WithLogger(log),
		service.WithMetrics(credentialMetrics.New(prometheus.DefaultRegisterer)),
	)

	var validator middleware.CallerValidator
	if cfg.CallerTokenKey != "" {
		validator = jwttoken.NewJWTService(cfg.CallerTokenKey, jwttoken.DefaultIssuer, jwttoken.DefaultAudience)
	}

	r := newRouter(log)
	healthHandler.Register(r)
	r.Handle("/metrics", promhttp.Handler())
	r.Group(func(r chi.Router) {
		r.Use(middleware.IdentifyCaller(validator, log))
		handler.New(svc, log).Register(r)
	})

	srv := httpserver.New(cfg.Addr, r)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting credrec", "addr", cfg.Addr, "backend", cfg.StorageBackend, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// newRouter installs the process-wide middleware. RequestID runs first so
// request and panic log lines carry the id.
func newRouter(log *slog.Logger) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recovery(log))
	return r
}

// buildBackend opens the configured instance storage and registers its
// readiness check. The returned func releases the backend's connections.
func buildBackend(ctx context.Context, cfg config.Server, log *slog.Logger, hh *health.Handler) (host.Backend, func(), error) {
	switch cfg.StorageBackend {
	case config.BackendRedis:
		client, err := redisclient.Open(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		hh.RegisterCheck("redis", client.Health)
		return storage.NewRedis(client.Client), func() {
			if err := client.Close(); err != nil {
				log.Warn("closing redis client", "error", err)
			}
		}, nil

	case config.BackendPostgres:
		pool, err := database.New(cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("connect database: %w", err)
		}
		if err := database.RunMigrations(pool.DB()); err != nil {
			_ = pool.Close()
			return nil, nil, fmt.Errorf("migrate database: %w", err)
		}
		hh.RegisterCheck("postgres", pool.Health)
		return storage.NewPostgres(pool.DB()), func() {
			if err := pool.Close(); err != nil {
				log.Warn("closing database pool", "error", err)
			}
		}, nil

	default:
		log.Warn("using in-memory instance storage; state is lost on restart")
		return storage.NewInMemory(), func() {}, nil
	}
}

func contractOptions(cfg config.ContractConfig) []contract.Option {
	var opts []contract.Option
	if cfg.InitializeOnce {
		opts = append(opts, contract.WithInitializeOnce())
	}
	if cfg.InitializedUpdatesOnly {
		opts = append(opts, contract.WithInitializedUpdatesOnly())
	}
	if len(cfg.AuthorizedCallers) > 0 {
		callers := make([]domain.Caller, 0, len(cfg.AuthorizedCallers))
		for _, c := range cfg.AuthorizedCallers {
			callers = append(callers, domain.Caller(c))
		}
		opts = append(opts, contract.WithAuthorizer(contract.AllowCallers(callers...)))
	}
	return opts
}
