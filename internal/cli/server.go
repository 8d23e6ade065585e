package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"scenario-solver-service/internal/app"
	"scenario-solver-service/internal/config"
	"scenario-solver-service/internal/engine"
	"scenario-solver-service/internal/infra/files"
	"scenario-solver-service/internal/infra/memory"
	pgstore "scenario-solver-service/internal/infra/postgres"
	redisstore "scenario-solver-service/internal/infra/redis"
	transport "scenario-solver-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the scenario server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	// Run on SIGHUP so edited scenario files are picked up without a restart.
	var reloaders []func()

	var definitions app.DefinitionLoader
	var results app.ResultRecorder = memory.NewResultRecorder()
	switch {
	case cfg.Postgres.URL != "":
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		definitions = pgstore.NewDefinitionLoader(pool)

		db, err := openBunDB(cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		results = pgstore.NewResultRecorder(db)
		log.Info("Serving scenarios from postgres")
	case cfg.Scenarios.Dir != "":
		dirLoader := files.NewDirLoader(cfg.Scenarios.Dir, log)
		reloaders = append(reloaders, dirLoader.Reset)
		definitions = dirLoader
		log.Info("Serving scenarios from directory", zap.String("dir", cfg.Scenarios.Dir))
	default:
		definitions = files.NewLoader(files.Samples(), log)
		log.Info("Serving bundled sample scenarios")
	}

	eng := engine.New(log)
	publisher := app.NewPublishingLoader(definitions, eng, log)

	scenarioTTL := config.TTLDuration(cfg.Scenarios.TTL, 10*time.Minute)
	attemptTTL := config.TTLDuration(cfg.Attempts.TTL, 2*time.Hour)

	var scenarios app.ScenarioRepository
	var attempts app.AttemptRepository
	if redisClient != nil {
		scenarios = redisstore.NewScenarioRepository(redisClient, publisher, scenarioTTL, log)
		attempts = redisstore.NewAttemptStore(redisClient, attemptTTL)
	} else {
		cache := memory.NewScenarioRepository(publisher, scenarioTTL)
		reloaders = append(reloaders, cache.Purge)
		scenarios = cache
		store := memory.NewAttemptStore(attemptTTL)
		go sweepAttempts(ctx, store, attemptTTL/4, log)
		attempts = store
	}

	service := app.NewScenarioService(scenarios, attempts, results, eng, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())
	transport.Register(mux, service, log)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("Starting scenario service", zap.String("port", finalPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Failed to start server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	waitForShutdown(ctx, stop, hup, reloaders, log)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// waitForShutdown blocks until a stop signal or ctx cancellation, running
// reloaders on every reload signal in between.
func waitForShutdown(ctx context.Context, stop, reload <-chan os.Signal, reloaders []func(), log *zap.Logger) {
	for {
		select {
		case <-reload:
			if len(reloaders) == 0 {
				log.Info("Reload requested but scenario source has no cache to refresh")
				continue
			}
			for _, fn := range reloaders {
				fn()
			}
			log.Info("Scenario content reloaded")
		case <-stop:
			log.Info("Shutting down server")
			return
		case <-ctx.Done():
			log.Info("Context canceled, shutting down server")
			return
		}
	}
}

func sweepAttempts(ctx context.Context, store *memory.AttemptStore, every time.Duration, log *zap.Logger) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := store.Sweep(); removed > 0 {
				log.Debug("Swept expired attempts", zap.Int("removed", removed))
			}
		}
	}
}
