package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"scenario-solver-service/internal/config"
	"scenario-solver-service/internal/engine"
	pgstore "scenario-solver-service/internal/infra/postgres"
	redisstore "scenario-solver-service/internal/infra/redis"
)

// NewSeedCmd validates scenario files and upserts them into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <file>...",
		Short: "Validate scenario files and store them in Postgres",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), *configPath, args, cmd.OutOrStdout())
		},
	}
}

func runSeed(ctx context.Context, configPath string, names []string, out io.Writer) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := newCommandLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	defs, failed := validateFiles(engine.New(log), names, out)
	if failed > 0 {
		return fmt.Errorf("refusing to seed: %d of %d scenario file(s) failed validation", failed, len(names))
	}

	if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
		return err
	}
	db, err := openBunDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := pgstore.NewSeeder(db).Seed(ctx, defs...); err != nil {
		return fmt.Errorf("seed scenarios: %w", err)
	}

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		cache := redisstore.NewScenarioRepository(client, nil, 0, log)
		for _, def := range defs {
			if err := cache.Invalidate(ctx, def.ID); err != nil {
				log.Warn("Failed to invalidate cached scenario", zap.String("scenarioID", def.ID), zap.Error(err))
			}
		}
	}

	for _, def := range defs {
		log.Info("Scenario seeded", zap.String("scenarioID", def.ID))
	}
	return nil
}
