package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/lifescore-app/backend/internal/config"
	"github.com/lifescore-app/backend/internal/generator"
	"github.com/lifescore-app/backend/internal/graph"
	"github.com/lifescore-app/backend/internal/logging"
	"github.com/lifescore-app/backend/internal/repository"
	"github.com/lifescore-app/backend/internal/service"
)

func main() {
	defaults := generator.DefaultConfig()
	var (
		users           = flag.Int("users", defaults.NumUsers, "number of users to generate")
		endorsements    = flag.Int("endorsements-per-user", defaults.EndorsementsPerUser, "maximum endorsements generated per user")
		approvalRate    = flag.Float64("approval-rate", defaults.ApprovalRate, "fraction of generated endorsements approved by the seed moderator")
		missingChance   = flag.Float64("missing-score-chance", defaults.MissingScoreChance, "probability a user has no cognitive or portfolio score yet")
		seed            = flag.Int64("seed", defaults.Seed, "random seed for deterministic generation")
		workers         = flag.Int("workers", 4, "number of concurrent seeding workers")
		datasetDir      = flag.String("dataset-dir", "", "load users.json from this directory instead of generating")
		outputDir       = flag.String("output-dir", "", "write the generated dataset to this directory without loading it")
		writeStdout     = flag.Bool("stdout", false, "write the generated dataset to stdout instead of loading it")
		generateTimeout = flag.Duration("generate-timeout", 2*time.Minute, "timeout for dataset generation")
	)
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging).With("component", "seed")

	dataset, err := resolveDataset(*datasetDir, generator.Config{
		NumUsers:            *users,
		EndorsementsPerUser: *endorsements,
		ApprovalRate:        clampProbability(*approvalRate),
		MissingScoreChance:  clampProbability(*missingChance),
		Seed:                *seed,
	}, *generateTimeout)
	if err != nil {
		logger.Error("dataset preparation failed", "error", err)
		os.Exit(1)
	}

	if *writeStdout {
		if err := json.NewEncoder(os.Stdout).Encode(dataset); err != nil {
			logger.Error("failed to write dataset to stdout", "error", err)
			os.Exit(1)
		}
		return
	}
	if *outputDir != "" {
		if err := generator.WriteDataset(dataset, *outputDir); err != nil {
			logger.Error("failed to write dataset", "error", err)
			os.Exit(1)
		}
		logger.Info("dataset written", "users", len(dataset.Users), "dir", *outputDir)
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	graphClient, err := buildGraphClient(ctx, cfg)
	if err != nil {
		logger.Error("failed to create graph client", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := graphClient.Close(context.Background()); err != nil {
			logger.Warn("closing graph client failed", "error", err)
		}
	}()

	repo := repository.New(graphClient)
	scoreService := service.NewScoreService(repo, repo, repo, logger)
	endorsementService := service.NewEndorsementService(repo, logger)
	seeder := service.NewSeeder(repo, scoreService, endorsementService, *workers)

	start := time.Now()
	logger.Info("seeding users", "count", len(dataset.Users), "workers", *workers)
	if err := seeder.Seed(ctx, dataset.Users); err != nil {
		logger.Error("seeding failed", "error", err)
		os.Exit(1)
	}

	logger.Info("seeding complete", "duration", time.Since(start).String(), "users", len(dataset.Users))
}

func resolveDataset(datasetDir string, cfg generator.Config, timeout time.Duration) (generator.Dataset, error) {
	if datasetDir != "" {
		return generator.ReadDataset(datasetDir)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return generator.New(cfg).Generate(ctx)
}

func buildGraphClient(ctx context.Context, cfg config.Config) (graph.Client, error) {
	if cfg.Graph.URI == "" {
		return nil, fmt.Errorf("GRAPH_URI is required for seeding")
	}
	opts := graph.Options{
		URI:            cfg.Graph.URI,
		Database:       cfg.Graph.Database,
		Username:       cfg.Graph.Username,
		Password:       cfg.Graph.Password,
		MaxConnections: cfg.Graph.MaxConnections,
	}
	client, err := graph.NewNeo4jClient(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := client.VerifyConnectivity(ctx); err != nil {
		_ = client.Close(ctx)
		return nil, err
	}
	return client, nil
}

func clampProbability(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}
