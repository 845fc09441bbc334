package main

import (
	"context"
	"flag"
	"time"

	"rossmann/internal/adapters/config"
	"rossmann/internal/adapters/dataset"
	"rossmann/internal/adapters/postgres"
	pgrepo "rossmann/internal/repository/postgres"
	"rossmann/pkg/logger"
)

// seeder loads the Kaggle test.csv and store.csv into PostgreSQL so the
// service can use the database as store-day source.
func main() {
	// Parse flags
	testPath := flag.String("test", "", "Path to test.csv (default: DATASET_TEST_PATH)")
	storePath := flag.String("store", "", "Path to store.csv (default: DATASET_STORE_PATH)")
	dryRun := flag.Bool("dry-run", false, "Read and join the files without touching the database")
	flag.Parse()

	// Load config
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize logger
	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env, "rossmann-seeder"); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()

	if *testPath == "" {
		*testPath = cfg.Dataset.TestPath
	}
	if *storePath == "" {
		*storePath = cfg.Dataset.StorePath
	}

	log.Infow("Starting seeder",
		"test_path", *testPath,
		"store_path", *storePath,
		"dry_run", *dryRun,
		"database", cfg.Postgres.Database,
	)

	ds, err := dataset.Load(*testPath, *storePath, log)
	if err != nil {
		log.Fatalf("Failed to load dataset: %v", err)
	}

	stores, days := ds.StoreRecords(), ds.DayRecords()

	if *dryRun {
		log.Infow("✅ Dry-run mode: dataset validated", "stores", len(stores), "days", len(days))
		return
	}

	if !cfg.Postgres.Enabled() {
		log.Fatal("POSTGRES_HOST is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	client, err := postgres.NewClient(ctx, cfg.Postgres)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer client.Close()

	if err := client.Health(ctx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	log.Info("Successfully connected to database")

	importer := pgrepo.NewImporter(client.DB())

	if err := importer.Migrate(ctx); err != nil {
		log.Fatalf("Failed to migrate: %v", err)
	}

	start := time.Now()
	if err := importer.Import(ctx, stores, days); err != nil {
		log.Fatalf("Failed to import dataset: %v", err)
	}

	log.Infow("✅ Dataset imported",
		"stores", len(stores),
		"days", len(days),
		"took", time.Since(start),
	)
}
