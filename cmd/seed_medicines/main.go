package main

import (
	"flag"
	"fmt"
	"log"

	"go.uber.org/zap"

	"github.com/mediguide/backend/config"
	"github.com/mediguide/backend/internal/database"
	"github.com/mediguide/backend/internal/seed"
)

// Wipes the medicine catalogue and re-imports it from the data file.
func main() {
	path := flag.String("file", "", "catalogue file (default MEDICINE_DATA_PATH)")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}
	if *path == "" {
		*path = cfg.MedicineDataPath
	}

	db, err := database.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	count, err := seed.Reseed(db, *path, logger)
	if err != nil {
		logger.Fatal("reseed failed", zap.Error(err))
	}
	fmt.Printf("imported %d medicines from %s\n", count, *path)
}
