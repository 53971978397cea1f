package main

import (
	"log"
	"os"

	"github.com/mlenz/conveyor/internal/api"
	"github.com/mlenz/conveyor/internal/config"
	"github.com/mlenz/conveyor/internal/engine"
	"github.com/mlenz/conveyor/internal/handler"
	"github.com/mlenz/conveyor/internal/pool"
	"github.com/mlenz/conveyor/internal/seal"
	"github.com/mlenz/conveyor/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	logger := config.NewLogger(os.Stdout, cfg.LogLevel)

	logger.Info("conveyor: starting",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"workers", cfg.Workers,
	)

	sealer, err := seal.New(cfg.SealKey)
	if err != nil {
		log.Fatalf("invalid seal key: %v", err)
	}

	db, err := store.NewSQLiteStore(cfg.DBPath, sealer)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	reg := handler.NewRegistry()
	handler.RegisterBuiltins(reg)

	p := pool.New(cfg.Workers, cfg.PoolName, logger)
	eng := engine.NewEngine(db, reg, p, logger)
	defer eng.Close()

	srv := api.NewServer(cfg.ListenAddr, db, reg, eng, logger)

	if err := srv.Run(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
