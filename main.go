// Package main is the entry point for the domain directory API server.
// It initializes all dependencies and starts the HTTP server.
package main

import (
	"context"
	"log"
	"os"

	"metadirectory/src/app/server"
	"metadirectory/src/core/ports"
	"metadirectory/src/infra/cache"
	"metadirectory/src/infra/config"
	"metadirectory/src/infra/db"
	"metadirectory/src/infra/logger"
	"metadirectory/src/infra/repo"
)

func main() {
	if err := run(); err != nil {
		log.Printf("fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New(cfg.Log)
	log.Info("starting application",
		"port", cfg.Server.Port,
		"log_level", cfg.Log.Level,
		"store", cfg.Store.Driver,
	)

	ctx := context.Background()

	var store ports.DirectoryRepository
	switch cfg.Store.Driver {
	case "memory":
		log.Warn("using in-memory store; data is lost on restart")
		store = repo.NewMemoryRepository()
	default:
		pg, err := db.New(ctx, cfg.Database, logger.WithComponent(log, "db"))
		if err != nil {
			return err
		}
		defer pg.Close()

		if cfg.Database.Migrate {
			if err := pg.Migrate(ctx); err != nil {
				return err
			}
		}
		store = repo.NewPostgresRepository(pg, logger.WithComponent(log, "repo"))
	}

	deps := server.Deps{Repo: store, Health: map[string]ports.ExternalService{}}

	rdb, err := cache.NewClient(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
		deps.Tokens = cache.NewTokenCache(store, rdb, cfg.Redis.TokenTTL, logger.WithComponent(log, "token_cache"))
		deps.Health["redis"] = rdb
		log.Info("token cache enabled", "ttl", cfg.Redis.TokenTTL)
	}

	srv := server.New(cfg, log, deps)

	// Run blocks until shutdown signal is received
	return srv.Run()
}
