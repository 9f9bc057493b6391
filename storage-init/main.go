package main

import (
	"context"
	"flag"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	log "github.com/sirupsen/logrus"

	"taskboard/board-api/config"
	"taskboard/board-api/storage"
)

func main() {
	envFile := flag.String("env-file", ".env", "optional dotenv file")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}
	log.WithField("driver", cfg.StoreDriver).Info("storage init starting")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	switch cfg.StoreDriver {
	case storage.DriverPostgres:
		if err := migrateDatabase(ctx, cfg.DatabaseURL); err != nil {
			log.Fatalf("migrate: %v", err)
		}
	case storage.DriverTables:
		if err := storage.CreateTables(ctx, cfg.StorageConnectionString, cfg.BoardsTable, cfg.TasksTable); err != nil {
			log.Fatalf("create tables: %v", err)
		}
	default:
		log.Infof("nothing to provision for %s store", cfg.StoreDriver)
	}

	log.Info("storage init complete")
}

func migrateDatabase(ctx context.Context, url string) error {
	db, err := sqlx.ConnectContext(ctx, "postgres", url)
	if err != nil {
		return err
	}
	defer db.Close()
	return storage.Migrate(db.DB)
}
