package database

import (
	"fmt"

	"github.com/mesopotato/enrich-justice/internal/config"
	"github.com/mesopotato/enrich-justice/pkg/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// OpenPostgres connects to a Postgres database with the pgvector extension installed.
func OpenPostgres(cfg config.PostgresConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := configurePool(db, cfg.Pool); err != nil {
		return nil, err
	}
	if cfg.CreateExtension {
		if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
			return nil, fmt.Errorf("create vector extension: %w", err)
		}
	}
	log.Info("Postgres database connected successfully")
	return db, nil
}
