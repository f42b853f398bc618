package repository

import (
	"testing"

	"github.com/mesopotato/enrich-justice/internal/model"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every connection to :memory: is its own database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&model.Summary{},
		&model.ParsedDocument{},
		&model.RawDocument{},
		&model.FederalArticle{},
		&model.CantonalArticle{},
		&model.ArticleVector{},
	))
	return db
}

func strPtr(s string) *string { return &s }
