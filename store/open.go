package store

import (
	"context"
	"fmt"

	"github.com/professorSergio12/Stock-Broker/config"
	"github.com/sirupsen/logrus"
)

// Open connects the store selected by STORE_DRIVER and prepares table unless
// SKIP_MIGRATIONS is set. The returned func releases the connection.
func Open(ctx context.Context, table string, logger *logrus.Logger) (RecordStore, func(), error) {
	switch config.StoreDriver() {
	case config.StoreDriverBigQuery:
		client, err := config.GetBigQueryClient(ctx)
		if err != nil {
			return nil, nil, err
		}
		bq := NewBigQueryStore(client, config.BigQueryDataset())
		if !config.SkipMigrations() {
			if err := bq.EnsureTable(ctx, table); err != nil {
				_ = client.Close()
				return nil, nil, err
			}
		}
		return bq, func() { _ = client.Close() }, nil

	case config.StoreDriverMySQL:
		config.ConnectDatabaseWithRetry()
		db := config.GetDB()
		gs := NewGormStore(db)
		// AutoMigrate can lock the table; SKIP_MIGRATIONS=true leaves it to a separate job.
		if !config.SkipMigrations() {
			if err := gs.Migrate(ctx, table); err != nil {
				return nil, nil, err
			}
		} else {
			logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
		}
		closeFn := func() {
			if sqlDB, err := db.DB(); err == nil && sqlDB != nil {
				_ = sqlDB.Close()
			}
		}
		return gs, closeFn, nil

	default:
		return nil, nil, fmt.Errorf("unknown STORE_DRIVER %q", config.StoreDriver())
	}
}
