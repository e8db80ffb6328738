package main

import (
	"context"
	"fmt"

	"github.com/koustreak/datforge/internal/cli"
	"github.com/koustreak/datforge/internal/database"
	"github.com/koustreak/datforge/internal/database/mysql"
	"github.com/koustreak/datforge/internal/database/postgres"
	"github.com/koustreak/datforge/internal/database/sqlite"
	"github.com/koustreak/datforge/internal/filestore"
	"github.com/koustreak/datforge/internal/filestore/minio"
)

// openDB connects to the configured database. dsn overrides database.dsn.
func openDB(ctx context.Context, driver, dsn string) (database.DB, error) {
	if driver != "" {
		cfg.Database.Driver = driver
	}
	dc, err := cfg.DatabaseConfig(dsn)
	if err != nil {
		return nil, cli.ConfigError("database settings", err)
	}

	var db database.DB
	switch dc.Driver {
	case database.DriverPostgres:
		db, err = postgres.New(ctx, dc)
	case database.DriverMySQL:
		db, err = mysql.New(ctx, dc)
	case database.DriverSQLite:
		db, err = sqlite.New(ctx, dc)
	default:
		return nil, cli.ConfigError(fmt.Sprintf("unsupported driver %q", dc.Driver), nil)
	}
	if err != nil {
		return nil, cli.DBConnectError("connecting to database", err)
	}
	runLog.With().Str("driver", string(dc.Driver)).Logger().Debug("database connected")
	return db, nil
}

// openStore connects to the configured object store.
func openStore(ctx context.Context) (filestore.Store, *filestore.Config, error) {
	sc, err := cfg.StoreConfig()
	if err != nil {
		return nil, nil, cli.ConfigError("store settings", err)
	}
	s, err := minio.New(ctx, sc)
	if err != nil {
		return nil, nil, cli.StoreError("connecting to object store", err)
	}
	return s, sc, nil
}
