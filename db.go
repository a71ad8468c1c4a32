// db.go
//
// Best-score store selection for the CLI.
// Responsibilities:
//   - Pick the bestscore.Store implementation named by DB_DRIVER.
//   - Open it, apply migrations, and hand back a matching close func.
//
// Drivers:
//   - sqlite   (default) DB_DSN is a file path, e.g. ./data/app.db.
//   - postgres DB_DSN is a connection string.
//   - memory   nothing survives the process.

package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/tradeloop/internal/bestscore"
	"github.com/robalobadob/tradeloop/internal/config"
)

/**
 * openBestStore opens the store configured in cfg.
 *
 * @returns the store and a close func that is always safe to call.
 */
func openBestStore(ctx context.Context, cfg config.Config) (bestscore.Store, func(), error) {
	switch cfg.DBDriver {
	case "memory":
		log.Info().Msg("best scores kept in memory")
		return bestscore.NewMemory(), func() {}, nil

	case "postgres":
		pg, err := bestscore.ConnectPostgres(ctx, cfg.DBDSN)
		if err != nil {
			return nil, nil, err
		}
		return pg, func() {
			if err := pg.Close(context.Background()); err != nil {
				log.Warn().Err(err).Msg("close postgres")
			}
		}, nil

	case "sqlite":
		db, err := bestscore.OpenSQLite(cfg.DBDSN)
		if err != nil {
			return nil, nil, err
		}
		if err := bestscore.Migrate(db); err != nil {
			db.Close()
			return nil, nil, err
		}
		log.Info().Str("dsn", cfg.DBDSN).Msg("best scores in sqlite")
		return bestscore.NewSQLite(db), func() { db.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.DBDriver)
}
