package persistence

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsDir = "migrations"

// RunMigrations applies every pending embedded migration.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	if pool == nil {
		logger.Warn("no postgres pool available; skipping migrations")
		return nil
	}
	return withGoose(pool, logger, func(db *sql.DB) error {
		if err := goose.UpContext(ctx, db, migrationsDir); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		version, err := goose.GetDBVersionContext(ctx, db)
		if err != nil {
			return fmt.Errorf("read schema version: %w", err)
		}
		logger.Info("migrations applied", zap.Int64("version", version))
		return nil
	})
}

// RollbackMigration reverts the most recent migration.
func RollbackMigration(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	if pool == nil {
		return errors.New("postgres is not configured")
	}
	return withGoose(pool, logger, func(db *sql.DB) error {
		return goose.DownContext(ctx, db, migrationsDir)
	})
}

// SchemaVersion reports the latest applied migration.
func SchemaVersion(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) (int64, error) {
	if pool == nil {
		return 0, errors.New("postgres is not configured")
	}
	var version int64
	err := withGoose(pool, logger, func(db *sql.DB) error {
		v, err := goose.GetDBVersionContext(ctx, db)
		version = v
		return err
	})
	return version, err
}

func withGoose(pool *pgxpool.Pool, logger *zap.Logger, fn func(*sql.DB) error) error {
	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(gooseLogger{logger: logger.Sugar()})
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()
	return fn(db)
}

// gooseLogger routes goose output through zap. Fatalf is downgraded to an error log
// so a failed migration surfaces as a returned error instead of an exit.
type gooseLogger struct {
	logger *zap.SugaredLogger
}

func (l gooseLogger) Printf(format string, v ...interface{}) {
	l.logger.Infof(strings.TrimSuffix(format, "\n"), v...)
}

func (l gooseLogger) Fatalf(format string, v ...interface{}) {
	l.logger.Errorf(strings.TrimSuffix(format, "\n"), v...)
}
