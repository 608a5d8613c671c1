package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

// Migrator wraps goose so migrations run at startup against the same
// *sql.DB the repositories use.
type Migrator struct {
	db             *sql.DB
	migrationsPath string
	log            *zap.Logger
}

// NewMigrator sets the MySQL dialect and returns a Migrator.
func NewMigrator(db *sql.DB, migrationsPath string, log *zap.Logger) (*Migrator, error) {
	if err := goose.SetDialect("mysql"); err != nil {
		return nil, fmt.Errorf("set goose dialect: %w", err)
	}
	return &Migrator{db: db, migrationsPath: migrationsPath, log: log}, nil
}

// Run applies all pending migrations.
func (mg *Migrator) Run(ctx context.Context) error {
	mg.log.Info("applying database migrations", zap.String("dir", mg.migrationsPath))

	if err := goose.UpContext(ctx, mg.db, mg.migrationsPath); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, err := goose.GetDBVersionContext(ctx, mg.db)
	if err != nil {
		return fmt.Errorf("get version: %w", err)
	}
	mg.log.Info("migrations applied", zap.Int64("version", version))
	return nil
}
