package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/condohub/billing/internal/logger"
	"github.com/pressly/goose/v3"
)

//go:embed sql/*.sql
var embedded embed.FS

const (
	dir   = "sql"
	table = "billing_schema_migrations"
)

// Up applies every pending migration
func Up(ctx context.Context, db *sql.DB, log *logger.Logger) error {
	if err := setup(log); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db, dir); err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

// Status logs applied and pending migrations without changing the schema
func Status(ctx context.Context, db *sql.DB, log *logger.Logger) error {
	if err := setup(log); err != nil {
		return err
	}
	return goose.StatusContext(ctx, db, dir)
}

func setup(log *logger.Logger) error {
	goose.SetBaseFS(embedded)
	goose.SetTableName(table)
	goose.SetLogger(gooseLogger{log})
	return goose.SetDialect("postgres")
}

// gooseLogger routes goose output through the structured logger
type gooseLogger struct {
	log *logger.Logger
}

func (l gooseLogger) Fatalf(format string, v ...any) {
	l.log.Errorf(format, v...)
}

func (l gooseLogger) Printf(format string, v ...any) {
	l.log.Infof(format, v...)
}
