package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/stdlib"
	"github.com/pressly/goose/v3"

	"gitlab.com/pdhero/retur/migrations"
)

// Migrate applies the embedded goose migrations through a database/sql view
// of the pool's connection config.
func Migrate(ctx context.Context, database *Database) error {
	sqlDB := stdlib.OpenDB(*database.GetPool().Config().ConnConfig)
	defer sqlDB.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}

	if err := goose.UpContext(ctx, sqlDB, "."); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}
