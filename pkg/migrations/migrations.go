// Package migrations holds the library database schema as bun migrations.
// The API server brings the schema up to date on startup; cmd/migrations
// runs the same set standalone.
package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

// Migrations is the registry every migration file adds itself to via init.
var Migrations = migrate.NewMigrations()

// BringUpToDate applies any unapplied migrations and returns the group that
// ran, which is empty when the schema was already current.
func BringUpToDate(ctx context.Context, db *bun.DB) (*migrate.MigrationGroup, error) {
	migrator := migrate.NewMigrator(db, Migrations)
	if err := migrator.Init(ctx); err != nil {
		return nil, errors.WithStack(err)
	}

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return group, nil
}
