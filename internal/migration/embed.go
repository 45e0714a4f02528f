// Package migration applies the embedded schema migrations on startup,
// before the seed and sync modules touch the database.
package migration

import "embed"

const migrationsDir = "migrations"

//go:embed migrations/*.up.sql
var embeddedMigrations embed.FS
