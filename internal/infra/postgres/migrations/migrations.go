package migrations

import "github.com/uptrace/bun/migrate"

// Migrations holds the schema migrations, registered by the numbered files.
var Migrations = migrate.NewMigrations()
