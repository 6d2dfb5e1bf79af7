// Copyright 2015-2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package postgres

import (
	"database/sql"

	migrate "github.com/rubenv/sql-migrate"
)

// This file maintains the database migration code.  See
// https://github.com/rubenv/sql-migrate for details of what goes in
// here.  This runs "outside" the normal profile flow, either at
// initial startup or from an external tool.

var migrationSource = &migrate.MemoryMigrationSource{
	Migrations: []*migrate.Migration{
		{
			Id: "1-profile",
			Up: []string{
				`CREATE TABLE profile(
					address VARCHAR(42) PRIMARY KEY,
					username VARCHAR(20) NOT NULL,
					display_name TEXT NOT NULL DEFAULT '',
					bio TEXT NOT NULL DEFAULT '',
					avatar_url TEXT NOT NULL DEFAULT '',
					links BYTEA,
					created_at TIMESTAMP WITH TIME ZONE NOT NULL,
					CONSTRAINT profile_username_key UNIQUE(username)
				)`,
				`CREATE INDEX profile_created_at ON profile(created_at DESC)`,
			},
			Down: []string{
				`DROP TABLE profile`,
			},
		},
	},
}

// Upgrade upgrades a database to the latest database schema version.
func Upgrade(db *sql.DB) error {
	_, err := migrate.Exec(db, "postgres", migrationSource, migrate.Up)
	return err
}

// Drop clears a database by running all of the migrations in reverse,
// ultimately resulting in dropping all of the tables.
func Drop(db *sql.DB) error {
	_, err := migrate.Exec(db, "postgres", migrationSource, migrate.Down)
	return err
}
