// Package migration applies versioned schema changes to the marketplace database.
//
// Migrations are read from an fs.FS (normally the files embedded in package sqlstore) and must
// follow the naming convention {version}_{description}.sql, e.g. "001_initial_schema.sql".
// Each migration runs in its own transaction together with the schema_migrations row that
// records it, so a failed file leaves neither partial DDL nor a version entry behind.
//
// Example usage:
//
//	manager := migration.NewManager(migration.NewScanner(files, "migrations"), migration.NewExecutor(db), logger)
//	if err := manager.RunMigrations(ctx); err != nil {
//		return err
//	}
package migration
