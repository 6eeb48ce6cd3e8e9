// Package migration applies versioned SQL migrations to the briefings SQLite
// database.
//
// Migration files live in an fs.FS (normally the embedded migrations directory
// of the sqlite package) and follow the naming convention
// {version}_{description}.sql, for example "001_initial_schema.sql". Each file
// runs inside its own transaction and is recorded in the schema_migrations
// table so it is applied at most once.
//
// Example usage:
//
//	scanner := NewFileScanner(migrationsFS)
//	manager := NewMigrationManager(scanner, NewSQLiteExecutor(db), "migrations", logger)
//	if err := manager.RunMigrations(ctx); err != nil {
//		return err
//	}
package migration
