// Package migration applies versioned SQL schema changes to the taskflow SQLite
// database.
//
// Migration files are named {version}_{description}.sql and are read from an
// fs.FS, normally the files embedded under sql/. Each file runs in its own
// transaction together with the schema_migrations bookkeeping row, so a failed
// file leaves no trace. Checksums of applied files are compared on every run
// and a modified file aborts the migration.
//
// Example usage:
//
//	db, err := migration.Open(migration.DefaultSQLiteConfig("taskflow.db"))
//	manager := migration.NewManager(migration.NewScanner(migration.Files), migration.NewSQLiteExecutor(db), logger)
//	if _, err := manager.Run(ctx); err != nil {
//		return err
//	}
package migration
