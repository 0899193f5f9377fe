// Package database provides SQLite connectivity for Doorman.
//
// This package manages:
//   - the connection, with WAL mode and a busy timeout
//   - versioned schema migrations read from an fs.FS
//
// Doorman keeps two tables: the devices allowed to open the door and the
// access_events audit trail. Both are defined by the files in /migrations.
//
// Usage:
//
//	db, err := database.Open(ctx, cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
package database
