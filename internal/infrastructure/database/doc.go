// Package database provides SQLite connectivity for the audit trail.
//
// This package manages:
//   - Database connection with WAL mode for concurrent access
//   - Schema migrations loaded from an embedded filesystem
//   - Connection lifecycle and health checks
//
// Security Considerations:
//   - All queries use parameterised statements (no SQL injection)
//   - Database file permissions are set to 0600 (owner read/write only)
//
// Usage:
//
//	db, err := database.Open(database.Config{
//	    Path:        cfg.Audit.Path,
//	    WALMode:     cfg.Audit.WALMode,
//	    BusyTimeout: cfg.Audit.BusyTimeout,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Migration files live in the migrations package and are paired as
// .up.sql / .down.sql by their YYYYMMDD_HHMMSS version prefix.
package database
