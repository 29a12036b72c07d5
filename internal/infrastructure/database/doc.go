// Package database provides SQLite connectivity for WebGate.
//
// The database holds the audit log and, when nvm.backend is "sqlite", the
// NVM region rows that carry the device secret.
//
// This package manages:
//   - Database connection with WAL mode for concurrent access
//   - Embedded schema migrations
//   - Connection lifecycle and transactions (WithTx)
//
// Security Considerations:
//   - All queries use parameterised statements
//   - Database file permissions are set to 0600 (owner read/write only)
//
// Usage:
//
//	db, err := database.Open(database.FromConfig(cfg.Database))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Migrations are forward-only files named YYYYMMDD_HHMMSS_description.sql,
// registered with RegisterSchema. The migrations package registers the
// WebGate schema when imported.
package database
