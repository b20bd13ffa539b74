package repository

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// InitDB opens (or creates) a SQLite database at the given path and ensures
// all required tables exist.
func InitDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return db, nil
}

func createTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS pricing_rules (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			courier TEXT NOT NULL,
			first_weight REAL NOT NULL,
			first_weight_price REAL NOT NULL,
			extra_weight_price REAL NOT NULL,
			base_operation_fee REAL NOT NULL,
			tolerance_express_fee REAL NOT NULL,
			tolerance_packaging_fee REAL NOT NULL,
			enabled INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pricing_rules_courier ON pricing_rules(courier)`,

		`CREATE TABLE IF NOT EXISTS batches (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			courier TEXT NOT NULL,
			reconciliation_month TEXT NOT NULL,
			total_difference REAL NOT NULL DEFAULT 0,
			exception_count INTEGER NOT NULL DEFAULT 0,
			pending_exception_count INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'draft',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_batches_status ON batches(status)`,
		`CREATE INDEX IF NOT EXISTS idx_batches_courier ON batches(courier)`,

		`CREATE TABLE IF NOT EXISTS shipments (
			id TEXT PRIMARY KEY,
			batch_id TEXT NOT NULL,
			waybill_number TEXT NOT NULL,
			courier TEXT NOT NULL,
			province TEXT NOT NULL,
			shipping_date DATETIME NOT NULL,
			total_difference REAL NOT NULL DEFAULT 0,
			exception_types TEXT NOT NULL DEFAULT '[]',
			conclusion TEXT NOT NULL DEFAULT 'pending',
			processing_note TEXT,
			raw_data TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			FOREIGN KEY (batch_id) REFERENCES batches(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_shipments_batch ON shipments(batch_id)`,
		`CREATE INDEX IF NOT EXISTS idx_shipments_waybill ON shipments(waybill_number)`,
		`CREATE INDEX IF NOT EXISTS idx_shipments_conclusion ON shipments(conclusion)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:60], err)
		}
	}

	return nil
}
