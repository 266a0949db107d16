package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// Sentinel conditions surfaced by the store. Callers check them with
// errors.Is; everything else is an unexpected storage failure.
var (
	ErrDuplicateKey       = errors.New("duplicate key")
	ErrNotFound           = errors.New("not found")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// Store is the embedded persistence layer: the pending-operations queue,
// the cache table and the relational mirror all live in one SQLite file.
type Store struct {
	db     *sql.DB
	logger *zerolog.Logger
}

// Open initializes the store, creating tables and indexes on first run.
// A host that cannot provide the database file yields
// ErrStorageUnavailable so callers can degrade instead of crashing.
func Open(path string, logger *zerolog.Logger) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create database directory: %v", ErrStorageUnavailable, err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %v", ErrStorageUnavailable, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: connect to database: %v", ErrStorageUnavailable, err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	if logger != nil {
		logger.Info().Str("path", path).Msg("Banco de dados inicializado")
	}
	return &Store{db: db, logger: logger}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		// Fila de operações pendentes (registros de campo aguardando sync)
		`CREATE TABLE IF NOT EXISTS pending_records (
            id TEXT PRIMARY KEY,
            record_type TEXT NOT NULL,
            data TEXT NOT NULL,
            user_id TEXT NOT NULL,
            created_at DATETIME NOT NULL,
            sync_attempts INTEGER NOT NULL DEFAULT 0,
            last_sync_attempt DATETIME
        )`,
		// Cache genérico chave → blob
		`CREATE TABLE IF NOT EXISTS cache_entries (
            key TEXT PRIMARY KEY,
            data BLOB NOT NULL,
            updated_at DATETIME NOT NULL
        )`,
		// Espelho relacional dos veículos
		`CREATE TABLE IF NOT EXISTS vehicles (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            code TEXT UNIQUE NOT NULL,
            description TEXT,
            category TEXT,
            company TEXT,
            unit TEXT,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		// Espelho das leituras de horímetro
		`CREATE TABLE IF NOT EXISTS horimeter_readings (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            vehicle_id INTEGER NOT NULL,
            reading_date DATETIME NOT NULL,
            horimeter_current REAL NOT NULL DEFAULT 0,
            horimeter_previous REAL NOT NULL DEFAULT 0,
            odometer_current REAL NOT NULL DEFAULT 0,
            odometer_previous REAL NOT NULL DEFAULT 0,
            operator TEXT,
            observation TEXT,
            source TEXT NOT NULL DEFAULT 'sheet',
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            UNIQUE(vehicle_id, reading_date)
        )`,
		// Espelho dos abastecimentos
		`CREATE TABLE IF NOT EXISTS fuel_records (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            vehicle_id INTEGER NOT NULL,
            supply_date DATETIME NOT NULL,
            liters REAL NOT NULL DEFAULT 0,
            fuel_type TEXT,
            unit_price REAL NOT NULL DEFAULT 0,
            horimeter REAL NOT NULL DEFAULT 0,
            odometer REAL NOT NULL DEFAULT 0,
            operator TEXT,
            observation TEXT,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		// Espelho das ordens de serviço
		`CREATE TABLE IF NOT EXISTS service_orders (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            vehicle_id INTEGER NOT NULL,
            opened_at DATETIME NOT NULL,
            scheduled_for DATETIME,
            status TEXT NOT NULL DEFAULT 'open',
            description TEXT,
            responsible TEXT,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,

		`CREATE INDEX IF NOT EXISTS idx_pending_user_id ON pending_records(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_pending_created_at ON pending_records(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_pending_record_type ON pending_records(record_type)`,

		`CREATE INDEX IF NOT EXISTS idx_vehicles_code ON vehicles(code)`,
		`CREATE INDEX IF NOT EXISTS idx_readings_vehicle_id ON horimeter_readings(vehicle_id)`,
		`CREATE INDEX IF NOT EXISTS idx_readings_date ON horimeter_readings(reading_date)`,
		`CREATE INDEX IF NOT EXISTS idx_fuel_vehicle_id ON fuel_records(vehicle_id)`,
		`CREATE INDEX IF NOT EXISTS idx_fuel_date ON fuel_records(supply_date)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_vehicle_id ON service_orders(vehicle_id)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_status ON service_orders(status)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %v", query, err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database file is still reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
