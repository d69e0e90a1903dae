// ./internal/state/db.go
package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"
)

// DB is a global database connection pool.
var DB *sql.DB

// DBConfig holds database connection parameters.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string // "disable", "require", "verify-full", etc.
}

// InitDB initializes the database connection pool.
func InitDB(cfg DBConfig) error {
	psqlInfo := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	var err error
	DB, err = sql.Open("postgres", psqlInfo)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(25)
	DB.SetConnMaxLifetime(5 * time.Minute)

	err = DB.Ping()
	if err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("Successfully connected to the PostgreSQL database!")
	return nil
}

// CloseDB closes the database connection pool.
func CloseDB() {
	if DB != nil {
		log.Info().Msg("Closing database connection...")
		if err := DB.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database connection")
		}
	}
}

// EnsureSchema applies the necessary DDL to create tables if they don't exist.
// Scaled amounts are stored as NUMERIC(78,0): wide enough for any 256-bit
// integer, exact, and round-trippable through string scanning.
func EnsureSchema() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	schemaSQL := `
		CREATE TABLE IF NOT EXISTS coverage_policies (
			policy_id SERIAL PRIMARY KEY,
			version INTEGER NOT NULL DEFAULT 1,
			config_name VARCHAR(255) NOT NULL DEFAULT 'default',
			is_active BOOLEAN NOT NULL DEFAULT FALSE,
			activated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			threshold_bps BIGINT NOT NULL,
			upper_cap_bps BIGINT NOT NULL,
			payout_ratio_bps BIGINT NOT NULL,
			CONSTRAINT uq_coverage_policies_config_version UNIQUE (config_name, version)
		);
		CREATE INDEX IF NOT EXISTS idx_coverage_policies_config_active ON coverage_policies(config_name, is_active, activated_at DESC);

		CREATE TABLE IF NOT EXISTS pool_snapshots (
			snapshot_id SERIAL PRIMARY KEY,
			pool_id BIGINT NOT NULL,
			snapshot_timestamp TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			reserve_a NUMERIC(78, 0) NOT NULL,
			reserve_b NUMERIC(78, 0) NOT NULL,
			lp_total_supply NUMERIC(78, 0) NOT NULL,
			price_a NUMERIC(78, 0) NOT NULL,
			price_b NUMERIC(78, 0) NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_pool_snapshots_timestamp ON pool_snapshots(snapshot_timestamp DESC);
		CREATE INDEX IF NOT EXISTS idx_pool_snapshots_pool_id ON pool_snapshots(pool_id, snapshot_timestamp DESC);

		CREATE TABLE IF NOT EXISTS user_positions (
			address VARCHAR(90) PRIMARY KEY,
			lp_amount NUMERIC(78, 0) NOT NULL,
			original_a NUMERIC(78, 0) NOT NULL,
			original_b NUMERIC(78, 0) NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS claim_receipts (
			receipt_id SERIAL PRIMARY KEY,
			address VARCHAR(90) NOT NULL,
			pool_id BIGINT NOT NULL,
			il_fraction NUMERIC(78, 0) NOT NULL,
			holding_value NUMERIC(78, 0) NOT NULL,
			payout NUMERIC(78, 0) NOT NULL,
			settled_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_claim_receipts_address ON claim_receipts(address, settled_at DESC);
		CREATE INDEX IF NOT EXISTS idx_claim_receipts_settled_at ON claim_receipts(settled_at DESC);
	`
	_, err := DB.Exec(schemaSQL)
	if err != nil {
		return fmt.Errorf("failed to execute schema DDL: %w", err)
	}
	log.Info().Msg("Database schema ensured.")
	return nil
}

// TestDBConnection tests if the database connection is healthy
func TestDBConnection() error {
	if DB == nil {
		return fmt.Errorf("database connection is nil")
	}

	// Use a short timeout context for health checks
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := DB.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	return nil
}

// scanScaledInt parses a NUMERIC(78,0) column scanned as string back into an
// sdkmath.Int.
func scanScaledInt(value string) (sdkmath.Int, error) {
	parsed, ok := sdkmath.NewIntFromString(value)
	if !ok {
		return sdkmath.ZeroInt(), fmt.Errorf("failed to parse scaled integer from %q", value)
	}
	return parsed, nil
}
