package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// AppConfig holds all application configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// PoolID is the ID of the AMM pool this insurance instance covers.
	PoolID uint64

	// DenomA is the on-chain denom of the pool's token A (the volatile leg).
	DenomA string
	// DenomB is the on-chain denom of the pool's token B (usually USDC).
	DenomB string

	// SyncInterval is how often pool state and oracle prices are refreshed
	// from the chain.
	SyncInterval time.Duration
)

// LoadConfig loads configuration from environment variables and sets the global config vars.
// All environment variables are required and must be set.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	PoolID, err = getEnvAsUint64("ILSHIELD_POOL_ID")
	if err != nil {
		return err
	}

	DenomA, err = getEnv("ILSHIELD_DENOM_A")
	if err != nil {
		return err
	}

	DenomB, err = getEnv("ILSHIELD_DENOM_B")
	if err != nil {
		return err
	}

	SyncInterval, err = getEnvAsDuration("ILSHIELD_SYNC_INTERVAL")
	if err != nil {
		return err
	}

	// Load endpoint configuration
	if err := loadEndpointConfig(); err != nil {
		return err
	}

	log.Debug().
		Uint64("PoolID", PoolID).
		Str("DenomA", DenomA).
		Str("DenomB", DenomB).
		Dur("SyncInterval", SyncInterval).
		Msg("Configuration loaded successfully.")

	return nil
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// getEnvAsUint64 retrieves an environment variable as a uint64. Returns error if not set or invalid.
func getEnvAsUint64(key string) (uint64, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseUint(valueStr, 10, 64)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid uint64, got: " + valueStr)
	}
	return value, nil
}

// getEnvAsDuration retrieves an environment variable as a time.Duration
// (e.g., "10m", "30s"). Returns error if not set or invalid.
func getEnvAsDuration(key string) (time.Duration, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return 0, err
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid duration, got: " + valueStr)
	}
	return value, nil
}
