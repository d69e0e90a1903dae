package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/elys-network/ilshield/internal/config"
	"github.com/elys-network/ilshield/internal/engine"
	"github.com/elys-network/ilshield/internal/insurer"
	"github.com/elys-network/ilshield/internal/logger"
	"github.com/elys-network/ilshield/internal/state"
	"github.com/elys-network/ilshield/internal/types"
	"github.com/elys-network/ilshield/internal/web"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

// main is the entry point for the ILShield insurance service.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	// Load configuration from environment variables
	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Initialize(os.Getenv("LOG_LEVEL"))
	log.Info().Msg("ILShield Insurance Engine Starting...")

	// Initialize Database Connection
	dbCfg := state.DBConfig{
		Host: os.Getenv("DB_HOST"), Port: mustAtoi(os.Getenv("DB_PORT"), 5432),
		User: os.Getenv("DB_USER"), Password: os.Getenv("DB_PASSWORD"),
		DBName: os.Getenv("DB_NAME"), SSLMode: os.Getenv("DB_SSLMODE"),
	}
	if err := state.InitDB(dbCfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer state.CloseDB()
	if err := state.EnsureSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure database schema")
	}

	// --- 2. Policy Engine Initialization ---
	// The one-time initialization is owned by POST /api/policy. On boot the
	// engine is re-initialized only from durable state: when no policy has
	// been persisted yet the engine stays uninitialized and the API reports
	// NotInitialized until the first successful initialize call.
	policyEngine := engine.New()

	coveragePolicy, err := state.LoadActivePolicy(insurer.DEFAULT_POLICY_CONFIG_NAME)
	switch {
	case err == nil:
		if err := policyEngine.Initialize(*coveragePolicy); err != nil {
			log.Fatal().Err(err).Msg("Persisted coverage policy rejected by engine")
		}
		log.Info().
			Uint64("threshold_bps", coveragePolicy.ThresholdBps).
			Uint64("upper_cap_bps", coveragePolicy.UpperCapBps).
			Uint64("payout_ratio_bps", coveragePolicy.PayoutRatioBps).
			Msg("Coverage policy loaded successfully.")
	case errors.Is(err, sql.ErrNoRows):
		log.Info().Msg("No coverage policy persisted yet. Awaiting initialization via POST /api/policy.")
	default:
		log.Fatal().Err(err).Msg("Failed to load active coverage policy")
	}

	// Initialize gRPC Connection
	grpcEndpoint := config.NodeGRPC
	var creds grpc.DialOption
	if strings.Contains(grpcEndpoint, ":443") {
		creds = grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{}))
	} else {
		creds = grpc.WithTransportCredentials(insecure.NewCredentials())
	}
	grpcClient, err := grpc.Dial(grpcEndpoint, creds)
	if err != nil {
		log.Fatal().Err(err).Msg("gRPC connection error")
	}
	defer grpcClient.Close()
	log.Info().Str("endpoint", grpcEndpoint).Msg("gRPC connected")

	// --- 3. Create Insurer Instance with Dependency Injection ---
	log.Info().Msg("Creating insurer instance with dependency injection...")

	insurerConfig := insurer.Config{
		GRPCClient:   grpcClient,
		Engine:       policyEngine,
		PoolID:       types.PoolID(config.PoolID),
		DenomA:       config.DenomA,
		DenomB:       config.DenomB,
		ConfigName:   insurer.DEFAULT_POLICY_CONFIG_NAME,
		SyncInterval: config.SyncInterval,
	}

	insurerInstance, err := insurer.New(insurerConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create insurer instance")
	}

	log.Info().Msg("Insurer instance created successfully")

	// --- 4. Start Web Server ---
	webServer := web.NewWebServer(config.WebPort, insurerInstance)
	go func() {
		log.Info().Str("port", config.WebPort).Str("url", "http://localhost:"+config.WebPort).Msg("Starting ILShield API server")
		if err := webServer.Start(); err != nil {
			log.Error().Err(err).Msg("Web server failed to start")
		}
	}()

	// --- 5. Start Sync Loop ---
	log.Info().Str("interval", config.SyncInterval.String()).Msg("Starting insurer sync loop")

	// Create context for graceful shutdown
	ctx := context.Background()

	// Start the sync loop (this will run indefinitely)
	insurerInstance.RunLoop(ctx)
}

// Helper to convert string to int with a default value
func mustAtoi(s string, defaultValue int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return i
}
