package config

import (
	"github.com/rs/zerolog/log"
)

// Endpoint configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// NodeGRPC is the gRPC endpoint for the Elys node.
	NodeGRPC string
	// WebPort is the port the HTTP API listens on.
	WebPort string
)

// loadEndpointConfig loads endpoint configuration from environment variables.
// This function is called by LoadConfig() in General.go.
func loadEndpointConfig() error {
	log.Info().Msg("Loading endpoint configuration from environment variables...")

	var err error

	NodeGRPC, err = getEnv("NODE_GRPC")
	if err != nil {
		return err
	}

	WebPort, err = getEnv("WEB_PORT")
	if err != nil {
		return err
	}

	log.Debug().
		Str("NodeGRPC", NodeGRPC).
		Str("WebPort", WebPort).
		Msg("Endpoint configuration loaded successfully.")

	return nil
}
