// Package config provides configuration helpers for go-chief commands.
// Values come from the environment, optionally seeded from a .env file.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Defaults for the voice bot process.
const (
	DefaultGatewayURL = "ws://localhost:18789"
	DefaultAPIURL     = "http://localhost:3001"
	DefaultBridgePort = "8085"
)

// LoadDotenv loads a .env file if present. Missing files are fine;
// the environment always wins over file values.
func LoadDotenv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env.local", ".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
		}
	}
}

// Get returns the env var value or the provided default.
func Get(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Required returns the env var value or exits with a usage hint.
func Required(key string) string {
	v := os.Getenv(key)
	if v == "" {
		fmt.Fprintf(os.Stderr, "Error: %s environment variable is required\n", key)
		os.Exit(1)
	}
	return v
}

// Bool returns true when the env var is set to a truthy value.
func Bool(key string) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// GatewayURL returns the gateway websocket URL.
func GatewayURL() string {
	return Get("CHIEFVOICE_GATEWAY_URL", DefaultGatewayURL)
}

// GatewayToken returns the gateway auth token. Required to run.
func GatewayToken() string {
	return Required("CHIEFVOICE_GATEWAY_TOKEN")
}

// APIURL returns the Chief API base URL for transcript persistence.
func APIURL() string {
	return Get("CHIEF_API_URL", DefaultAPIURL)
}

// BridgePort returns the port for the boundary-event bridge server.
func BridgePort() string {
	return Get("BRIDGE_PORT", DefaultBridgePort)
}

// OpenAIKey returns the OpenAI API key used by the fallback generator.
// Empty means the fallback is disabled.
func OpenAIKey() string {
	return os.Getenv("OPENAI_API_KEY")
}

// Outbound describes an AI-initiated call.
type Outbound struct {
	Enabled bool
	Reason  string
	Urgency string
	Context string
}

// OutboundCall returns the outbound-call settings.
func OutboundCall() Outbound {
	return Outbound{
		Enabled: Bool("OUTBOUND_MODE"),
		Reason:  os.Getenv("OUTBOUND_REASON"),
		Urgency: Get("OUTBOUND_URGENCY", "medium"),
		Context: os.Getenv("OUTBOUND_CONTEXT"),
	}
}
