package gateway

import (
	"log/slog"
	"time"
)

// Protocol constants. The client speaks exactly protocol v3.
const (
	ProtocolMin = 3
	ProtocolMax = 3

	// sessionKeyPrefix routes the session to the voice agent instance.
	sessionKeyPrefix = "agent:voice:chief-voice-"

	clientID      = "gateway-client"
	clientVersion = "0.1.0"
	clientMode    = "backend"
)

// Default timeouts.
const (
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultReadTimeout      = 120 * time.Second
)

// Config holds gateway client configuration.
// Use functional options (WithXxx) to set these values.
type Config struct {
	// URL is the gateway websocket endpoint.
	URL string

	// Token authenticates the connect handshake.
	Token string

	// CallID identifies this call; it seeds the session key.
	CallID string

	// Platform is reported in the client descriptor.
	Platform string

	// HandshakeTimeout bounds each read during the connect handshake.
	HandshakeTimeout time.Duration

	// ReadTimeout bounds each frame read while streaming a response.
	ReadTimeout time.Duration

	// Logger is the structured logger for the client.
	Logger *slog.Logger
}

// Option is a functional option for configuring the client.
type Option func(*Config)

// WithURL sets the gateway websocket URL.
func WithURL(url string) Option {
	return func(c *Config) {
		c.URL = url
	}
}

// WithToken sets the auth token.
func WithToken(token string) Option {
	return func(c *Config) {
		c.Token = token
	}
}

// WithCallID sets the call identifier used in the session key.
func WithCallID(callID string) Option {
	return func(c *Config) {
		c.CallID = callID
	}
}

// WithHandshakeTimeout sets the per-read handshake bound.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.HandshakeTimeout = d
	}
}

// WithReadTimeout sets the per-read streaming bound.
func WithReadTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.ReadTimeout = d
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() *Config {
	return &Config{
		URL:              "ws://localhost:18789",
		Platform:         "linux",
		HandshakeTimeout: DefaultHandshakeTimeout,
		ReadTimeout:      DefaultReadTimeout,
		Logger:           slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Token == "" {
		return ErrMissingToken
	}
	return nil
}
