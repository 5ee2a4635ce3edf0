// Package config builds the immutable runtime configuration of the client.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/omochice/agent-chatroom/pkg/protocol"
)

// DefaultBaseURL is the relay used when no address is configured.
const DefaultBaseURL = "https://workers-chat.hacolby.workers.dev"

// Environment variables.
const (
	EnvBaseURL  = "AGENT_CHATROOM_URL"
	EnvDialect  = "AGENT_CHATROOM_DIALECT"
	EnvLogLevel = "AGENT_CHATROOM_LOG_LEVEL"
	EnvNoColor  = "NO_COLOR"
)

// Config holds everything a run needs. It is passed by value and never
// mutated after Load.
type Config struct {
	Agent    string
	Room     string // empty means "create a private room"
	BaseURL  string
	Dialect  protocol.Dialect
	LogLevel zerolog.Level
	Color    bool
}

// Overrides carries values given on the command line. Empty fields fall
// back to the environment, then to defaults.
type Overrides struct {
	Agent    string
	Room     string
	BaseURL  string
	Dialect  string
	LogLevel string
	NoColor  bool
}

// Load merges command-line overrides with the environment.
// A .env file in the working directory is loaded first if present.
func Load(o Overrides) (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Agent:   strings.TrimSpace(o.Agent),
		Room:    strings.TrimSpace(o.Room),
		BaseURL: firstNonEmpty(o.BaseURL, os.Getenv(EnvBaseURL), DefaultBaseURL),
	}
	if cfg.Agent == "" {
		return Config{}, fmt.Errorf("agent name is required")
	}

	dialect, err := protocol.ParseDialect(firstNonEmpty(o.Dialect, os.Getenv(EnvDialect)))
	if err != nil {
		return Config{}, err
	}
	cfg.Dialect = dialect

	level, err := zerolog.ParseLevel(firstNonEmpty(o.LogLevel, os.Getenv(EnvLogLevel), "warn"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid log level: %w", err)
	}
	cfg.LogLevel = level

	_, noColorEnv := os.LookupEnv(EnvNoColor)
	cfg.Color = !o.NoColor && !noColorEnv && term.IsTerminal(int(os.Stdout.Fd()))

	return cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
