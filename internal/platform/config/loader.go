package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigFile is looked up in the working directory when the
	// PAPLA_CONFIG environment variable is not set.
	DefaultConfigFile = ".config.yaml"

	envConfigPath  = "PAPLA_CONFIG"
	envAPIKey      = "PAPLA_API_KEY"
	envTokenSecret = "PAPLA_TOKEN_SECRET"
)

// Loader reads configuration from a yaml file with environment overrides.
type Loader struct {
	useDotEnv bool
	path      string
}

// NewLoader creates a loader with dotenv support enabled.
func NewLoader() *Loader {
	return &Loader{useDotEnv: true}
}

// WithDotEnv toggles loading variables from a .env file before reading config.
func (l *Loader) WithDotEnv(enabled bool) *Loader {
	l.useDotEnv = enabled
	return l
}

// WithPath overrides the config file location (useful for tests).
func (l *Loader) WithPath(path string) *Loader {
	l.path = path
	return l
}

// Result captures the loaded configuration and its origin path.
type Result struct {
	Config *Config
	Path   string
}

// Load reads the config file if present, applies environment overrides
// and validates the result. A missing file is not an error: defaults
// apply.
func (l *Loader) Load() (*Result, error) {
	if l.useDotEnv {
		if err := godotenv.Load(); err != nil {
			fmt.Println("no .env file found, using system environment")
		}
	}

	path := l.path
	if path == "" {
		path = os.Getenv(envConfigPath)
	}
	if path == "" {
		path = DefaultConfigFile
	}

	cfg := DefaultConfig()
	origin := "defaults"

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
		origin = path
	case os.IsNotExist(err):
		// fall through with defaults
	default:
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := l.Validate(cfg); err != nil {
		return nil, err
	}

	return &Result{
		Config: cfg,
		Path:   origin,
	}, nil
}

func applyEnvOverrides(cfg *Config) {
	if key := os.Getenv(envAPIKey); key != "" {
		cfg.TTS.APIKey = key
	}
	if secret := os.Getenv(envTokenSecret); secret != "" {
		cfg.Server.TokenSecret = secret
	}
}

// Validate checks the fields the server cannot start without.
func (l *Loader) Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.Web.Port <= 0 || cfg.Web.Port > 65535 {
		return fmt.Errorf("invalid web port: %d", cfg.Web.Port)
	}
	if cfg.Sequence.GapMinSeconds <= 0 {
		return fmt.Errorf("gap_min_seconds must be positive, got %v", cfg.Sequence.GapMinSeconds)
	}
	if cfg.Sequence.GapMaxSeconds < cfg.Sequence.GapMinSeconds {
		return fmt.Errorf(
			"gap_max_seconds %v must be >= gap_min_seconds %v",
			cfg.Sequence.GapMaxSeconds, cfg.Sequence.GapMinSeconds,
		)
	}
	if cfg.Sequence.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", cfg.Sequence.SampleRate)
	}
	if cfg.TTS.Provider == "" {
		return fmt.Errorf("tts provider is required")
	}
	return nil
}
