package voice

import (
	"fmt"

	"papla-server-go/internal/platform/config"
	"papla-server-go/internal/platform/logging"
)

// New creates a voice provider based on the tts configuration section.
func New(cfg config.TTSConfig, logger *logging.Logger) (Provider, error) {
	driver := cfg.Provider
	if driver == "" {
		driver = DriverPapla
	}

	switch driver {
	case DriverPapla:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("papla provider requires an api key")
		}
		return NewPapla(cfg, logger), nil
	case DriverEdge:
		return NewEdge(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unsupported voice provider: %s", driver)
	}
}
