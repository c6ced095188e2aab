package config

import "time"

// DefaultConfig returns the configuration used when no config file is
// present. Every field can be overridden by .config.yaml or the
// PAPLA_* environment variables.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			IP:          "0.0.0.0",
			TokenSecret: "papla_session_secret",
		},
		Log: LogConfig{
			Level: "INFO",
			Dir:   "data/logs",
			File:  "server.log",
		},
		Web: WebConfig{
			Enabled:   true,
			Port:      8080,
			StaticDir: "./web",
		},
		TTS: TTSConfig{
			Provider:       "papla",
			BaseURL:        "https://api.papla.media",
			ModelID:        "papla_p1",
			DefaultVoice:   "alloy",
			Format:         "mp3",
			OutputDir:      "data/audio",
			TimeoutSeconds: 60,
		},
		Sequence: SequenceConfig{
			GapMinSeconds:  2,
			GapMaxSeconds:  4,
			SampleRate:     44100,
			ChannelLayout:  "stereo",
			FFmpegPath:     "ffmpeg",
			SilenceTimeout: 30,
			ConcatTimeout:  300,
		},
		Session: SessionConfig{
			Store: StoreConfig{
				Type:    "memory",
				Expiry:  24 * time.Hour,
				Cleanup: 10 * time.Minute,
			},
		},
		Storage: StorageConfig{
			DataDir: "./data",
		},
	}
}
