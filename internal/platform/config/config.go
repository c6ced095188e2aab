package config

import (
	"time"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Web      WebConfig      `yaml:"web"`
	TTS      TTSConfig      `yaml:"tts"`
	Sequence SequenceConfig `yaml:"sequence"`
	Session  SessionConfig  `yaml:"session"`
	Storage  StorageConfig  `yaml:"storage"`
}

type ServerConfig struct {
	IP string `yaml:"ip"`
	// TokenSecret signs the session tokens handed to the web client.
	TokenSecret string `yaml:"token_secret"`
}

type LogConfig struct {
	Level string `yaml:"log_level"`
	Dir   string `yaml:"log_dir"`
	File  string `yaml:"log_file"`
}

type WebConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Port      int    `yaml:"port"`
	StaticDir string `yaml:"static_dir"`
}

// TTSConfig selects and configures the speech provider.
type TTSConfig struct {
	Provider       string `yaml:"provider"`
	BaseURL        string `yaml:"url"`
	APIKey         string `yaml:"api_key"`
	ModelID        string `yaml:"model_id"`
	DefaultVoice   string `yaml:"voice"`
	Format         string `yaml:"format"`
	OutputDir      string `yaml:"output_dir"`
	TimeoutSeconds int    `yaml:"timeout"`
}

// SequenceConfig tunes the audio sequencer.
type SequenceConfig struct {
	GapMinSeconds  float64 `yaml:"gap_min_seconds"`
	GapMaxSeconds  float64 `yaml:"gap_max_seconds"`
	SampleRate     int     `yaml:"sample_rate"`
	ChannelLayout  string  `yaml:"channel_layout"`
	FFmpegPath     string  `yaml:"ffmpeg_path"`
	SilenceTimeout int     `yaml:"silence_timeout"` // seconds, per silence render
	ConcatTimeout  int     `yaml:"concat_timeout"`  // seconds, final concatenation
}

type SessionConfig struct {
	Store StoreConfig `yaml:"store"`
}

type StoreConfig struct {
	Type    string             `yaml:"type"`
	Expiry  time.Duration      `yaml:"expiry"`
	Cleanup time.Duration      `yaml:"cleanup"`
	Redis   RedisStoreConfig   `yaml:"redis,omitempty"`
	SQLite  SQLiteStoreConfig  `yaml:"sqlite,omitempty"`
	Memory  MemoryStoreConfig  `yaml:"memory,omitempty"`
}

type RedisStoreConfig struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
}

type SQLiteStoreConfig struct {
	DSN string `yaml:"dsn,omitempty"`
}

type MemoryStoreConfig struct {
	Cleanup time.Duration `yaml:"cleanup"`
}

type StorageConfig struct {
	DataDir string `yaml:"data_dir"`
}
