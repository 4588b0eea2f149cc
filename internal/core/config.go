package core

import (
	"time"
)

type Config struct {
	Server  ServerConfig
	Sources SourcesConfig
	Proxy   ProxyConfig
	Gate    GateConfig
	Store   StoreConfig
	Log     LogConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// PublicBaseURL is the externally reachable base used when building
	// proxy stream URLs, e.g. "https://music.example.com".
	PublicBaseURL string
}

type SourcesConfig struct {
	SaavnBaseURL     string
	SaavnTrendingURL string
	YouTubeBaseURL   string
	// FallbackURL is the optional last-resort search endpoint. Empty
	// disables the generic fallback stage.
	FallbackURL string
}

type ProxyConfig struct {
	TokenTTL      time.Duration
	MaxTokens     int
	SweepInterval time.Duration
}

type GateConfig struct {
	// BurstPerMinute caps requests per credential in any 60 second window,
	// on top of the daily quota. Zero disables the burst limit.
	BurstPerMinute int
}

type StoreConfig struct {
	Path string
}

type LogConfig struct {
	Level  string
	Format string
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
		},
		Sources: SourcesConfig{},
		Proxy: ProxyConfig{
			TokenTTL:      time.Hour,
			MaxTokens:     10000,
			SweepInterval: 10 * time.Minute,
		},
		Gate: GateConfig{
			BurstPerMinute: 60,
		},
		Store: StoreConfig{
			Path: "./powerfulapi.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
