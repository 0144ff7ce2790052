package config

import "time"

// Config holds relay configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	AllowedOrigins    []string      `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	LogFormat         string        `mapstructure:"log_format" yaml:"log_format"`

	// MaxMessageBytes caps a single inbound websocket frame.
	MaxMessageBytes int64 `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	// MaxEventsPerMinute caps join-room and send-message frames per connection,
	// counted per event type; 0 disables the limit.
	MaxEventsPerMinute int `mapstructure:"max_events_per_minute" yaml:"max_events_per_minute"`
	// MaxPointerEventsPerMinute caps draw-action and cursor-move frames per
	// connection, counted per event type. Whiteboards emit these on every
	// pointer move; 0 disables the limit.
	MaxPointerEventsPerMinute int `mapstructure:"max_pointer_events_per_minute" yaml:"max_pointer_events_per_minute"`

	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`

	// JWT settings for tokens minted by the identity provider. An empty secret
	// turns verification off.
	JWTSecret   string `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer   string `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience string `mapstructure:"jwt_audience" yaml:"jwt_audience"`

	Assistant AssistantConfig `mapstructure:"assistant" yaml:"assistant"`
	Redis     RedisConfig     `mapstructure:"redis" yaml:"redis"`
	LiveKit   LiveKitConfig   `mapstructure:"livekit" yaml:"livekit"`
}

// AssistantConfig configures the @-mention answer relay.
type AssistantConfig struct {
	// URL of an external {question} -> {answer} endpoint. Takes precedence over Gemini.
	URL           string `mapstructure:"url" yaml:"url"`
	GeminiAPIKey  string `mapstructure:"gemini_api_key" yaml:"gemini_api_key"`
	GeminiModel   string `mapstructure:"gemini_model" yaml:"gemini_model"`
	GeminiBaseURL string `mapstructure:"gemini_base_url" yaml:"gemini_base_url"`

	Label             string        `mapstructure:"label" yaml:"label"`
	Timeout           time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxInFlight       int64         `mapstructure:"max_in_flight" yaml:"max_in_flight"`
	MentionsPerMinute int           `mapstructure:"mentions_per_minute" yaml:"mentions_per_minute"`
}

// RedisConfig points at the Redis used for shared mention rate limits.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db" yaml:"db"`
}

// LiveKitConfig holds voice channel credentials.
type LiveKitConfig struct {
	APIKey    string `mapstructure:"api_key" yaml:"api_key"`
	APISecret string `mapstructure:"api_secret" yaml:"api_secret"`
	URL       string `mapstructure:"url" yaml:"url"`
}

// Enabled reports whether voice tokens can be minted.
func (l LiveKitConfig) Enabled() bool {
	return l.APIKey != "" && l.APISecret != ""
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:                      ":3001",
		AllowedOrigins:            []string{"*"},
		ReadHeaderTimeout:         5 * time.Second,
		ShutdownTimeout:           5 * time.Second,
		LogLevel:                  "info",
		LogFormat:                 "console",
		MaxMessageBytes:           1 << 20,
		MaxEventsPerMinute:        600,
		MaxPointerEventsPerMinute: 12000,
		DatabasePath:              "mindora.db",
		Assistant: AssistantConfig{
			GeminiModel:       "gemini-2.0-flash",
			GeminiBaseURL:     "https://generativelanguage.googleapis.com",
			Label:             "Mindora AI",
			Timeout:           20 * time.Second,
			MaxInFlight:       32,
			MentionsPerMinute: 20,
		},
	}
}

// UpdateFrom overwrites non-zero top-level values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if len(other.AllowedOrigins) > 0 {
		c.AllowedOrigins = other.AllowedOrigins
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.LogFormat != "" {
		c.LogFormat = other.LogFormat
	}
	if other.MaxMessageBytes != 0 {
		c.MaxMessageBytes = other.MaxMessageBytes
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
}
