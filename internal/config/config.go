// Package config provides Viper-based configuration loading for the room server.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// HTTPConfig holds the HTTP listener settings shared by the REST API and the websocket endpoint.
type HTTPConfig struct {
	// Host is the bind address for the HTTP listener.
	Host string `mapstructure:"host"`
	// Port is the TCP port for the HTTP listener.
	Port int `mapstructure:"port"`
	// ReadTimeout bounds reading a full request, headers included.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout bounds writing a non-upgraded response.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// ShutdownTimeout bounds the graceful stop of each service.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// AllowedOrigins lists the browser origins accepted for CORS and websocket upgrades.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Addr returns the "host:port" listen address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (h HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", h.Host, h.Port)
}

// SocketConfig holds websocket transport settings.
type SocketConfig struct {
	// Path is the HTTP route that upgrades to a websocket.
	Path string `mapstructure:"path"`
	// SendBuffer is the per-connection outbound queue depth.
	SendBuffer int `mapstructure:"send_buffer"`
	// MaxMessageBytes is the largest inbound frame accepted.
	MaxMessageBytes int64 `mapstructure:"max_message_bytes"`
	// WriteWait bounds a single frame write.
	WriteWait time.Duration `mapstructure:"write_wait"`
	// PongWait is how long the server waits for any inbound traffic before dropping the peer.
	PongWait time.Duration `mapstructure:"pong_wait"`
	// PingPeriod is the interval between server pings. Must be shorter than PongWait.
	PingPeriod time.Duration `mapstructure:"ping_period"`
}

// SpawnConfig holds the bounds for randomized spawn positions.
type SpawnConfig struct {
	MinX float64 `mapstructure:"min_x"`
	MaxX float64 `mapstructure:"max_x"`
	Y    float64 `mapstructure:"y"`
	MinZ float64 `mapstructure:"min_z"`
	MaxZ float64 `mapstructure:"max_z"`
}

// SessionConfig holds room coordinator settings.
type SessionConfig struct {
	// RoomsFile is a YAML room registry. Empty selects the built-in registry.
	RoomsFile string `mapstructure:"rooms_file"`
	// IdleThreshold is the inactivity after which a player is evicted.
	IdleThreshold time.Duration `mapstructure:"idle_threshold"`
	// SweepInterval is the period of the idle sweep.
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	// SpawnSeed seeds a deterministic spawn source. Zero selects crypto/rand.
	SpawnSeed uint64 `mapstructure:"spawn_seed"`
	// Spawn holds the spawn position bounds.
	Spawn SpawnConfig `mapstructure:"spawn"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// AdminConfig holds the gRPC admin listener settings.
type AdminConfig struct {
	// Enabled turns the admin listener on.
	Enabled bool `mapstructure:"enabled"`
	// GRPCHost is the bind address for the admin gRPC listener.
	GRPCHost string `mapstructure:"grpc_host"`
	// GRPCPort is the TCP port for the admin gRPC listener.
	GRPCPort int `mapstructure:"grpc_port"`
}

// Addr returns the "host:port" admin address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (a AdminConfig) Addr() string {
	return fmt.Sprintf("%s:%d", a.GRPCHost, a.GRPCPort)
}

// UpdateConfig describes the client update served by the version and download endpoints.
type UpdateConfig struct {
	CurrentVersion string   `mapstructure:"current_version"`
	MinVersion     string   `mapstructure:"min_version"`
	DownloadURL    string   `mapstructure:"download_url"`
	ReleaseURL     string   `mapstructure:"release_url"`
	Changelog      []string `mapstructure:"changelog"`
	SizeMB         string   `mapstructure:"size_mb"`
	ReleaseDate    string   `mapstructure:"release_date"`
	Critical       bool     `mapstructure:"critical"`
	Message        string   `mapstructure:"message"`
}

// Config is the top-level application configuration.
type Config struct {
	HTTP    HTTPConfig    `mapstructure:"http"`
	Socket  SocketConfig  `mapstructure:"socket"`
	Session SessionConfig `mapstructure:"session"`
	Logging LoggingConfig `mapstructure:"logging"`
	Admin   AdminConfig   `mapstructure:"admin"`
	Update  UpdateConfig  `mapstructure:"update"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateHTTP(c.HTTP); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateSocket(c.Socket); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateSession(c.Session); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateAdmin(c.Admin); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Update.CurrentVersion == "" {
		errs = append(errs, "update.current_version must not be empty")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateHTTP(h HTTPConfig) error {
	var errs []string
	if h.Port < 1 || h.Port > 65535 {
		errs = append(errs, fmt.Sprintf("http.port must be 1-65535, got %d", h.Port))
	}
	if h.ReadTimeout < 0 {
		errs = append(errs, "http.read_timeout must not be negative")
	}
	if h.WriteTimeout < 0 {
		errs = append(errs, "http.write_timeout must not be negative")
	}
	if h.ShutdownTimeout < 0 {
		errs = append(errs, "http.shutdown_timeout must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateSocket(s SocketConfig) error {
	var errs []string
	if !strings.HasPrefix(s.Path, "/") {
		errs = append(errs, fmt.Sprintf("socket.path must start with /, got %q", s.Path))
	}
	if s.SendBuffer < 1 {
		errs = append(errs, fmt.Sprintf("socket.send_buffer must be >= 1, got %d", s.SendBuffer))
	}
	if s.MaxMessageBytes < 1 {
		errs = append(errs, fmt.Sprintf("socket.max_message_bytes must be >= 1, got %d", s.MaxMessageBytes))
	}
	if s.WriteWait <= 0 {
		errs = append(errs, "socket.write_wait must be positive")
	}
	if s.PongWait <= 0 {
		errs = append(errs, "socket.pong_wait must be positive")
	}
	if s.PingPeriod <= 0 || s.PingPeriod >= s.PongWait {
		errs = append(errs, "socket.ping_period must be positive and shorter than socket.pong_wait")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateSession(s SessionConfig) error {
	var errs []string
	if s.IdleThreshold <= 0 {
		errs = append(errs, "session.idle_threshold must be positive")
	}
	if s.SweepInterval <= 0 {
		errs = append(errs, "session.sweep_interval must be positive")
	}
	if s.Spawn.MinX > s.Spawn.MaxX {
		errs = append(errs, "session.spawn.min_x must not exceed session.spawn.max_x")
	}
	if s.Spawn.MinZ > s.Spawn.MaxZ {
		errs = append(errs, "session.spawn.min_z must not exceed session.spawn.max_z")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateAdmin(a AdminConfig) error {
	if !a.Enabled {
		return nil
	}
	var errs []string
	if a.GRPCHost == "" {
		errs = append(errs, "admin.grpc_host must not be empty")
	}
	if a.GRPCPort < 1 || a.GRPCPort > 65535 {
		errs = append(errs, fmt.Sprintf("admin.grpc_port must be 1-65535, got %d", a.GRPCPort))
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result. An empty path loads defaults and environment only.
//
// Precondition: path must be empty or a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()

	// Environment variable overrides with ROOMSYNC_ prefix
	v.SetEnvPrefix("ROOMSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// PORT is honoured for hosting platforms that inject it.
	if err := v.BindEnv("http.port", "ROOMSYNC_HTTP_PORT", "PORT"); err != nil {
		return Config{}, fmt.Errorf("binding port environment: %w", err)
	}

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// SetDefaults applies the built-in defaults to v.
func SetDefaults(v *viper.Viper) {
	setDefaults(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 3000)
	v.SetDefault("http.read_timeout", "15s")
	v.SetDefault("http.write_timeout", "15s")
	v.SetDefault("http.shutdown_timeout", "10s")
	v.SetDefault("http.allowed_origins", []string{
		"https://tymbochka50-art.github.io",
		"http://localhost:3000",
		"http://127.0.0.1:3000",
		"http://localhost:5500",
	})

	v.SetDefault("socket.path", "/socket")
	v.SetDefault("socket.send_buffer", 64)
	v.SetDefault("socket.max_message_bytes", 4096)
	v.SetDefault("socket.write_wait", "10s")
	v.SetDefault("socket.pong_wait", "60s")
	v.SetDefault("socket.ping_period", "54s")

	v.SetDefault("session.rooms_file", "")
	v.SetDefault("session.idle_threshold", "5m")
	v.SetDefault("session.sweep_interval", "1m")
	v.SetDefault("session.spawn_seed", 0)
	v.SetDefault("session.spawn.min_x", -5.0)
	v.SetDefault("session.spawn.max_x", 5.0)
	v.SetDefault("session.spawn.y", 1.0)
	v.SetDefault("session.spawn.min_z", -5.0)
	v.SetDefault("session.spawn.max_z", 5.0)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("admin.enabled", false)
	v.SetDefault("admin.grpc_host", "127.0.0.1")
	v.SetDefault("admin.grpc_port", 50051)

	v.SetDefault("update.current_version", "1.1")
	v.SetDefault("update.min_version", "1.0")
	v.SetDefault("update.size_mb", "2.4")
	v.SetDefault("update.critical", false)
	v.SetDefault("update.message", "A new update is available!")
}
