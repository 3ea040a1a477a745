package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// DiscoveryConfig holds the policy knobs for proximity queries. The allowed
// radius range is policy, not a universal constant: discovery queries get
// the tighter band, map browsing the wider one.
type DiscoveryConfig struct {
	MinRadiusMeters    float64 `mapstructure:"min_radius_meters"`
	MaxRadiusMeters    float64 `mapstructure:"max_radius_meters"`
	MapMaxRadiusMeters float64 `mapstructure:"map_max_radius_meters"`
	MaxPageSize        int     `mapstructure:"max_page_size"`
	MinGridSize        int     `mapstructure:"min_grid_size"`
	MaxGridSize        int     `mapstructure:"max_grid_size"`
	ClusterRadiusM     float64 `mapstructure:"cluster_radius_meters"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "memorylane")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "memorylane")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("discovery.min_radius_meters", 50)
	v.SetDefault("discovery.max_radius_meters", 1000)
	v.SetDefault("discovery.map_max_radius_meters", 5000)
	v.SetDefault("discovery.max_page_size", 100)
	v.SetDefault("discovery.min_grid_size", 5)
	v.SetDefault("discovery.max_grid_size", 50)
	v.SetDefault("discovery.cluster_radius_meters", 100)
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", true)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: MEMORYLANE_DATABASE_HOST → database.host
	v.SetEnvPrefix("MEMORYLANE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if c.Database.User == "" {
		errs = append(errs, "database.user is required")
	}
	if c.Database.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Discovery.MinRadiusMeters <= 0 {
		errs = append(errs, "discovery.min_radius_meters must be positive")
	}
	if c.Discovery.MaxRadiusMeters <= c.Discovery.MinRadiusMeters {
		errs = append(errs, "discovery.max_radius_meters must exceed the minimum")
	}
	if c.Discovery.MapMaxRadiusMeters < c.Discovery.MaxRadiusMeters {
		errs = append(errs, "discovery.map_max_radius_meters must be at least max_radius_meters")
	}
	if c.Discovery.MaxPageSize <= 0 {
		errs = append(errs, "discovery.max_page_size must be positive")
	}
	if c.Discovery.MinGridSize < 2 || c.Discovery.MaxGridSize < c.Discovery.MinGridSize {
		errs = append(errs, "discovery grid size bounds are invalid")
	}
	if c.Discovery.ClusterRadiusM <= 0 {
		errs = append(errs, "discovery.cluster_radius_meters must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
