package config

import (
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage backends accepted in WAYPOINTS_STORAGE.
const (
	StorageCSV      = "csv"
	StoragePostgres = "postgres"
)

// Config holds the configuration settings for the waypoints service.
//
// Fields:
// - Env: The current environment (e.g., local, development, production).
// - HTTPPort: The port of the location API server.
// - HealthPort: The port of the monitoring server (/healthz, /metrics).
// - Storage: The record backend, csv or postgres.
// - DataFile: The path of the CSV record file.
// - ShutdownTimeout: How long servers get to finish in-flight requests.
// - Geocoder: Address import settings.
// - Database: Configuration settings for the PostgreSQL database.
type Config struct {
	Env             string         `yaml:"env"`              // Env is the current environment: local, development, production.
	HTTPPort        int            `yaml:"http.port"`        // HTTPPort is the location API server port.
	HealthPort      int            `yaml:"health.port"`      // HealthPort is the monitoring server port.
	Storage         string         `yaml:"storage"`          // Storage selects the record backend.
	DataFile        string         `yaml:"data_file"`        // DataFile is the CSV record file path.
	ShutdownTimeout time.Duration  `yaml:"shutdown_timeout"` // ShutdownTimeout bounds graceful shutdown.
	Geocoder        GeocoderConfig `yaml:"geocoder"`         // Geocoder holds the address import configuration.
	Database        PostgresConfig `yaml:"postgres"`         // Database holds the postgres database configuration.
}

// GeocoderConfig holds the settings of the address import feature.
type GeocoderConfig struct {
	ProviderType string `yaml:"type"`        // ProviderType is none, google or nominatim.
	APIKey       string `yaml:"api_key"`     // APIKey is required for Google.
	Workers      int    `yaml:"workers"`     // Workers is the number of concurrent geocoding workers.
	Rate         int    `yaml:"rate"`        // Rate is the provider request limit per second.
	AddrPrefix   string `yaml:"addr_prefix"` // AddrPrefix is prepended to every address for more accurate geocoding.
}

// PostgresConfig struct holds the configuration details for connecting to a PostgreSQL database.
type PostgresConfig struct {
	Host     string `yaml:"host"`                        // Host is the database server address.
	Port     string `yaml:"port"     env-default:"5432"` // Port is the database server port.
	User     string `yaml:"user"`                        // User is the database user.
	Password string `yaml:"password"`                    // Password is the database user's password.
	Name     string `yaml:"db_name"`                     // Name is the name of the database.
}

// MustLoad reads the configuration from the environment and an optional .env file.
// It panics when a value cannot be parsed.
func MustLoad() *Config {
	_ = godotenv.Load()

	env := viper.New()
	env.AutomaticEnv()
	env.SetDefault("WAYPOINTS_ENV", "production")
	env.SetDefault("WAYPOINTS_HTTP_PORT", "5000")
	env.SetDefault("WAYPOINTS_HEALTH_PORT", "8080")
	env.SetDefault("WAYPOINTS_STORAGE", StorageCSV)
	env.SetDefault("WAYPOINTS_DATA_FILE", "locations.csv")
	env.SetDefault("WAYPOINTS_SHUTDOWN_TIMEOUT", "10s")
	env.SetDefault("WAYPOINTS_GEOCODER_TYPE", "none")
	env.SetDefault("WAYPOINTS_GEOCODER_WORKERS", "4")
	env.SetDefault("WAYPOINTS_GEOCODER_RATE", "1")
	env.SetDefault("DB_PORT", "5432")

	httpPort, err := strconv.Atoi(env.GetString("WAYPOINTS_HTTP_PORT"))
	if err != nil {
		panic("failed to parse port for API server from configuration")
	}

	healthPort, err := strconv.Atoi(env.GetString("WAYPOINTS_HEALTH_PORT"))
	if err != nil {
		panic("failed to parse port for monitoring server from configuration")
	}

	timeout, err := time.ParseDuration(env.GetString("WAYPOINTS_SHUTDOWN_TIMEOUT"))
	if err != nil {
		panic("failed to parse shutdown timeout from configuration")
	}

	workers, err := strconv.Atoi(env.GetString("WAYPOINTS_GEOCODER_WORKERS"))
	if err != nil {
		panic("failed to parse workers from configuration, must be an integer types")
	}

	rate, err := strconv.Atoi(env.GetString("WAYPOINTS_GEOCODER_RATE"))
	if err != nil || rate < 1 {
		panic("failed to parse geocoder rate from configuration, must be a positive integer")
	}

	storage := env.GetString("WAYPOINTS_STORAGE")
	if storage != StorageCSV && storage != StoragePostgres {
		panic("unsupported storage backend, must be csv or postgres")
	}

	return &Config{
		Env:             env.GetString("WAYPOINTS_ENV"),
		HTTPPort:        httpPort,
		HealthPort:      healthPort,
		Storage:         storage,
		DataFile:        env.GetString("WAYPOINTS_DATA_FILE"),
		ShutdownTimeout: timeout,
		Geocoder: GeocoderConfig{
			ProviderType: env.GetString("WAYPOINTS_GEOCODER_TYPE"),
			APIKey:       env.GetString("WAYPOINTS_GEOCODER_KEY"),
			Workers:      workers,
			Rate:         rate,
			AddrPrefix:   env.GetString("WAYPOINTS_ADDRESS_PREFIX"),
		},
		Database: PostgresConfig{
			Host:     env.GetString("DB_HOST"),
			Port:     env.GetString("DB_PORT"),
			User:     env.GetString("DB_USERNAME"),
			Password: env.GetString("DB_PASSWORD"),
			Name:     env.GetString("DB_NAME"),
		},
	}
}
