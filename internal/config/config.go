package config

import (
	"os"
	"strconv"
	"strings"

	"ecoscale/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Pipeline PipelineConfig
	Paths    PathConfig
	Database DatabaseConfig
	Kafka    KafkaConfig
	Server   ServerConfig
}

// PipelineConfig holds the detection tunables. These are explicit
// configuration passed into each component call, never process-wide
// singletons, so the engine stays testable with varied parameters.
type PipelineConfig struct {
	LagHorizons       []int   // lag feature horizons, in steps
	RollingWindow     int     // trailing rolling-mean window, in steps
	ThresholdK        float64 // threshold multiplier over residual stddev
	UnitCostRate      float64 // currency per kWh of waste
	ReportCap         int     // max records in the anomaly report
	SplitFraction     float64 // train prefix fraction of the time-sorted table
	EntityConcurrency int64   // concurrent per-building workers
}

// PathConfig holds file system paths for the ETL and report boundaries
type PathConfig struct {
	MeterFile    string
	MetadataFile string
	WeatherFile  string
	ReportFile   string
}

// DatabaseConfig holds the optional report persistence settings
type DatabaseConfig struct {
	URL     string // empty disables the postgres sink
	SSLMode string
}

// KafkaConfig holds the optional report publishing settings
type KafkaConfig struct {
	Brokers []string // empty disables the kafka sink
	Topic   string
}

// ServerConfig holds report API settings
type ServerConfig struct {
	Port string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Pipeline: PipelineConfig{
			LagHorizons:       getEnvIntsOrDefault("LAG_HORIZONS", []int{1, 24}),
			RollingWindow:     getEnvIntOrDefault("ROLLING_WINDOW", 6),
			ThresholdK:        getEnvFloatOrDefault("THRESHOLD_K", 2.0),
			UnitCostRate:      getEnvFloatOrDefault("UNIT_COST_RATE", 0.14),
			ReportCap:         getEnvIntOrDefault("REPORT_CAP", 5000),
			SplitFraction:     getEnvFloatOrDefault("SPLIT_FRACTION", 0.8),
			EntityConcurrency: int64(getEnvIntOrDefault("ENTITY_CONCURRENCY", 8)),
		},
		Paths: PathConfig{
			MeterFile:    getEnvOrDefault("METER_FILE", "data/raw/electricity_cleaned.csv"),
			MetadataFile: getEnvOrDefault("METADATA_FILE", "data/raw/metadata.csv"),
			WeatherFile:  getEnvOrDefault("WEATHER_FILE", "data/raw/weather.csv"),
			ReportFile:   getEnvOrDefault("REPORT_FILE", "data/outputs/electricity_anomalies.csv"),
		},
		Database: DatabaseConfig{
			URL:     getEnvOrDefault("DATABASE_URL", ""),
			SSLMode: getEnvOrDefault("SSL_MODE", "disable"),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvListOrDefault("KAFKA_BROKERS", nil),
			Topic:   getEnvOrDefault("KAFKA_TOPIC", "ecoscale.anomalies"),
		},
		Server: ServerConfig{
			Port: getEnvOrDefault("PORT", "8080"),
		},
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func validateConfig(config *Config) error {
	p := config.Pipeline
	if len(p.LagHorizons) == 0 {
		return errors.ConfigInvalid("at least one lag horizon is required")
	}
	for _, h := range p.LagHorizons {
		if h < 1 {
			return errors.ConfigInvalid("lag horizons must be positive")
		}
	}
	if p.RollingWindow < 1 {
		return errors.ConfigInvalid("rolling window must be at least 1")
	}
	if p.ThresholdK <= 0 {
		return errors.ConfigInvalid("threshold multiplier must be positive")
	}
	if p.ReportCap < 1 {
		return errors.ConfigInvalid("report cap must be positive")
	}
	if p.SplitFraction <= 0 || p.SplitFraction >= 1 {
		return errors.ConfigInvalid("split fraction must be in (0, 1)")
	}
	if p.EntityConcurrency < 1 {
		return errors.ConfigInvalid("entity concurrency must be positive")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvListOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}

func getEnvIntsOrDefault(key string, defaultValue []int) []int {
	raw := getEnvListOrDefault(key, nil)
	if raw == nil {
		return defaultValue
	}
	out := make([]int, 0, len(raw))
	for _, p := range raw {
		if intValue, err := strconv.Atoi(p); err == nil {
			out = append(out, intValue)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
