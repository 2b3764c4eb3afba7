package config

import (
	"os"
	"strconv"
)

type Config struct {
	LISTEN_ADDR  string
	UPSTREAM_URL string

	DATA_DIR     string
	BATCH_HEADER string

	// ClickHouse configuration for the optional exchange mirror
	CLICKHOUSE_HOST     string
	CLICKHOUSE_PORT     int
	CLICKHOUSE_DATABASE string
	CLICKHOUSE_USERNAME string
	CLICKHOUSE_PASSWORD string
	CLICKHOUSE_USE_TLS  bool

	// Otel
	OTEL_EXPORTER_OTLP_ENDPOINT string
}

func ReadConfig() *Config {
	// Default to HTTP port 8123 (more compatible than native port 9000)
	clickhousePort := 8123
	if portStr := os.Getenv("CLICKHOUSE_PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil {
			clickhousePort = port
		}
	}

	return &Config{
		LISTEN_ADDR:  getEnvOrDefault("LISTEN_ADDR", "0.0.0.0:8080"),
		UPSTREAM_URL: os.Getenv("UPSTREAM_URL"),

		DATA_DIR:     getEnvOrDefault("DATA_DIR", "./data"),
		BATCH_HEADER: getEnvOrDefault("BATCH_HEADER", "x-batch-id"),

		CLICKHOUSE_HOST:     os.Getenv("CLICKHOUSE_HOST"),
		CLICKHOUSE_PORT:     clickhousePort,
		CLICKHOUSE_DATABASE: getEnvOrDefault("CLICKHOUSE_DATABASE", "modeltap"),
		CLICKHOUSE_USERNAME: getEnvOrDefault("CLICKHOUSE_USERNAME", "default"),
		CLICKHOUSE_PASSWORD: os.Getenv("CLICKHOUSE_PASSWORD"),
		CLICKHOUSE_USE_TLS:  os.Getenv("CLICKHOUSE_USE_TLS") == "true",

		OTEL_EXPORTER_OTLP_ENDPOINT: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
