package storage

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/bytedance/sonic"
)

// ClickHouseConfig holds ClickHouse connection configuration
type ClickHouseConfig struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	UseTLS   bool
}

const exchangeLogSchema = `
CREATE TABLE IF NOT EXISTS exchange_log (
    Timestamp   DateTime64(3),
    Destination String,
    Payload     String
) ENGINE = MergeTree
ORDER BY (Destination, Timestamp)`

// ClickHouseAppender mirrors every appended line as a row in the
// exchange_log table, so captured traffic can be queried next to the JSONL
// files. Like every Appender it is best-effort: insert failures are logged
// as warnings and swallowed.
type ClickHouseAppender struct {
	conn driver.Conn
}

// NewClickHouseAppender connects to ClickHouse over the HTTP protocol and
// creates the exchange_log table when missing.
func NewClickHouseAppender(cfg *ClickHouseConfig) (*ClickHouseAppender, error) {
	conn, err := newClickHouseConn(cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := conn.Exec(ctx, exchangeLogSchema); err != nil {
		return nil, fmt.Errorf("failed to create exchange_log table: %w", err)
	}

	return &ClickHouseAppender{conn: conn}, nil
}

func (a *ClickHouseAppender) Append(destination string, payload any) {
	line, err := sonic.MarshalString(payload)
	if err != nil {
		slog.Warn("Failed to serialize exchange row", slog.String("destination", destination), slog.Any("error", err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err = a.conn.Exec(ctx,
		"INSERT INTO exchange_log (Timestamp, Destination, Payload) VALUES (?, ?, ?)",
		time.Now(), destination, line,
	)
	if err != nil {
		slog.Warn("Failed to insert exchange row", slog.String("destination", destination), slog.Any("error", err))
	}
}

// newClickHouseConn creates a new ClickHouse connection using HTTP protocol
func newClickHouseConn(cfg *ClickHouseConfig) (driver.Conn, error) {
	opts := &clickhouse.Options{
		Addr:     []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Protocol: clickhouse.HTTP,
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		DialTimeout:     10 * time.Second,
		MaxOpenConns:    5,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
	}

	if cfg.UseTLS {
		opts.TLS = &tls.Config{
			InsecureSkipVerify: true,
		}
	}

	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}

	return conn, nil
}
