package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"rossmann/internal/adapters/config"
	"rossmann/pkg/errors"
)

// Client wraps ClickHouse connection
type Client struct {
	conn driver.Conn
}

// NewClient creates a new ClickHouse client
func NewClient(ctx context.Context, cfg config.ClickHouseConfig) (*Client, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to clickhouse")
	}

	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "failed to ping clickhouse")
	}

	return &Client{conn: conn}, nil
}

// Conn returns the underlying ClickHouse connection
func (c *Client) Conn() driver.Conn {
	return c.conn
}

// Close closes the ClickHouse connection
func (c *Client) Close() error {
	return c.conn.Close()
}

// Health checks ClickHouse connectivity
func (c *Client) Health(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

// Migrate creates the tables the service writes to
func (c *Client) Migrate(ctx context.Context) error {
	for _, ddl := range schema {
		if err := c.conn.Exec(ctx, ddl); err != nil {
			return errors.Wrap(err, "failed to apply clickhouse schema")
		}
	}
	return nil
}

var schema = []string{`
	CREATE TABLE IF NOT EXISTS forecasts (
		batch_id        UUID,
		source          LowCardinality(String),
		created_at      DateTime64(3, 'UTC'),
		store           UInt32,
		date            Date,
		id              Nullable(Int64),
		predicted_sales Float64
	)
	ENGINE = MergeTree
	PARTITION BY toYYYYMM(created_at)
	ORDER BY (store, date, created_at)
	TTL toDateTime(created_at) + INTERVAL 180 DAY
`}
