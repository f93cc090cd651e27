package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/pkg/errors"
)

// DB wraps the database connection
type DB struct {
	*sql.DB
}

// Config holds database configuration
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN renders cfg as a lib/pq connection string
func (cfg Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)
}

// New creates a new database connection
func New(ctx context.Context, cfg Config) (*DB, error) {
	sqlDB, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, errors.Wrap(err, "failed to ping database")
	}

	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	return &DB{sqlDB}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}

// InitSchema initializes the database schema
func (db *DB) InitSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS spot_orders (
		id BIGSERIAL PRIMARY KEY,
		account VARCHAR(100) NOT NULL,
		order_id BIGINT NOT NULL,
		market VARCHAR(50) NOT NULL,
		market_type VARCHAR(20) NOT NULL,
		side VARCHAR(10) NOT NULL,
		type VARCHAR(10) NOT NULL,
		amount DECIMAL(36, 18) NOT NULL,
		price DECIMAL(36, 18) NOT NULL,
		filled_amount DECIMAL(36, 18) NOT NULL,
		filled_value DECIMAL(36, 18) NOT NULL,
		base_fee DECIMAL(36, 18) NOT NULL,
		quote_fee DECIMAL(36, 18) NOT NULL,
		client_id VARCHAR(100),
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL,
		synced_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT unique_spot_order UNIQUE (account, order_id)
	);

	CREATE INDEX IF NOT EXISTS idx_spot_orders_account_market_updated ON spot_orders(account, market, updated_at DESC);

	CREATE TABLE IF NOT EXISTS sync_status (
		id SERIAL PRIMARY KEY,
		account VARCHAR(100) NOT NULL,
		market VARCHAR(50) NOT NULL,
		last_sync_time TIMESTAMP NOT NULL,
		last_updated_at BIGINT,
		high_updated_at BIGINT NOT NULL DEFAULT 0,
		resume_page INT NOT NULL DEFAULT 0,
		records_count INT DEFAULT 0,
		status VARCHAR(20) DEFAULT 'success',
		error_message TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_sync_status_account_market ON sync_status(account, market);
	`

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "failed to initialize schema")
	}
	return nil
}
