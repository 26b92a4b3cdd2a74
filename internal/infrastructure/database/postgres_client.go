package database

import (
	"context"
	"database/sql"
	"fmt"

	"chain-forensics/internal/infrastructure/config"
	"chain-forensics/internal/infrastructure/logger"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

// PostgresClient holds the connection pool of the ledger database
type PostgresClient struct {
	db     *sql.DB
	config *config.PostgresConfig
	logger *logger.Logger
}

// NewPostgresClient creates a new Postgres client
func NewPostgresClient(cfg *config.PostgresConfig, logger *logger.Logger) *PostgresClient {
	return &PostgresClient{
		config: cfg,
		logger: logger.WithComponent("postgres-client"),
	}
}

// Connect opens the pool through the pgx driver and verifies it
func (p *PostgresClient) Connect(ctx context.Context) error {
	p.logger.Info("Connecting to Postgres")

	db, err := sql.Open("pgx", p.config.DSN)
	if err != nil {
		return fmt.Errorf("failed to open postgres: %w", err)
	}
	db.SetMaxOpenConns(p.config.MaxOpenConns)
	db.SetMaxIdleConns(p.config.MaxIdleConns)
	db.SetConnMaxLifetime(p.config.ConnMaxLifetime)

	pingCtx := ctx
	if p.config.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, p.config.ConnectTimeout)
		defer cancel()
	}
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		p.logger.Error("Failed to verify Postgres connectivity", zap.Error(err))
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	p.db = db
	p.logger.Info("Successfully connected to Postgres")
	return nil
}

// DB returns the connection pool
func (p *PostgresClient) DB() *sql.DB {
	return p.db
}

// IsConnected checks if the pool answers
func (p *PostgresClient) IsConnected(ctx context.Context) bool {
	return p.db != nil && p.db.PingContext(ctx) == nil
}

// Close closes the pool
func (p *PostgresClient) Close() error {
	if p.db != nil {
		p.logger.Info("Closing Postgres connection")
		return p.db.Close()
	}
	return nil
}
