// Package history keeps a durable record of fired alerts. The record store
// deletes a notification the moment it fires; this is the only place a fired
// alert remains visible afterwards.
package history

import (
	"context"
	"strings"
	"time"

	"github.com/pulsewatch/pulsewatch/pkg/utils"
)

// FiredAlert is one fired-alert history row.
type FiredAlert struct {
	ID               string    `json:"id"`
	NotificationID   string    `json:"notification_id"`
	NotificationName string    `json:"notification_name"`
	UserID           string    `json:"user_id"`
	ChatAddress      string    `json:"chat_address"`
	Operator         string    `json:"operator"`
	Threshold        float64   `json:"threshold"`
	Value            float64   `json:"value"`
	FiredAt          time.Time `json:"fired_at"`
	Delivered        bool      `json:"delivered"`
}

// Store defines the interface for fired-alert history storage.
type Store interface {
	Connect() error
	Close() error
	Ping() error
	Migrate() error

	RecordFired(ctx context.Context, alert *FiredAlert) error
	ListFired(ctx context.Context, limit int) ([]*FiredAlert, error)
	CountFired(ctx context.Context) (int64, error)
	Cleanup(ctx context.Context, retentionDays int) (int64, error)
}

// Config holds history storage configuration
type Config struct {
	Enabled          bool          `mapstructure:"enabled"`
	Type             string        `mapstructure:"type"` // sqlite, postgres
	ConnectionString string        `mapstructure:"connection_string"`
	MaxConnections   int           `mapstructure:"max_connections"`
	MaxIdleTime      time.Duration `mapstructure:"max_idle_time"`
	RetentionDays    int           `mapstructure:"retention_days"`
}

// New creates a history store based on configuration
func New(cfg *Config) (Store, error) {
	switch strings.ToLower(cfg.Type) {
	case "sqlite":
		return NewSQLiteStore(cfg), nil
	case "postgres", "postgresql":
		return NewPostgresStore(cfg), nil
	default:
		return nil, utils.NewAppError(utils.ErrCodeConfiguration,
			"Unsupported history storage type", cfg.Type)
	}
}

// ValidateConfig validates history storage configuration
func ValidateConfig(cfg *Config) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Type == "" {
		return utils.NewAppError(utils.ErrCodeConfiguration, "History storage type is required")
	}
	if cfg.ConnectionString == "" {
		return utils.NewAppError(utils.ErrCodeConfiguration, "History connection string is required")
	}

	switch strings.ToLower(cfg.Type) {
	case "sqlite", "postgres", "postgresql":
		return nil
	default:
		return utils.NewAppError(utils.ErrCodeConfiguration,
			"Unsupported history storage type", "Supported types: sqlite, postgres")
	}
}
