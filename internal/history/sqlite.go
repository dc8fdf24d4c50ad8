package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/pulsewatch/pulsewatch/pkg/utils"
)

// SQLiteStore implements Store using SQLite
type SQLiteStore struct {
	db         *sql.DB
	config     *Config
	logger     *logrus.Logger
	migrations []*Migration
}

// NewSQLiteStore creates a new SQLite history store
func NewSQLiteStore(cfg *Config) *SQLiteStore {
	return &SQLiteStore{
		config:     cfg,
		logger:     utils.GetLogger(),
		migrations: SQLiteMigrations(),
	}
}

// Connect establishes the database connection
func (s *SQLiteStore) Connect() error {
	dir := filepath.Dir(s.config.ConnectionString)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return utils.NewAppError(utils.ErrCodeDatabase, "Failed to create database directory", err.Error())
		}
	}

	db, err := sql.Open("sqlite", s.config.ConnectionString)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to open SQLite database", err.Error())
	}

	maxConns := s.config.MaxConnections
	if maxConns <= 0 {
		maxConns = 10
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns / 2)
	db.SetConnMaxLifetime(s.config.MaxIdleTime)

	// WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to enable WAL mode", err.Error())
	}

	s.db = db
	s.logger.WithField("path", s.config.ConnectionString).Info("History database connected")
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

// Ping checks database connectivity
func (s *SQLiteStore) Ping() error {
	if s.db == nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Database not connected")
	}
	return s.db.Ping()
}

// Migrate applies the migration set
func (s *SQLiteStore) Migrate() error {
	if s.db == nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Database not connected")
	}

	for _, m := range s.migrations {
		s.logger.WithFields(logrus.Fields{
			"version":     m.Version,
			"description": m.Description,
		}).Debug("Applying history migration")

		if _, err := s.db.Exec(m.SQL); err != nil {
			return utils.NewAppError(utils.ErrCodeDatabase,
				fmt.Sprintf("History migration %s failed", m.Version), err.Error())
		}
	}

	return nil
}

// RecordFired inserts one fired-alert row
func (s *SQLiteStore) RecordFired(ctx context.Context, alert *FiredAlert) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO fired_alerts
    (id, notification_id, notification_name, user_id, chat_address, operator, threshold, value, fired_at, delivered)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		alert.ID, alert.NotificationID, alert.NotificationName, alert.UserID,
		alert.ChatAddress, alert.Operator, alert.Threshold, alert.Value,
		alert.FiredAt.UTC(), alert.Delivered)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to record fired alert", err.Error())
	}
	return nil
}

// ListFired returns fired alerts, newest first
func (s *SQLiteStore) ListFired(ctx context.Context, limit int) ([]*FiredAlert, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, notification_id, notification_name, user_id, chat_address, operator, threshold, value, fired_at, delivered
FROM fired_alerts
ORDER BY fired_at DESC
LIMIT ?`, limit)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to list fired alerts", err.Error())
	}
	defer rows.Close()

	var alerts []*FiredAlert
	for rows.Next() {
		a := &FiredAlert{}
		if err := rows.Scan(&a.ID, &a.NotificationID, &a.NotificationName, &a.UserID,
			&a.ChatAddress, &a.Operator, &a.Threshold, &a.Value, &a.FiredAt, &a.Delivered); err != nil {
			return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to scan fired alert", err.Error())
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to iterate fired alerts", err.Error())
	}

	return alerts, nil
}

// CountFired returns the number of fired-alert rows
func (s *SQLiteStore) CountFired(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM fired_alerts").Scan(&count); err != nil {
		return 0, utils.NewAppError(utils.ErrCodeDatabase, "Failed to count fired alerts", err.Error())
	}
	return count, nil
}

// Cleanup deletes rows older than the retention window
func (s *SQLiteStore) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
	result, err := s.db.ExecContext(ctx, "DELETE FROM fired_alerts WHERE fired_at < ?", cutoff)
	if err != nil {
		return 0, utils.NewAppError(utils.ErrCodeDatabase, "Failed to clean up fired alerts", err.Error())
	}

	deleted, _ := result.RowsAffected()
	if deleted > 0 {
		s.logger.WithField("deleted", deleted).Info("History cleanup removed old fired alerts")
	}
	return deleted, nil
}
