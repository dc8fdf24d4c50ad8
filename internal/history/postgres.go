package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/pulsewatch/pulsewatch/pkg/utils"
)

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db         *sql.DB
	config     *Config
	logger     *logrus.Logger
	migrations []*Migration
}

// NewPostgresStore creates a new PostgreSQL history store
func NewPostgresStore(cfg *Config) *PostgresStore {
	return &PostgresStore{
		config:     cfg,
		logger:     utils.GetLogger(),
		migrations: PostgresMigrations(),
	}
}

// Connect establishes the database connection
func (s *PostgresStore) Connect() error {
	db, err := sql.Open("postgres", s.config.ConnectionString)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to open PostgreSQL database", err.Error())
	}

	maxConns := s.config.MaxConnections
	if maxConns <= 0 {
		maxConns = 10
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns / 2)
	db.SetConnMaxLifetime(s.config.MaxIdleTime)

	if err := db.Ping(); err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to connect to PostgreSQL", err.Error())
	}

	s.db = db
	s.logger.Info("History database connected (postgres)")
	return nil
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

// Ping checks database connectivity
func (s *PostgresStore) Ping() error {
	if s.db == nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Database not connected")
	}
	return s.db.Ping()
}

// Migrate applies the migration set
func (s *PostgresStore) Migrate() error {
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
func (s *PostgresStore) RecordFired(ctx context.Context, alert *FiredAlert) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO fired_alerts
    (id, notification_id, notification_name, user_id, chat_address, operator, threshold, value, fired_at, delivered)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		alert.ID, alert.NotificationID, alert.NotificationName, alert.UserID,
		alert.ChatAddress, alert.Operator, alert.Threshold, alert.Value,
		alert.FiredAt.UTC(), alert.Delivered)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to record fired alert", err.Error())
	}
	return nil
}

// ListFired returns fired alerts, newest first
func (s *PostgresStore) ListFired(ctx context.Context, limit int) ([]*FiredAlert, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, notification_id, notification_name, user_id, chat_address, operator, threshold, value, fired_at, delivered
FROM fired_alerts
ORDER BY fired_at DESC
LIMIT $1`, limit)
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
func (s *PostgresStore) CountFired(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM fired_alerts").Scan(&count); err != nil {
		return 0, utils.NewAppError(utils.ErrCodeDatabase, "Failed to count fired alerts", err.Error())
	}
	return count, nil
}

// Cleanup deletes rows older than the retention window
func (s *PostgresStore) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
	result, err := s.db.ExecContext(ctx, "DELETE FROM fired_alerts WHERE fired_at < $1", cutoff)
	if err != nil {
		return 0, utils.NewAppError(utils.ErrCodeDatabase, "Failed to clean up fired alerts", err.Error())
	}

	deleted, _ := result.RowsAffected()
	return deleted, nil
}
