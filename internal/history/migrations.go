package history

// Migration represents one schema migration step
type Migration struct {
	Version     string
	Description string
	SQL         string
}

// SQLiteMigrations returns the migration set for SQLite
func SQLiteMigrations() []*Migration {
	return []*Migration{
		{
			Version:     "001",
			Description: "create fired_alerts table",
			SQL: `
CREATE TABLE IF NOT EXISTS fired_alerts (
    id TEXT PRIMARY KEY,
    notification_id TEXT NOT NULL,
    notification_name TEXT NOT NULL,
    user_id TEXT NOT NULL,
    chat_address TEXT NOT NULL,
    operator TEXT NOT NULL,
    threshold REAL NOT NULL,
    value REAL NOT NULL,
    fired_at TIMESTAMP NOT NULL,
    delivered INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_fired_alerts_fired_at ON fired_alerts(fired_at);
CREATE INDEX IF NOT EXISTS idx_fired_alerts_user ON fired_alerts(user_id);
`,
		},
	}
}

// PostgresMigrations returns the migration set for PostgreSQL
func PostgresMigrations() []*Migration {
	return []*Migration{
		{
			Version:     "001",
			Description: "create fired_alerts table",
			SQL: `
CREATE TABLE IF NOT EXISTS fired_alerts (
    id TEXT PRIMARY KEY,
    notification_id TEXT NOT NULL,
    notification_name TEXT NOT NULL,
    user_id TEXT NOT NULL,
    chat_address TEXT NOT NULL,
    operator TEXT NOT NULL,
    threshold DOUBLE PRECISION NOT NULL,
    value DOUBLE PRECISION NOT NULL,
    fired_at TIMESTAMPTZ NOT NULL,
    delivered BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS idx_fired_alerts_fired_at ON fired_alerts(fired_at);
CREATE INDEX IF NOT EXISTS idx_fired_alerts_user ON fired_alerts(user_id);
`,
		},
	}
}
