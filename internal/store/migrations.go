package store

import (
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "contacts: aggregate roots, row-scoped per user",
		SQL: `
CREATE TABLE contacts (
    id                TEXT PRIMARY KEY,
    user_id           TEXT NOT NULL,
    name              TEXT NOT NULL,
    relationship      TEXT NOT NULL CHECK (relationship IN ('friend', 'colleague', 'family', 'romantic', 'acquaintance', 'networking', 'other')),
    how_we_met        TEXT NOT NULL DEFAULT '',
    where_we_met      TEXT NOT NULL DEFAULT '',
    company           TEXT,
    first_met_date    TEXT,
    last_contact_date TEXT,
    tags              TEXT NOT NULL DEFAULT '[]',
    notes             TEXT NOT NULL DEFAULT '',
    created_at        TEXT NOT NULL,
    updated_at        TEXT NOT NULL
);

CREATE INDEX idx_contacts_user    ON contacts(user_id);
CREATE INDEX idx_contacts_updated ON contacts(updated_at DESC);
`,
	},
	{
		Version:     2,
		Description: "conversations: interactions per contact",
		SQL: `
CREATE TABLE conversations (
    id         TEXT PRIMARY KEY,
    contact_id TEXT NOT NULL,
    user_id    TEXT NOT NULL,
    date       TEXT NOT NULL,
    summary    TEXT NOT NULL,
    topics     TEXT NOT NULL DEFAULT '[]',
    promises   TEXT NOT NULL DEFAULT '[]',
    mood       TEXT NOT NULL CHECK (mood IN ('positive', 'neutral', 'negative')),
    next_steps TEXT,

    FOREIGN KEY (contact_id) REFERENCES contacts(id)
);

CREATE INDEX idx_conversations_contact ON conversations(contact_id);
`,
	},
	{
		Version:     3,
		Description: "reminders: dated prompts per contact",
		SQL: `
CREATE TABLE reminders (
    id          TEXT PRIMARY KEY,
    contact_id  TEXT NOT NULL,
    user_id     TEXT NOT NULL,
    date        TEXT NOT NULL,
    title       TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    type        TEXT NOT NULL CHECK (type IN ('follow-up', 'birthday', 'event', 'promise', 'check-in', 'other')),
    completed   INTEGER NOT NULL DEFAULT 0,

    FOREIGN KEY (contact_id) REFERENCES contacts(id)
);

CREATE INDEX idx_reminders_contact ON reminders(contact_id);
CREATE INDEX idx_reminders_due     ON reminders(user_id, completed, date);
`,
	},
	{
		Version:     4,
		Description: "personal_details: remembered facts per contact",
		SQL: `
CREATE TABLE personal_details (
    id         TEXT PRIMARY KEY,
    contact_id TEXT NOT NULL,
    user_id    TEXT NOT NULL,
    category   TEXT NOT NULL CHECK (category IN ('work', 'family', 'hobbies', 'preferences', 'goals', 'other')),
    detail     TEXT NOT NULL DEFAULT '',
    importance TEXT NOT NULL CHECK (importance IN ('high', 'medium', 'low')),

    FOREIGN KEY (contact_id) REFERENCES contacts(id)
);

CREATE INDEX idx_details_contact ON personal_details(contact_id);
`,
	},
}

func (db *DB) migrate() error {
	// Create schema_versions table if it doesn't exist
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now') * 1000)
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_versions WHERE version = ?", m.Version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}
