package store

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS folders (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    parent_id INTEGER REFERENCES folders(id),
    category_id TEXT UNIQUE,
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS documents (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    folder_id INTEGER REFERENCES folders(id),
    html TEXT NOT NULL,
    image TEXT,
    article_id TEXT UNIQUE,
    article_url TEXT,
    permission INTEGER DEFAULT 0,
    created_at TEXT DEFAULT (datetime('now')),
    updated_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS document_secrets (
    document_id INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
    secret_id TEXT NOT NULL,
    revealed INTEGER DEFAULT 0,
    PRIMARY KEY (document_id, secret_id)
);

CREATE INDEX IF NOT EXISTS idx_documents_folder ON documents(folder_id);
CREATE INDEX IF NOT EXISTS idx_documents_article ON documents(article_id);
CREATE INDEX IF NOT EXISTS idx_documents_article_url ON documents(article_url);
CREATE INDEX IF NOT EXISTS idx_folders_category ON folders(category_id);
CREATE INDEX IF NOT EXISTS idx_folders_parent ON folders(parent_id);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
