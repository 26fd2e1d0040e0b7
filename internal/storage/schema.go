package storage

const schema = `
-- The 'snapshots' table stores whole application state documents by key.
CREATE TABLE IF NOT EXISTS snapshots (
    key TEXT PRIMARY KEY,
    document TEXT NOT NULL,
    revision INTEGER NOT NULL DEFAULT 1,
    updated_at DATETIME NOT NULL
);
`
