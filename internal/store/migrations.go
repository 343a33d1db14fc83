package store

// migration is one schema step. Statements run in a single transaction
// and the version row is written by runMigrations, not by the SQL.
type migration struct {
	version     int
	description string
	stmts       []string
}

// migrations must stay ordered by version, starting at 1.
var migrations = []migration{
	{
		version:     1,
		description: "session key/value table",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS local_storage (
				key        TEXT PRIMARY KEY,
				value      TEXT NOT NULL,
				updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
		},
	},
}

const createVersionTable = `
CREATE TABLE IF NOT EXISTS schema_version (
	version     INTEGER PRIMARY KEY,
	description TEXT NOT NULL,
	applied_at  DATETIME NOT NULL
)`
