package sqlite

import "database/sql"

// schema sets up the database. It runs on startup to ensure tables exist.
// Participant rows copy the person's name so a purchase survives the
// person's deletion.
const schema = `
CREATE TABLE IF NOT EXISTS people (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS purchases (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    date TEXT NOT NULL,
    note TEXT NOT NULL DEFAULT '',
    stage TEXT NOT NULL CHECK (stage IN ('unsettled', 'settled', 'archived')),
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS purchase_people (
    purchase_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    person_id TEXT NOT NULL,
    name TEXT NOT NULL,
    to_pay TEXT NOT NULL,
    paid TEXT NOT NULL,
    PRIMARY KEY (purchase_id, person_id),
    FOREIGN KEY (purchase_id) REFERENCES purchases(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_purchases_stage ON purchases(stage);
CREATE INDEX IF NOT EXISTS idx_purchase_people_purchase_id ON purchase_people(purchase_id);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
