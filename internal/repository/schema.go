package repository

// Migrations creates the backend tables. The statements run on both sqlite and
// postgres and may be applied repeatedly.
var Migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		user_id       TEXT PRIMARY KEY,
		name          TEXT NOT NULL,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at    TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS posts (
		post_id    TEXT PRIMARY KEY,
		author_id  TEXT NOT NULL REFERENCES users (user_id) ON DELETE CASCADE,
		title      TEXT NOT NULL,
		body       TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS posts_author_idx ON posts (author_id, created_at)`,
}
