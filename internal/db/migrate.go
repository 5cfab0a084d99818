package db

import (
	"database/sql"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS institutions (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL UNIQUE,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id             TEXT PRIMARY KEY,
		email          TEXT NOT NULL UNIQUE,
		name           TEXT NOT NULL,
		pass_hash      BLOB NOT NULL,
		institution_id TEXT NOT NULL REFERENCES institutions(id),
		is_admin       INTEGER NOT NULL DEFAULT 0,
		created_at     TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS survey_templates (
		id             TEXT PRIMARY KEY,
		institution_id TEXT NOT NULL REFERENCES institutions(id),
		name           TEXT NOT NULL,
		hash_link      TEXT UNIQUE,
		active         INTEGER NOT NULL DEFAULT 0,
		require_auth   INTEGER NOT NULL DEFAULT 0,
		created_at     TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS survey_questions (
		id             TEXT PRIMARY KEY,
		template_id    TEXT NOT NULL REFERENCES survey_templates(id),
		question_text  TEXT NOT NULL,
		question_type  TEXT NOT NULL,
		category       TEXT,
		ord            INTEGER NOT NULL DEFAULT 0,
		answer_choices TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS autosaves (
		student_email TEXT NOT NULL,
		template_id   TEXT NOT NULL,
		kind          TEXT NOT NULL,
		snapshot      TEXT NOT NULL,
		updated_at    TIMESTAMP NOT NULL,
		PRIMARY KEY (student_email, template_id, kind)
	)`,
	`CREATE TABLE IF NOT EXISTS submissions (
		id            TEXT PRIMARY KEY,
		template_id   TEXT NOT NULL REFERENCES survey_templates(id),
		student_name  TEXT,
		student_email TEXT,
		flagged       INTEGER NOT NULL DEFAULT 0,
		created_at    TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS question_responses (
		submission_id TEXT NOT NULL REFERENCES submissions(id),
		question_id   TEXT NOT NULL REFERENCES survey_questions(id),
		likert_value  INTEGER,
		text_response TEXT,
		PRIMARY KEY (submission_id, question_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_submissions_student ON submissions(student_email, template_id, created_at)`,
}

// Migrate creates the schema. Statements are idempotent so startup can
// always run it.
func Migrate(db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec migration %d: %w", i, err)
		}
	}
	return nil
}
