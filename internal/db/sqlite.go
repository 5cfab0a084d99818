package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sowfeehealth/wellness/internal/logger"
	"github.com/sowfeehealth/wellness/internal/models"
	"github.com/sowfeehealth/wellness/internal/services"
)

// SQLiteStore implements every service store interface over one
// sqlite database.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("nil db")
	}
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("apply sqlite pragma %q: %w", stmt, err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func toNullString(s string) sql.NullString {
	if strings.TrimSpace(s) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func boolToInt64(v bool) int64 {
	if v {
		return 1
	}
	return 0
}

func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeChoices(ns sql.NullString) map[string]string {
	if !ns.Valid || strings.TrimSpace(ns.String) == "" {
		return nil
	}
	var out map[string]string
	if err := json.Unmarshal([]byte(ns.String), &out); err != nil {
		logger.Warn("sqlite store: decode answer choices: %v", err)
		return nil
	}
	return out
}

// --- AuthStore ---

func (s *SQLiteStore) FindUserByEmail(email string) (*models.User, error) {
	row := s.db.QueryRow(`SELECT id, email, name, pass_hash, institution_id, is_admin, created_at FROM users WHERE email = ?`, email)
	var (
		u       models.User
		isAdmin int64
	)
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PassHash, &u.InstitutionID, &isAdmin, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u.IsAdmin = isAdmin != 0
	return &u, nil
}

func (s *SQLiteStore) AddUser(u *models.User) error {
	_, err := s.db.Exec(
		`INSERT INTO users (id, email, name, pass_hash, institution_id, is_admin, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Name, u.PassHash, u.InstitutionID, boolToInt64(u.IsAdmin), u.CreatedAt,
	)
	return err
}

func (s *SQLiteStore) FindInstitutionByName(name string) (*models.Institution, error) {
	row := s.db.QueryRow(`SELECT id, name, created_at FROM institutions WHERE name = ?`, name)
	var inst models.Institution
	err := row.Scan(&inst.ID, &inst.Name, &inst.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

func (s *SQLiteStore) AddInstitution(inst *models.Institution) error {
	_, err := s.db.Exec(`INSERT INTO institutions (id, name, created_at) VALUES (?, ?, ?)`, inst.ID, inst.Name, inst.CreatedAt)
	return err
}

// --- TemplateStore / SubmissionStore template lookups ---

func (s *SQLiteStore) scanTemplate(row *sql.Row) (*models.SurveyTemplate, error) {
	var (
		tpl                 models.SurveyTemplate
		hashLink            sql.NullString
		active, requireAuth int64
	)
	err := row.Scan(&tpl.ID, &tpl.InstitutionID, &tpl.Name, &hashLink, &active, &requireAuth, &tpl.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	tpl.HashLink = hashLink.String
	tpl.Active = active != 0
	tpl.RequireAuth = requireAuth != 0
	return &tpl, nil
}

const templateColumns = `id, institution_id, name, hash_link, active, require_auth, created_at`

func (s *SQLiteStore) ActiveTemplate(institutionID string) (*models.SurveyTemplate, error) {
	row := s.db.QueryRow(`SELECT `+templateColumns+` FROM survey_templates WHERE institution_id = ? AND active = 1 LIMIT 1`, institutionID)
	return s.scanTemplate(row)
}

func (s *SQLiteStore) TemplateByID(id string) (*models.SurveyTemplate, error) {
	row := s.db.QueryRow(`SELECT `+templateColumns+` FROM survey_templates WHERE id = ?`, id)
	return s.scanTemplate(row)
}

func (s *SQLiteStore) TemplateByHashLink(hash string) (*models.SurveyTemplate, error) {
	row := s.db.QueryRow(`SELECT `+templateColumns+` FROM survey_templates WHERE hash_link = ?`, hash)
	return s.scanTemplate(row)
}

func (s *SQLiteStore) AddTemplate(tpl *models.SurveyTemplate) error {
	_, err := s.db.Exec(
		`INSERT INTO survey_templates (`+templateColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tpl.ID, tpl.InstitutionID, tpl.Name, toNullString(tpl.HashLink), boolToInt64(tpl.Active), boolToInt64(tpl.RequireAuth), tpl.CreatedAt,
	)
	return err
}

func (s *SQLiteStore) ListQuestions(templateID string) ([]models.Question, error) {
	rows, err := s.db.Query(
		`SELECT id, template_id, question_text, question_type, category, ord, answer_choices FROM survey_questions WHERE template_id = ? ORDER BY ord, id`,
		templateID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Question
	for rows.Next() {
		var (
			q        models.Question
			category sql.NullString
			choices  sql.NullString
		)
		if err := rows.Scan(&q.ID, &q.TemplateID, &q.Text, &q.Kind, &category, &q.Order, &choices); err != nil {
			return nil, err
		}
		q.Category = category.String
		q.AnswerChoices = decodeChoices(choices)
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) AddQuestion(q *models.Question) error {
	choices := sql.NullString{}
	if len(q.AnswerChoices) > 0 {
		enc, err := encodeJSON(q.AnswerChoices)
		if err != nil {
			return err
		}
		choices = sql.NullString{String: enc, Valid: true}
	}
	_, err := s.db.Exec(
		`INSERT INTO survey_questions (id, template_id, question_text, question_type, category, ord, answer_choices) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		q.ID, q.TemplateID, q.Text, q.Kind, toNullString(q.Category), q.Order, choices,
	)
	return err
}

// --- AutosaveStore ---

func (s *SQLiteStore) UpsertAutosave(rec *services.AutosaveRecord) error {
	snap, err := encodeJSON(rec.Snapshot)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO autosaves (student_email, template_id, kind, snapshot, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (student_email, template_id, kind) DO UPDATE SET snapshot = excluded.snapshot, updated_at = excluded.updated_at`,
		rec.StudentEmail, rec.TemplateID, string(rec.Kind), snap, rec.UpdatedAt,
	)
	return err
}

func (s *SQLiteStore) GetAutosave(studentEmail, templateID string, kind models.SnapshotKind) (*services.AutosaveRecord, error) {
	row := s.db.QueryRow(
		`SELECT snapshot, updated_at FROM autosaves WHERE student_email = ? AND template_id = ? AND kind = ?`,
		studentEmail, templateID, string(kind),
	)
	var (
		raw       string
		updatedAt time.Time
	)
	err := row.Scan(&raw, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec := &services.AutosaveRecord{
		StudentEmail: studentEmail,
		TemplateID:   templateID,
		Kind:         kind,
		UpdatedAt:    updatedAt,
	}
	if err := json.Unmarshal([]byte(raw), &rec.Snapshot); err != nil {
		return nil, fmt.Errorf("decode autosave snapshot: %w", err)
	}
	return rec, nil
}

func (s *SQLiteStore) DeleteAutosave(studentEmail, templateID string, kind models.SnapshotKind) error {
	_, err := s.db.Exec(
		`DELETE FROM autosaves WHERE student_email = ? AND template_id = ? AND kind = ?`,
		studentEmail, templateID, string(kind),
	)
	return err
}

// --- SubmissionStore ---

func (s *SQLiteStore) HasSubmissionSince(studentEmail, templateID string, since time.Time) (bool, error) {
	row := s.db.QueryRow(
		`SELECT COUNT(1) FROM submissions WHERE student_email = ? AND template_id = ? AND created_at >= ?`,
		studentEmail, templateID, since,
	)
	var n int64
	if err := row.Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLiteStore) AddSubmission(sub *models.Submission) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(
		`INSERT INTO submissions (id, template_id, student_name, student_email, flagged, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		sub.ID, sub.TemplateID, toNullString(sub.StudentName), toNullString(sub.StudentEmail), boolToInt64(sub.Flagged), sub.CreatedAt,
	); err != nil {
		return err
	}
	for _, r := range sub.Responses {
		if _, err := tx.Exec(
			`INSERT INTO question_responses (submission_id, question_id, likert_value, text_response) VALUES (?, ?, ?, ?)`,
			sub.ID, r.QuestionID, r.LikertValue, toNullString(r.TextResponse),
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}
