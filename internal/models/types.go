package models

import "time"

// Question kinds as stored in survey_questions.question_type.
const (
	QuestionLikert = "likert"
	QuestionText   = "text"
)

// LikertPoints is the fixed ordinal scale size for likert questions.
const LikertPoints = 5

// Question belongs to one survey template. AnswerChoices optionally
// overrides the default likert labels, keyed by ordinal value "1".."5".
type Question struct {
	ID            string            `json:"id"`
	TemplateID    string            `json:"template_id,omitempty"`
	Text          string            `json:"text"`
	Kind          string            `json:"type"`
	Category      string            `json:"category,omitempty"`
	Order         int               `json:"order"`
	AnswerChoices map[string]string `json:"answer_choices,omitempty"`
}

// SurveyTemplate is an ordered question set owned by one institution.
// At most one template per institution is active at a time; that
// invariant is enforced by the admin tooling, not here.
type SurveyTemplate struct {
	ID            string    `json:"id"`
	InstitutionID string    `json:"institution_id"`
	Name          string    `json:"name"`
	HashLink      string    `json:"hash_link,omitempty"`
	Active        bool      `json:"active"`
	RequireAuth   bool      `json:"require_auth,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Institution is a university tenant.
type Institution struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// User is an institution member. Students submit surveys; institution
// admins may preview them but never submit.
type User struct {
	ID            string
	Email         string
	Name          string
	PassHash      []byte
	InstitutionID string
	IsAdmin       bool
	CreatedAt     time.Time
}

// Identity is the resolved caller identity as the survey session sees it.
type Identity struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_institution_admin"`
}

// AnswerMap maps question id to the entered answer value: the ordinal
// string "1".."5" for likert questions, free text otherwise.
type AnswerMap map[string]string

// SnapshotKind separates the two snapshot namespaces sharing one
// storage medium.
type SnapshotKind string

const (
	// SnapshotRoutine is written by the periodic autosave loop.
	SnapshotRoutine SnapshotKind = "routine"
	// SnapshotPending is written once when submission is interrupted by
	// an authentication requirement; it is consumed exactly once.
	SnapshotPending SnapshotKind = "pending"
)

// AutosaveSnapshot is a persisted copy of in-progress answers.
type AutosaveSnapshot struct {
	TemplateID   string    `json:"template_id"`
	Answers      AnswerMap `json:"answers"`
	StudentName  string    `json:"student_name,omitempty"`
	StudentEmail string    `json:"student_email,omitempty"`
	SavedAt      time.Time `json:"saved_at"`
}

// QuestionResponse is one answered question inside a submission.
type QuestionResponse struct {
	QuestionID   string
	LikertValue  int
	TextResponse string
}

// Submission is a completed, recorded survey response.
type Submission struct {
	ID           string
	TemplateID   string
	StudentName  string
	StudentEmail string
	Flagged      bool
	CreatedAt    time.Time
	Responses    []QuestionResponse
}
