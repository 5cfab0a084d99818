package session

import (
	"context"
	"errors"

	"github.com/sowfeehealth/wellness/internal/models"
)

// Collaborator boundaries the session engine consumes. The HTTP client
// in this package implements all of them; tests substitute stubs.

var (
	// ErrUnauthenticated means the caller carries no valid identity.
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrSurveyNotFound covers an invalid or expired hash link and a
	// missing active template alike; the resolver maps it to the right
	// terminal reason per access mode.
	ErrSurveyNotFound = errors.New("survey not found")
)

// SurveyView is a resolved template with its ordered questions.
type SurveyView struct {
	TemplateID string            `json:"template_id"`
	Questions  []models.Question `json:"questions"`
}

// QuestionSource resolves which survey applies to the visitor.
type QuestionSource interface {
	// ActiveSurvey resolves the active template for the authenticated
	// caller's institution. Returns ErrSurveyNotFound when none is
	// configured.
	ActiveSurvey(ctx context.Context) (*SurveyView, error)
	// SurveyByHashLink resolves a shared-link survey. Returns
	// ErrSurveyNotFound when the link is invalid or expired.
	SurveyByHashLink(ctx context.Context, hash string) (*SurveyView, error)
}

// IdentitySource resolves the current caller identity.
type IdentitySource interface {
	// CurrentIdentity returns ErrUnauthenticated when no identity is
	// attached to the request context.
	CurrentIdentity(ctx context.Context) (*models.Identity, error)
}

// SubmitOutcome is the server's verdict on a submission attempt.
// RequiresAuth is a control-flow branch, not an error: the template
// demands institutional identity the visitor does not have yet.
type SubmitOutcome struct {
	Success      bool   `json:"success"`
	Message      string `json:"message,omitempty"`
	RequiresAuth bool   `json:"requires_auth,omitempty"`
}

// SubmitRequest carries a completed answer set to the submission sink.
// Identity fields are included only when known; anonymous hash-link
// submissions may omit both.
type SubmitRequest struct {
	TemplateID   string           `json:"survey_template_id"`
	Answers      models.AnswerMap `json:"answers"`
	StudentName  string           `json:"student_name,omitempty"`
	StudentEmail string           `json:"school_email,omitempty"`
}

// SubmissionSink accepts final submissions over either access mode.
type SubmissionSink interface {
	SubmitDirect(ctx context.Context, req SubmitRequest) (*SubmitOutcome, error)
	SubmitHashLink(ctx context.Context, hash string, req SubmitRequest) (*SubmitOutcome, error)
}
