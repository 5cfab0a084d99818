package services

import (
	"strconv"
	"strings"
	"time"

	"github.com/sowfeehealth/wellness/internal/models"
)

// SubmissionStore abstracts persistence for recorded submissions.
type SubmissionStore interface {
	TemplateByID(id string) (*models.SurveyTemplate, error)
	TemplateByHashLink(hash string) (*models.SurveyTemplate, error)
	ListQuestions(templateID string) ([]models.Question, error)
	HasSubmissionSince(studentEmail, templateID string, since time.Time) (bool, error)
	AddSubmission(sub *models.Submission) error
}

// SubmitSurveyRequest is a sanitized submission attempt. Authenticated
// and IsAdmin arrive resolved from the caller's identity; for hash-link
// submissions HashLink is set and TemplateID is cross-checked.
type SubmitSurveyRequest struct {
	TemplateID    string
	HashLink      string
	Answers       models.AnswerMap
	StudentName   string
	StudentEmail  string
	Authenticated bool
	IsAdmin       bool
}

// SubmitSurveyResult mirrors the submit endpoint envelope.
type SubmitSurveyResult struct {
	Success      bool
	Message      string
	RequiresAuth bool
	SubmissionID string
	Flagged      bool
}

// safetyFlagThreshold: likert answers at or above it on safety-category
// questions flag the submission for counselor follow-up.
const safetyFlagThreshold = 4

// resubmitWindow is how long one student's submission blocks another
// for the same template.
const resubmitWindow = 24 * time.Hour

type SubmissionService struct {
	store SubmissionStore
	now   func() time.Time
	idGen func() string
}

func NewSubmissionService(store SubmissionStore) *SubmissionService {
	return &SubmissionService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		idGen: func() string { return shortID(12) },
	}
}

// Submit validates and records one completed survey response.
func (s *SubmissionService) Submit(req SubmitSurveyRequest) (*SubmitSurveyResult, error) {
	tpl, err := s.lookupTemplate(req)
	if err != nil {
		return nil, err
	}
	if req.IsAdmin {
		return nil, NewForbiddenError("admins cannot submit surveys")
	}
	if tpl.RequireAuth && !req.Authenticated {
		// Not an error: the visitor must authenticate and resume.
		return &SubmitSurveyResult{RequiresAuth: true, Message: "This survey requires you to log in before submitting"}, nil
	}

	questions, err := s.store.ListQuestions(tpl.ID)
	if err != nil {
		return nil, err
	}
	responses, err := buildResponses(questions, req.Answers)
	if err != nil {
		return nil, err
	}

	if req.StudentEmail != "" {
		dup, err := s.store.HasSubmissionSince(req.StudentEmail, tpl.ID, s.now().Add(-resubmitWindow))
		if err != nil {
			return nil, err
		}
		if dup {
			return nil, NewConflictError("You have already submitted this wellness check today")
		}
	}

	sub := &models.Submission{
		ID:           s.idGen(),
		TemplateID:   tpl.ID,
		StudentName:  strings.TrimSpace(req.StudentName),
		StudentEmail: strings.TrimSpace(req.StudentEmail),
		Flagged:      flagged(questions, responses),
		CreatedAt:    s.now(),
		Responses:    responses,
	}
	if err := s.store.AddSubmission(sub); err != nil {
		return nil, err
	}
	return &SubmitSurveyResult{
		Success:      true,
		Message:      "Wellness check submitted successfully",
		SubmissionID: sub.ID,
		Flagged:      sub.Flagged,
	}, nil
}

func (s *SubmissionService) lookupTemplate(req SubmitSurveyRequest) (*models.SurveyTemplate, error) {
	if req.HashLink != "" {
		tpl, err := s.store.TemplateByHashLink(req.HashLink)
		if err != nil {
			return nil, err
		}
		if tpl == nil || !tpl.Active {
			return nil, NewNotFoundError("survey link is invalid or expired")
		}
		if req.TemplateID != "" && req.TemplateID != tpl.ID {
			return nil, NewInvalidError("template does not match survey link")
		}
		return tpl, nil
	}
	if req.TemplateID == "" {
		return nil, NewInvalidError("survey_template_id required")
	}
	tpl, err := s.store.TemplateByID(req.TemplateID)
	if err != nil {
		return nil, err
	}
	if tpl == nil || !tpl.Active {
		return nil, NewNotFoundError("survey template not found")
	}
	return tpl, nil
}

// buildResponses enforces strict completeness (every question answered,
// no unknown answers) and likert range validity.
func buildResponses(questions []models.Question, answers models.AnswerMap) ([]models.QuestionResponse, error) {
	if len(answers) != len(questions) {
		return nil, NewInvalidError("Please fill in all required fields")
	}
	out := make([]models.QuestionResponse, 0, len(questions))
	for _, q := range questions {
		raw, ok := answers[q.ID]
		if !ok || strings.TrimSpace(raw) == "" {
			return nil, NewInvalidError("Please fill in all required fields")
		}
		qr := models.QuestionResponse{QuestionID: q.ID}
		switch q.Kind {
		case models.QuestionLikert:
			n, err := strconv.Atoi(strings.TrimSpace(raw))
			if err != nil || n < 1 || n > models.LikertPoints {
				return nil, NewInvalidError("invalid likert value for question " + q.ID)
			}
			qr.LikertValue = n
		default:
			qr.TextResponse = raw
		}
		out = append(out, qr)
	}
	return out, nil
}

func flagged(questions []models.Question, responses []models.QuestionResponse) bool {
	byID := make(map[string]models.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	for _, r := range responses {
		q := byID[r.QuestionID]
		if q.Kind == models.QuestionLikert && q.Category == "safety" && r.LikertValue >= safetyFlagThreshold {
			return true
		}
	}
	return false
}
