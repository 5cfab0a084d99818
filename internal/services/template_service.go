package services

import (
	"sort"

	"github.com/sowfeehealth/wellness/internal/models"
)

// TemplateStore abstracts persistence for survey templates and their
// questions.
type TemplateStore interface {
	ActiveTemplate(institutionID string) (*models.SurveyTemplate, error)
	TemplateByHashLink(hash string) (*models.SurveyTemplate, error)
	ListQuestions(templateID string) ([]models.Question, error)
}

// SurveyView is what the survey page needs to render: the template id
// and its ordered questions.
type SurveyView struct {
	TemplateID  string            `json:"template_id"`
	Questions   []models.Question `json:"questions"`
	RequireAuth bool              `json:"-"`
}

// TemplateService resolves which question set applies to a visitor.
type TemplateService struct {
	store TemplateStore
}

func NewTemplateService(store TemplateStore) *TemplateService {
	return &TemplateService{store: store}
}

// SurveyForInstitution returns the active survey for a student's
// institution, or a not-found error when no template is configured.
func (s *TemplateService) SurveyForInstitution(institutionID string) (*SurveyView, error) {
	if institutionID == "" {
		return nil, NewInvalidError("institution required")
	}
	tpl, err := s.store.ActiveTemplate(institutionID)
	if err != nil {
		return nil, err
	}
	if tpl == nil {
		return nil, NewNotFoundError("no active survey template")
	}
	return s.view(tpl)
}

// SurveyForHashLink resolves a shared link. Invalid and expired links
// are indistinguishable to the visitor; both are not-found.
func (s *TemplateService) SurveyForHashLink(hash string) (*SurveyView, error) {
	if hash == "" {
		return nil, NewInvalidError("hash link required")
	}
	tpl, err := s.store.TemplateByHashLink(hash)
	if err != nil {
		return nil, err
	}
	if tpl == nil || !tpl.Active {
		return nil, NewNotFoundError("survey link is invalid or expired")
	}
	return s.view(tpl)
}

func (s *TemplateService) view(tpl *models.SurveyTemplate) (*SurveyView, error) {
	qs, err := s.store.ListQuestions(tpl.ID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(qs, func(i, j int) bool { return qs[i].Order < qs[j].Order })
	return &SurveyView{TemplateID: tpl.ID, Questions: qs, RequireAuth: tpl.RequireAuth}, nil
}

// NewHashLink mints an opaque shareable link token.
func NewHashLink() string {
	return shortID(20)
}
