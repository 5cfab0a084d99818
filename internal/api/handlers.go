package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sowfeehealth/wellness/internal/middleware"
	"github.com/sowfeehealth/wellness/internal/models"
	"github.com/sowfeehealth/wellness/internal/services"
)

type credentials struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	Institution string `json:"institution"`
}

type authResponse struct {
	Success  bool            `json:"success"`
	Token    string          `json:"token"`
	Identity models.Identity `json:"identity"`
}

func (rt *Router) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Message: "invalid request body"})
		return
	}
	res, err := rt.auth.Register(req.Name, req.Email, req.Password, req.Institution)
	if err != nil {
		writeError(w, err)
		return
	}
	rt.setSession(w, res)
	writeJSON(w, http.StatusOK, authResponse{Success: true, Token: res.Token, Identity: res.Identity})
}

func (rt *Router) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Message: "invalid request body"})
		return
	}
	res, err := rt.auth.Login(req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	rt.setSession(w, res)
	writeJSON(w, http.StatusOK, authResponse{Success: true, Token: res.Token, Identity: res.Identity})
}

func (rt *Router) setSession(w http.ResponseWriter, res *services.AuthResult) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    res.Token,
		Path:     "/",
		MaxAge:   int(rt.auth.TokenTTL().Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// GET /api/me is the identity source. 401 when anonymous.
func (rt *Router) handleMe(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, id)
}

type surveyResponse struct {
	Success    bool              `json:"success"`
	TemplateID string            `json:"template_id"`
	Questions  []models.Question `json:"questions"`
}

// GET /api/survey/questions returns the active survey for the caller's institution.
func (rt *Router) handleQuestions(w http.ResponseWriter, r *http.Request) {
	instID, ok := middleware.InstitutionIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	view, err := rt.templates.SurveyForInstitution(instID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, surveyResponse{Success: true, TemplateID: view.TemplateID, Questions: view.Questions})
}

// GET /api/survey/link/{hash} resolves a shared-link survey; identity optional.
func (rt *Router) handleHashLinkSurvey(w http.ResponseWriter, r *http.Request) {
	view, err := rt.templates.SurveyForHashLink(chi.URLParam(r, "hash"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, surveyResponse{Success: true, TemplateID: view.TemplateID, Questions: view.Questions})
}

type submitBody struct {
	TemplateID   string           `json:"survey_template_id"`
	Answers      models.AnswerMap `json:"answers"`
	StudentName  string           `json:"student_name"`
	StudentEmail string           `json:"school_email"`
}

type submitResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message,omitempty"`
	RequiresAuth bool   `json:"requires_auth,omitempty"`
}

// POST /api/survey/submit accepts an authenticated direct submission. Handled
// outcomes ride the envelope; the transport status stays 200 so the
// client can always pass the server message through verbatim.
func (rt *Router) handleSubmit(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var body submitBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Message: "invalid request body"})
		return
	}
	rt.finishSubmit(w, services.SubmitSurveyRequest{
		TemplateID:    body.TemplateID,
		Answers:       body.Answers,
		StudentName:   id.Name,
		StudentEmail:  id.Email,
		Authenticated: true,
		IsAdmin:       id.IsAdmin,
	})
}

// POST /api/survey/link/{hash}/submit accepts a hash-link submission; identity
// fields are included only when the visitor supplied or resolved them.
func (rt *Router) handleHashLinkSubmit(w http.ResponseWriter, r *http.Request) {
	var body submitBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Message: "invalid request body"})
		return
	}
	req := services.SubmitSurveyRequest{
		TemplateID:   body.TemplateID,
		HashLink:     chi.URLParam(r, "hash"),
		Answers:      body.Answers,
		StudentName:  body.StudentName,
		StudentEmail: body.StudentEmail,
	}
	if id, ok := middleware.IdentityFromContext(r.Context()); ok {
		req.Authenticated = true
		req.IsAdmin = id.IsAdmin
		req.StudentName = id.Name
		req.StudentEmail = id.Email
	}
	rt.finishSubmit(w, req)
}

func (rt *Router) finishSubmit(w http.ResponseWriter, req services.SubmitSurveyRequest) {
	res, err := rt.submissions.Submit(req)
	if err != nil {
		if se, ok := services.AsServiceError(err); ok {
			writeJSON(w, http.StatusOK, submitResponse{Success: false, Message: se.Message})
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, submitResponse{
		Success:      res.Success,
		Message:      res.Message,
		RequiresAuth: res.RequiresAuth,
	})
}

func snapshotKind(r *http.Request) models.SnapshotKind {
	if k := r.URL.Query().Get("kind"); k != "" {
		return models.SnapshotKind(k)
	}
	return models.SnapshotRoutine
}

// POST /api/survey/autosave/{templateID}?kind=routine|pending
func (rt *Router) handleAutosaveSave(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFromContext(r.Context())
	var snap models.AutosaveSnapshot
	if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Message: "invalid request body"})
		return
	}
	if err := rt.autosaves.Save(id.Email, chi.URLParam(r, "templateID"), snapshotKind(r), snap); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

type autosaveResponse struct {
	Success   bool                     `json:"success"`
	SavedData *models.AutosaveSnapshot `json:"saved_data"`
}

// GET /api/survey/autosave/{templateID}?kind=... returns saved_data, null
// when nothing is stored; absence is not an error.
func (rt *Router) handleAutosaveLoad(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFromContext(r.Context())
	snap, err := rt.autosaves.Load(id.Email, chi.URLParam(r, "templateID"), snapshotKind(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, autosaveResponse{Success: true, SavedData: snap})
}

// DELETE /api/survey/autosave/{templateID}?kind=... deletes the row; idempotent.
func (rt *Router) handleAutosaveClear(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFromContext(r.Context())
	if err := rt.autosaves.Clear(id.Email, chi.URLParam(r, "templateID"), snapshotKind(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
