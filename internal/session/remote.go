package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sowfeehealth/wellness/internal/models"
)

// Client is the HTTP implementation of every collaborator boundary the
// session engine consumes. A zero token means anonymous access.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// WithToken returns a copy of the client authenticating as the bearer
// of token. The server infers identity from it; template ids stay
// explicit in every call.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	res, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()
	if out != nil && res.StatusCode < 300 {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			return res.StatusCode, fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}
	return res.StatusCode, nil
}

func (c *Client) CurrentIdentity(ctx context.Context) (*models.Identity, error) {
	var id models.Identity
	status, err := c.do(ctx, http.MethodGet, "/api/me", nil, &id)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		return nil, ErrUnauthenticated
	}
	if status >= 300 {
		return nil, fmt.Errorf("identity lookup: status %d", status)
	}
	if id.Email == "" {
		return nil, ErrUnauthenticated
	}
	return &id, nil
}

type surveyEnvelope struct {
	Success    bool              `json:"success"`
	TemplateID string            `json:"template_id"`
	Questions  []models.Question `json:"questions"`
}

func (c *Client) ActiveSurvey(ctx context.Context) (*SurveyView, error) {
	return c.fetchSurvey(ctx, "/api/survey/questions")
}

func (c *Client) SurveyByHashLink(ctx context.Context, hash string) (*SurveyView, error) {
	return c.fetchSurvey(ctx, "/api/survey/link/"+url.PathEscape(hash))
}

func (c *Client) fetchSurvey(ctx context.Context, path string) (*SurveyView, error) {
	var env surveyEnvelope
	status, err := c.do(ctx, http.MethodGet, path, nil, &env)
	if err != nil {
		return nil, err
	}
	switch {
	case status == http.StatusUnauthorized:
		return nil, ErrUnauthenticated
	case status == http.StatusNotFound || (status < 300 && !env.Success):
		return nil, ErrSurveyNotFound
	case status >= 300:
		return nil, fmt.Errorf("fetch survey: status %d", status)
	}
	return &SurveyView{TemplateID: env.TemplateID, Questions: env.Questions}, nil
}

func (c *Client) SubmitDirect(ctx context.Context, req SubmitRequest) (*SubmitOutcome, error) {
	return c.submit(ctx, "/api/survey/submit", req)
}

func (c *Client) SubmitHashLink(ctx context.Context, hash string, req SubmitRequest) (*SubmitOutcome, error) {
	return c.submit(ctx, "/api/survey/link/"+url.PathEscape(hash)+"/submit", req)
}

func (c *Client) submit(ctx context.Context, path string, req SubmitRequest) (*SubmitOutcome, error) {
	var out SubmitOutcome
	status, err := c.do(ctx, http.MethodPost, path, req, &out)
	if err != nil {
		return nil, err
	}
	if status >= 300 {
		// The server reports rejection in the envelope when it can;
		// surface whatever arrived so the coordinator can pass the
		// message through verbatim.
		body := out
		body.Success = false
		return &body, nil
	}
	return &out, nil
}

type autosaveEnvelope struct {
	Success   bool                     `json:"success"`
	SavedData *models.AutosaveSnapshot `json:"saved_data"`
}

func (c *Client) autosavePath(kind models.SnapshotKind, templateID string) string {
	return fmt.Sprintf("/api/survey/autosave/%s?kind=%s", url.PathEscape(templateID), kind)
}

func (c *Client) saveSnapshot(ctx context.Context, kind models.SnapshotKind, templateID string, snap models.AutosaveSnapshot) error {
	status, err := c.do(ctx, http.MethodPost, c.autosavePath(kind, templateID), snap, nil)
	if err != nil {
		return err
	}
	if status >= 300 {
		return fmt.Errorf("save snapshot: status %d", status)
	}
	return nil
}

func (c *Client) loadSnapshot(ctx context.Context, kind models.SnapshotKind, templateID string) (*models.AutosaveSnapshot, error) {
	var env autosaveEnvelope
	status, err := c.do(ctx, http.MethodGet, c.autosavePath(kind, templateID), nil, &env)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if status >= 300 {
		return nil, fmt.Errorf("load snapshot: status %d", status)
	}
	return env.SavedData, nil
}

func (c *Client) deleteSnapshot(ctx context.Context, kind models.SnapshotKind, templateID string) error {
	status, err := c.do(ctx, http.MethodDelete, c.autosavePath(kind, templateID), nil, nil)
	if err != nil {
		return err
	}
	if status >= 300 && status != http.StatusNotFound {
		return fmt.Errorf("delete snapshot: status %d", status)
	}
	return nil
}

// RemoteStore binds the SnapshotStore contract to the server-side
// autosave endpoints for one snapshot kind.
type RemoteStore struct {
	client *Client
	kind   models.SnapshotKind
}

func NewRemoteStore(client *Client, kind models.SnapshotKind) *RemoteStore {
	return &RemoteStore{client: client, kind: kind}
}

func (s *RemoteStore) Save(ctx context.Context, templateID string, snap models.AutosaveSnapshot) error {
	snap.TemplateID = templateID
	return s.client.saveSnapshot(ctx, s.kind, templateID, snap)
}

func (s *RemoteStore) Load(ctx context.Context, templateID string) (*models.AutosaveSnapshot, error) {
	return s.client.loadSnapshot(ctx, s.kind, templateID)
}

func (s *RemoteStore) Clear(ctx context.Context, templateID string) error {
	return clearVerified(ctx, s, templateID)
}

func (s *RemoteStore) deleteOnce(ctx context.Context, templateID string) error {
	return s.client.deleteSnapshot(ctx, s.kind, templateID)
}
