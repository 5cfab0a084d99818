package session

import (
	"context"
	"errors"

	"github.com/sowfeehealth/wellness/internal/models"
)

// AccessMode is how the visitor reached the survey.
type AccessMode int

const (
	// AccessDirect is authenticated navigation; it requires identity.
	AccessDirect AccessMode = iota
	// AccessHashLink is an opaque shared link; identity is optional.
	AccessHashLink
)

// Context is the resolved session context. Identity nil means
// anonymous, which is only valid under hash-link access; direct access
// without identity is rejected at resolution, never represented here.
type Context struct {
	Mode     AccessMode
	HashLink string
	Identity *models.Identity
}

// Anonymous reports whether no identity is attached.
func (c Context) Anonymous() bool { return c.Identity == nil }

// UnavailableReason is why no survey could be offered. Both are
// terminal, user-visible states, not redirects.
type UnavailableReason string

const (
	ReasonLinkExpired UnavailableReason = "link_expired"
	ReasonNoTemplate  UnavailableReason = "no_template"
)

// ErrLoginRequired signals direct access without identity. The caller
// redirects to login; nothing is resolved on this branch.
var ErrLoginRequired = errors.New("login required")

// Resolution is the resolver outcome: either a usable session
// (Unavailable == "") or a terminal unavailable state.
type Resolution struct {
	Context     Context
	TemplateID  string
	Questions   []models.Question
	Unavailable UnavailableReason
}

// Resolver decides which survey a visitor should see.
type Resolver struct {
	questions QuestionSource
	identity  IdentitySource
}

func NewResolver(questions QuestionSource, identity IdentitySource) *Resolver {
	return &Resolver{questions: questions, identity: identity}
}

// Resolve determines the session context, template and question set.
// hashLink empty means direct authenticated access.
func (r *Resolver) Resolve(ctx context.Context, hashLink string) (*Resolution, error) {
	if hashLink != "" {
		return r.resolveHashLink(ctx, hashLink)
	}
	return r.resolveDirect(ctx)
}

func (r *Resolver) resolveHashLink(ctx context.Context, hash string) (*Resolution, error) {
	view, err := r.questions.SurveyByHashLink(ctx, hash)
	if errors.Is(err, ErrSurveyNotFound) {
		return &Resolution{
			Context:     Context{Mode: AccessHashLink, HashLink: hash},
			Unavailable: ReasonLinkExpired,
		}, nil
	}
	if err != nil {
		return nil, err
	}

	// Identity under a hash link is best-effort: failure degrades to
	// anonymous rather than blocking the survey.
	id, err := r.identity.CurrentIdentity(ctx)
	if err != nil {
		id = nil
	}

	res := &Resolution{
		Context:    Context{Mode: AccessHashLink, HashLink: hash, Identity: id},
		TemplateID: view.TemplateID,
		Questions:  view.Questions,
	}
	if len(view.Questions) == 0 {
		res.Unavailable = ReasonNoTemplate
	}
	return res, nil
}

func (r *Resolver) resolveDirect(ctx context.Context) (*Resolution, error) {
	id, err := r.identity.CurrentIdentity(ctx)
	if err != nil || id == nil {
		if err != nil && !errors.Is(err, ErrUnauthenticated) {
			return nil, err
		}
		return nil, ErrLoginRequired
	}

	view, err := r.questions.ActiveSurvey(ctx)
	if errors.Is(err, ErrSurveyNotFound) {
		return &Resolution{
			Context:     Context{Mode: AccessDirect, Identity: id},
			Unavailable: ReasonNoTemplate,
		}, nil
	}
	if errors.Is(err, ErrUnauthenticated) {
		return nil, ErrLoginRequired
	}
	if err != nil {
		return nil, err
	}

	res := &Resolution{
		Context:    Context{Mode: AccessDirect, Identity: id},
		TemplateID: view.TemplateID,
		Questions:  view.Questions,
	}
	if len(view.Questions) == 0 {
		res.Unavailable = ReasonNoTemplate
	}
	return res, nil
}
