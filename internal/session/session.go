// Package session implements the survey-taking session engine: it
// resolves which survey a visitor should see, collects answers
// incrementally, autosaves them against the identity-appropriate
// backend, and coordinates idempotent submission and cleanup.
package session

import (
	"context"
	"time"

	"github.com/sowfeehealth/wellness/internal/models"
)

// Config wires the engine's collaborators. Remote stores serve
// authenticated sessions; anonymous hash-link sessions fall back to
// session-local storage.
type Config struct {
	Questions QuestionSource
	Identity  IdentitySource
	Sink      SubmissionSink

	RemoteRoutine SnapshotStore
	LocalStorage  Storage

	// CurrentPath is carried into the login redirect on the
	// authentication hand-off.
	CurrentPath      string
	AutosaveInterval time.Duration
}

// Engine drives one survey session from resolution to submission.
type Engine struct {
	cfg       Config
	res       *Resolution
	answers   *AnswerStore
	scheduler *Scheduler
	coord     *Coordinator
}

func NewEngine(cfg Config) *Engine {
	if cfg.LocalStorage == nil {
		cfg.LocalStorage = NewMemoryStorage()
	}
	return &Engine{cfg: cfg, answers: NewAnswerStore()}
}

// Begin resolves the session, hydrates answers from the highest
// precedence snapshot source, and starts the autosave loop. The
// returned resolution must be checked: when Unavailable is set the
// engine stays inert and renders a terminal state. ErrLoginRequired
// means the caller redirects to login instead.
func (e *Engine) Begin(ctx context.Context, hashLink string) (*Resolution, error) {
	res, err := NewResolver(e.cfg.Questions, e.cfg.Identity).Resolve(ctx, hashLink)
	if err != nil {
		return nil, err
	}
	e.res = res
	if res.Unavailable != "" {
		return res, nil
	}

	pending, routine := e.stores()
	restored, err := NewRestorer(pending, routine).Restore(ctx, res.TemplateID)
	if err != nil {
		return nil, err
	}
	e.answers.Seed(restored.Answers)

	name, email := restored.StudentName, restored.StudentEmail
	if id := res.Context.Identity; id != nil {
		name, email = id.Name, id.Email
	}

	e.scheduler = NewScheduler(routine, e.answers, res.TemplateID)
	e.scheduler.SetIdentity(name, email)
	if e.cfg.AutosaveInterval > 0 {
		e.scheduler.SetInterval(e.cfg.AutosaveInterval)
	}
	e.scheduler.Start(ctx)

	e.coord = NewCoordinator(e.cfg.Sink, pending, routine, res, e.answers, e.cfg.CurrentPath)
	e.coord.SetIdentity(name, email)
	return res, nil
}

// stores picks the snapshot backends. Routine autosaves go server-side
// for authenticated visitors and to session-local storage otherwise.
// Pending snapshots are always session-local: the auth hand-off fires
// exactly when the server is refusing the caller, and the snapshot must
// survive the login round trip in the same browser session so the
// now-authenticated resume can still consume it.
func (e *Engine) stores() (pending, routine SnapshotStore) {
	pending = NewLocalStore(e.cfg.LocalStorage, models.SnapshotPending)
	if e.res.Context.Anonymous() {
		return pending, NewLocalStore(e.cfg.LocalStorage, models.SnapshotRoutine)
	}
	return pending, e.cfg.RemoteRoutine
}

// Answer records one answer. No-op before Begin or on an unavailable
// session.
func (e *Engine) Answer(questionID, value string) {
	if e.coord == nil {
		return
	}
	e.answers.Set(questionID, value)
}

// Answers exposes the live answer store, mainly for rendering.
func (e *Engine) Answers() *AnswerStore { return e.answers }

// Submit runs the submission state machine once.
func (e *Engine) Submit(ctx context.Context) (*SubmitResult, error) {
	if e.coord == nil {
		return &SubmitResult{State: StateEditing}, nil
	}
	result, err := e.coord.Submit(ctx)
	if err != nil {
		return nil, err
	}
	if result.State == StateSucceeded {
		e.scheduler.MarkSubmitted()
	}
	return result, nil
}

// Close tears the session down, cancelling the autosave timer so no
// write lands against a stale template after navigation. In-progress
// answers stay persisted so the respondent can resume later.
func (e *Engine) Close() {
	if e.scheduler != nil {
		e.scheduler.Stop()
	}
}
