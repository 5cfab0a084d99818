package session

import (
	"context"
	"net/url"
	"time"

	"github.com/sowfeehealth/wellness/internal/logger"
	"github.com/sowfeehealth/wellness/internal/models"
)

// State is the submission state machine position.
type State int

const (
	StateEditing State = iota
	StateValidating
	StateSubmitting
	StateSucceeded
	StateAuthRequired
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateEditing:
		return "editing"
	case StateValidating:
		return "validating"
	case StateSubmitting:
		return "submitting"
	case StateSucceeded:
		return "succeeded"
	case StateAuthRequired:
		return "auth_required"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// User-visible messages, verbatim from the survey page.
const (
	MsgIncomplete   = "Please fill in all required fields"
	MsgSubmitFailed = "Survey submission failed"
	successRedirect = "/"
	loginRedirect   = "/api/login/"
	successDelay    = 600 * time.Millisecond
)

// SubmitResult is the terminal outcome of one submission attempt.
// RedirectTo/RedirectAfter describe the boundary effect the caller
// performs; the coordinator never navigates itself.
type SubmitResult struct {
	State         State
	Message       string
	RedirectTo    string
	RedirectAfter time.Duration
}

// Coordinator orchestrates final submission for one session.
type Coordinator struct {
	sink    SubmissionSink
	pending SnapshotStore
	routine SnapshotStore

	sctx          Context
	templateID    string
	questionCount int
	currentPath   string

	answers      *AnswerStore
	studentName  string
	studentEmail string

	state     State
	submitted bool
}

// NewCoordinator builds a coordinator for a resolved session. pending
// and routine must use the same storage medium the session autosaves
// to, so the hand-off snapshot is found again on resume.
func NewCoordinator(sink SubmissionSink, pending, routine SnapshotStore, res *Resolution, answers *AnswerStore, currentPath string) *Coordinator {
	return &Coordinator{
		sink:          sink,
		pending:       pending,
		routine:       routine,
		sctx:          res.Context,
		templateID:    res.TemplateID,
		questionCount: len(res.Questions),
		currentPath:   currentPath,
		answers:       answers,
		state:         StateEditing,
	}
}

// SetIdentity sets the identity fields included with the submission
// when known.
func (c *Coordinator) SetIdentity(name, email string) {
	c.studentName = name
	c.studentEmail = email
}

// State returns the current machine position.
func (c *Coordinator) State() State { return c.state }

// Submitted reports whether a submission has been accepted.
func (c *Coordinator) Submitted() bool { return c.submitted }

// Submit runs Editing -> Validating -> Submitting and lands in one of
// the terminal states. Admin identities never leave Editing: the
// boundary already disables the action, this is defense in depth.
func (c *Coordinator) Submit(ctx context.Context) (*SubmitResult, error) {
	if c.submitted {
		return &SubmitResult{State: StateSucceeded}, nil
	}
	if id := c.sctx.Identity; id != nil && id.IsAdmin {
		c.state = StateEditing
		return &SubmitResult{State: StateEditing}, nil
	}

	c.state = StateValidating
	if !c.answers.IsComplete(c.questionCount) {
		c.state = StateFailed
		return &SubmitResult{State: StateFailed, Message: MsgIncomplete}, nil
	}

	c.state = StateSubmitting
	req := SubmitRequest{
		TemplateID:   c.templateID,
		Answers:      c.answers.Snapshot(),
		StudentName:  c.studentName,
		StudentEmail: c.studentEmail,
	}

	var (
		outcome *SubmitOutcome
		err     error
	)
	if c.sctx.Mode == AccessHashLink {
		outcome, err = c.sink.SubmitHashLink(ctx, c.sctx.HashLink, req)
	} else {
		outcome, err = c.sink.SubmitDirect(ctx, req)
	}
	if err != nil {
		c.state = StateFailed
		return &SubmitResult{State: StateFailed, Message: MsgSubmitFailed}, nil
	}

	if outcome.RequiresAuth {
		return c.handOffToLogin(ctx, req)
	}
	if !outcome.Success {
		c.state = StateFailed
		msg := outcome.Message
		if msg == "" {
			msg = MsgSubmitFailed
		}
		return &SubmitResult{State: StateFailed, Message: msg}, nil
	}
	return c.succeed(ctx, outcome.Message)
}

// handOffToLogin preserves the finished answers as a pending-submission
// snapshot and yields a login redirect carrying the way back. Terminal
// for this page lifecycle; the resuming instance consumes the snapshot
// through the restorer.
func (c *Coordinator) handOffToLogin(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	snap := models.AutosaveSnapshot{
		TemplateID:   c.templateID,
		Answers:      req.Answers,
		StudentName:  req.StudentName,
		StudentEmail: req.StudentEmail,
		SavedAt:      time.Now().UTC(),
	}
	if err := c.pending.Save(ctx, c.templateID, snap); err != nil {
		// Losing the snapshot means re-entering answers after login;
		// the hand-off itself still proceeds.
		logger.Error("persist pending snapshot for template %s: %v", c.templateID, err)
	}
	c.state = StateAuthRequired
	return &SubmitResult{
		State:      StateAuthRequired,
		RedirectTo: loginRedirect + "?next=" + url.QueryEscape(c.currentPath),
	}, nil
}

// succeed clears persisted autosave state exactly once and schedules
// the post-success redirect. Cleanup failure never blocks the
// user-visible outcome; it is eventual-consistency debt.
func (c *Coordinator) succeed(ctx context.Context, message string) (*SubmitResult, error) {
	if err := c.routine.Clear(ctx, c.templateID); err != nil {
		logger.Warn("clear autosave for template %s: %v", c.templateID, err)
	}
	c.state = StateSucceeded
	c.submitted = true
	return &SubmitResult{
		State:         StateSucceeded,
		Message:       message,
		RedirectTo:    successRedirect,
		RedirectAfter: successDelay,
	}, nil
}
