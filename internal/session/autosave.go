package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sowfeehealth/wellness/internal/logger"
	"github.com/sowfeehealth/wellness/internal/models"
)

// DefaultAutosaveInterval matches the survey page's save cadence.
const DefaultAutosaveInterval = 3 * time.Second

// Scheduler periodically flushes the answer store to its snapshot
// store. Saves are best-effort: failures are logged and swallowed, the
// editing flow is never interrupted. The loop is non-reentrant; a tick
// that fires while a save is still in flight is dropped, so at most the
// latest snapshot is ever pending.
type Scheduler struct {
	store        SnapshotStore
	answers      *AnswerStore
	templateID   string
	studentName  string
	studentEmail string
	interval     time.Duration
	now          func() time.Time

	submitted atomic.Bool
	inFlight  atomic.Bool
	stop      chan struct{}
	stopOnce  sync.Once
	done      chan struct{}
}

func NewScheduler(store SnapshotStore, answers *AnswerStore, templateID string) *Scheduler {
	return &Scheduler{
		store:      store,
		answers:    answers,
		templateID: templateID,
		interval:   DefaultAutosaveInterval,
		now:        func() time.Time { return time.Now().UTC() },
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// SetIdentity attaches the respondent's name and email to future
// snapshots, when known.
func (s *Scheduler) SetIdentity(name, email string) {
	s.studentName = name
	s.studentEmail = email
}

// SetInterval overrides the save cadence; it must be called before Start.
func (s *Scheduler) SetInterval(d time.Duration) {
	if d > 0 {
		s.interval = d
	}
}

// MarkSubmitted turns subsequent ticks into no-ops. The timer itself
// keeps running until Stop; teardown owns its cancellation.
func (s *Scheduler) MarkSubmitted() {
	s.submitted.Store(true)
}

// Start runs the autosave loop until Stop is called or ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.tick(ctx)
			case <-s.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop cancels the timer. It must run on session teardown so no write
// is issued against a stale template id after navigation.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
}

func (s *Scheduler) tick(ctx context.Context) {
	if s.submitted.Load() {
		return
	}
	// Never persist a blank session; it would overwrite a previous
	// snapshot before the respondent has entered anything.
	if s.answers.Len() == 0 {
		return
	}
	if !s.inFlight.CompareAndSwap(false, true) {
		return
	}
	// Snapshot-then-send: the write reflects the state at the moment
	// the tick fired, not later edits.
	snap := models.AutosaveSnapshot{
		TemplateID:   s.templateID,
		Answers:      s.answers.Snapshot(),
		StudentName:  s.studentName,
		StudentEmail: s.studentEmail,
		SavedAt:      s.now(),
	}
	go func() {
		defer s.inFlight.Store(false)
		if err := s.store.Save(ctx, s.templateID, snap); err != nil {
			logger.Warn("autosave failed for template %s: %v", s.templateID, err)
		}
	}()
}
