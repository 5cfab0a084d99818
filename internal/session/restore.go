package session

import (
	"context"

	"github.com/sowfeehealth/wellness/internal/logger"
	"github.com/sowfeehealth/wellness/internal/models"
)

// RestoredState is what a session start seeds from persistence.
type RestoredState struct {
	Answers      models.AnswerMap
	StudentName  string
	StudentEmail string
	// FromPending marks that a pending-submission snapshot was
	// consumed; the respondent had already finished entering answers
	// once before the authentication hand-off.
	FromPending bool
}

// Restorer decides which stored answers, if any, seed the new session.
// Precedence is strict: a pending-submission snapshot always beats the
// routine autosave, and the two are never merged.
type Restorer struct {
	pending SnapshotStore
	routine SnapshotStore
}

func NewRestorer(pending, routine SnapshotStore) *Restorer {
	return &Restorer{pending: pending, routine: routine}
}

// Restore runs once at session start, after the template is known.
// The pending snapshot, when present, is consumed: loaded and deleted
// in the same pass regardless of whether it is usable. A pending
// snapshot whose template no longer matches is discarded, not applied;
// restore then falls through to the routine autosave.
func (r *Restorer) Restore(ctx context.Context, templateID string) (*RestoredState, error) {
	if snap, err := r.pending.Load(ctx, templateID); err == nil && snap != nil {
		if err := r.pending.Clear(ctx, templateID); err != nil {
			logger.Warn("consume pending snapshot for template %s: %v", templateID, err)
		}
		if snap.TemplateID == templateID {
			return &RestoredState{
				Answers:      snap.Answers,
				StudentName:  snap.StudentName,
				StudentEmail: snap.StudentEmail,
				FromPending:  true,
			}, nil
		}
		logger.Warn("pending snapshot template %s does not match session template %s, discarded", snap.TemplateID, templateID)
	} else if err != nil {
		logger.Warn("load pending snapshot for template %s: %v", templateID, err)
	}

	snap, err := r.routine.Load(ctx, templateID)
	if err != nil {
		logger.Warn("load autosave for template %s: %v", templateID, err)
		return &RestoredState{Answers: models.AnswerMap{}}, nil
	}
	if snap == nil || snap.TemplateID != templateID {
		return &RestoredState{Answers: models.AnswerMap{}}, nil
	}
	return &RestoredState{
		Answers:      snap.Answers,
		StudentName:  snap.StudentName,
		StudentEmail: snap.StudentEmail,
	}, nil
}
