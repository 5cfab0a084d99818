package services

import (
	"time"

	"github.com/sowfeehealth/wellness/internal/models"
)

// AutosaveRecord is one stored snapshot row, scoped to the student the
// server inferred from the caller's identity.
type AutosaveRecord struct {
	StudentEmail string
	TemplateID   string
	Kind         models.SnapshotKind
	Snapshot     models.AutosaveSnapshot
	UpdatedAt    time.Time
}

// AutosaveStore persists snapshot rows keyed by
// (student, template, kind). Upsert keeps saves idempotent.
type AutosaveStore interface {
	UpsertAutosave(rec *AutosaveRecord) error
	GetAutosave(studentEmail, templateID string, kind models.SnapshotKind) (*AutosaveRecord, error)
	DeleteAutosave(studentEmail, templateID string, kind models.SnapshotKind) error
}

// AutosaveService is the server half of remote autosave: the client
// passes the template id explicitly, identity arrives resolved.
type AutosaveService struct {
	store AutosaveStore
	now   func() time.Time
}

func NewAutosaveService(store AutosaveStore) *AutosaveService {
	return &AutosaveService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *AutosaveService) Save(studentEmail, templateID string, kind models.SnapshotKind, snap models.AutosaveSnapshot) error {
	if studentEmail == "" || templateID == "" {
		return NewInvalidError("student/template required")
	}
	if kind != models.SnapshotRoutine && kind != models.SnapshotPending {
		return NewInvalidError("unknown snapshot kind")
	}
	snap.TemplateID = templateID
	if snap.SavedAt.IsZero() {
		snap.SavedAt = s.now()
	}
	return s.store.UpsertAutosave(&AutosaveRecord{
		StudentEmail: studentEmail,
		TemplateID:   templateID,
		Kind:         kind,
		Snapshot:     snap,
		UpdatedAt:    s.now(),
	})
}

// Load returns nil when no snapshot exists; absence is not an error.
func (s *AutosaveService) Load(studentEmail, templateID string, kind models.SnapshotKind) (*models.AutosaveSnapshot, error) {
	if studentEmail == "" || templateID == "" {
		return nil, NewInvalidError("student/template required")
	}
	rec, err := s.store.GetAutosave(studentEmail, templateID, kind)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	snap := rec.Snapshot
	return &snap, nil
}

// Clear is idempotent: deleting an absent snapshot succeeds.
func (s *AutosaveService) Clear(studentEmail, templateID string, kind models.SnapshotKind) error {
	if studentEmail == "" || templateID == "" {
		return NewInvalidError("student/template required")
	}
	return s.store.DeleteAutosave(studentEmail, templateID, kind)
}
