package session

import (
	"strings"
	"sync"

	"github.com/sowfeehealth/wellness/internal/models"
)

// AnswerStore holds the in-progress answers of one survey session.
// Values are upserted whole; there is no partial edit. Validation of
// answer shape beyond "non-empty" is a presentation concern.
type AnswerStore struct {
	mu      sync.RWMutex
	answers models.AnswerMap
}

func NewAnswerStore() *AnswerStore {
	return &AnswerStore{answers: models.AnswerMap{}}
}

// Set upserts the answer for questionID. Empty values are ignored so a
// cleared radio group cannot wipe a previously recorded answer.
func (a *AnswerStore) Set(questionID, value string) {
	if questionID == "" || strings.TrimSpace(value) == "" {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.answers[questionID] = value
}

func (a *AnswerStore) Get(questionID string) (string, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	v, ok := a.answers[questionID]
	return v, ok
}

func (a *AnswerStore) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.answers)
}

// Snapshot returns a copy of the current answers. Callers persisting it
// see the state at the moment of the call, not later mutations.
func (a *AnswerStore) Snapshot() models.AnswerMap {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make(models.AnswerMap, len(a.answers))
	for k, v := range a.answers {
		out[k] = v
	}
	return out
}

// Seed replaces the current answers from a restored snapshot.
func (a *AnswerStore) Seed(answers models.AnswerMap) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.answers = make(models.AnswerMap, len(answers))
	for k, v := range answers {
		if k == "" || strings.TrimSpace(v) == "" {
			continue
		}
		a.answers[k] = v
	}
}

// IsComplete reports whether every question has an answer. The check is
// strict equality: extra stale answers do not count as complete either.
func (a *AnswerStore) IsComplete(questionCount int) bool {
	if questionCount <= 0 {
		return false
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.answers) == questionCount
}
