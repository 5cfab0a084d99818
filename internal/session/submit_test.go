package session

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sowfeehealth/wellness/internal/models"
)

type stubSink struct {
	outcome     *SubmitOutcome
	err         error
	directCalls int
	hashCalls   int
	lastHash    string
	lastReq     SubmitRequest
}

func (s *stubSink) SubmitDirect(_ context.Context, req SubmitRequest) (*SubmitOutcome, error) {
	s.directCalls++
	s.lastReq = req
	return s.outcome, s.err
}

func (s *stubSink) SubmitHashLink(_ context.Context, hash string, req SubmitRequest) (*SubmitOutcome, error) {
	s.hashCalls++
	s.lastHash = hash
	s.lastReq = req
	return s.outcome, s.err
}

func coordinatorFixture(sink *stubSink, res *Resolution, answered int) (*Coordinator, *stubSnapshotStore, *stubSnapshotStore, *AnswerStore) {
	answers := NewAnswerStore()
	for i, q := range res.Questions {
		if i >= answered {
			break
		}
		answers.Set(q.ID, "3")
	}
	pending := newStubSnapshotStore()
	routine := newStubSnapshotStore()
	c := NewCoordinator(sink, pending, routine, res, answers, "/survey/link/abc")
	return c, pending, routine, answers
}

func hashLinkResolution(n int, identity *models.Identity) *Resolution {
	return &Resolution{
		Context:    Context{Mode: AccessHashLink, HashLink: "abc", Identity: identity},
		TemplateID: "T1",
		Questions:  questionsFixture(n),
	}
}

func directResolution(n int, identity *models.Identity) *Resolution {
	return &Resolution{
		Context:    Context{Mode: AccessDirect, Identity: identity},
		TemplateID: "T1",
		Questions:  questionsFixture(n),
	}
}

func TestSubmitIncompleteFailsWithoutNetworkCall(t *testing.T) {
	sink := &stubSink{outcome: &SubmitOutcome{Success: true}}
	c, _, _, _ := coordinatorFixture(sink, hashLinkResolution(5, nil), 3)

	res, err := c.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if res.State != StateFailed {
		t.Fatalf("state = %v, want failed", res.State)
	}
	if res.Message != MsgIncomplete {
		t.Fatalf("message = %q, want %q", res.Message, MsgIncomplete)
	}
	if sink.directCalls+sink.hashCalls != 0 {
		t.Fatalf("incomplete submission must never reach the submit endpoint")
	}
}

func TestSubmitSuccessClearsOnceAndSchedulesRedirect(t *testing.T) {
	sink := &stubSink{outcome: &SubmitOutcome{Success: true, Message: "Wellness check submitted successfully"}}
	id := &models.Identity{Name: "Ann", Email: "ann@uni.edu"}
	c, _, routine, _ := coordinatorFixture(sink, directResolution(5, id), 5)
	c.SetIdentity(id.Name, id.Email)
	_ = routine.Save(context.Background(), "T1", models.AutosaveSnapshot{Answers: models.AnswerMap{"a": "3"}})

	res, err := c.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if res.State != StateSucceeded {
		t.Fatalf("state = %v, want succeeded", res.State)
	}
	if sink.directCalls != 1 || sink.hashCalls != 0 {
		t.Fatalf("direct access must use the direct endpoint (direct=%d hash=%d)", sink.directCalls, sink.hashCalls)
	}
	if sink.lastReq.StudentEmail != "ann@uni.edu" {
		t.Fatalf("identity fields missing from request: %+v", sink.lastReq)
	}
	if _, deletes := routine.counts(); deletes != 1 {
		t.Fatalf("clear calls = %d, want exactly 1", deletes)
	}
	if res.RedirectTo != "/" || res.RedirectAfter != successDelay {
		t.Fatalf("expected delayed redirect home, got %+v", res)
	}
	if !c.Submitted() {
		t.Fatalf("coordinator should record submission")
	}
}

func TestSubmitSuccessRetriesLeftoverClear(t *testing.T) {
	sink := &stubSink{outcome: &SubmitOutcome{Success: true}}
	c, _, routine, _ := coordinatorFixture(sink, directResolution(2, nil), 2)
	_ = routine.Save(context.Background(), "T1", models.AutosaveSnapshot{Answers: models.AnswerMap{"a": "3"}})
	routine.stickyDeletes = 1

	res, err := c.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if res.State != StateSucceeded {
		t.Fatalf("state = %v, want succeeded", res.State)
	}
	if _, deletes := routine.counts(); deletes != 2 {
		t.Fatalf("clear calls = %d, want initial + one retry", deletes)
	}
}

func TestSubmitClearFailureDoesNotBlockSuccess(t *testing.T) {
	sink := &stubSink{outcome: &SubmitOutcome{Success: true}}
	c, _, routine, _ := coordinatorFixture(sink, directResolution(2, nil), 2)
	_ = routine.Save(context.Background(), "T1", models.AutosaveSnapshot{Answers: models.AnswerMap{"a": "3"}})
	routine.stickyDeletes = 5

	res, err := c.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if res.State != StateSucceeded {
		t.Fatalf("cleanup debt must not block success, state = %v", res.State)
	}
}

func TestSubmitRequiresAuthPersistsPendingSnapshot(t *testing.T) {
	sink := &stubSink{outcome: &SubmitOutcome{RequiresAuth: true}}
	c, pending, routine, _ := coordinatorFixture(sink, hashLinkResolution(5, nil), 5)

	res, err := c.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if res.State != StateAuthRequired {
		t.Fatalf("state = %v, want auth_required", res.State)
	}
	if sink.hashCalls != 1 || sink.lastHash != "abc" {
		t.Fatalf("hash-link access must use the hash endpoint")
	}
	snap, _ := pending.Load(context.Background(), "T1")
	if snap == nil || len(snap.Answers) != 5 {
		t.Fatalf("pending snapshot must hold the finished answers, got %+v", snap)
	}
	if _, deletes := routine.counts(); deletes != 0 {
		t.Fatalf("no clear may run on the auth hand-off")
	}
	if !strings.Contains(res.RedirectTo, "next=") || !strings.Contains(res.RedirectTo, "%2Fsurvey%2Flink%2Fabc") {
		t.Fatalf("redirect %q must carry the way back", res.RedirectTo)
	}
}

func TestSubmitAdminNeverLeavesEditing(t *testing.T) {
	sink := &stubSink{outcome: &SubmitOutcome{Success: true}}
	admin := &models.Identity{Name: "Dean", Email: "dean@uni.edu", IsAdmin: true}
	c, pending, routine, _ := coordinatorFixture(sink, directResolution(2, admin), 2)

	res, err := c.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if res.State != StateEditing || c.State() != StateEditing {
		t.Fatalf("admin submit must stay in editing, got %v", res.State)
	}
	if sink.directCalls+sink.hashCalls != 0 {
		t.Fatalf("admin submit must not reach the endpoint")
	}
	if saves, _ := pending.counts(); saves != 0 {
		t.Fatalf("no snapshot may be written for admin preview")
	}
	if _, deletes := routine.counts(); deletes != 0 {
		t.Fatalf("no clear may run for admin preview")
	}
}

func TestSubmitServerRejectionPassesMessageVerbatim(t *testing.T) {
	sink := &stubSink{outcome: &SubmitOutcome{Success: false, Message: "You have already submitted this wellness check today"}}
	c, _, _, _ := coordinatorFixture(sink, directResolution(2, nil), 2)

	res, _ := c.Submit(context.Background())
	if res.State != StateFailed {
		t.Fatalf("state = %v, want failed", res.State)
	}
	if res.Message != "You have already submitted this wellness check today" {
		t.Fatalf("server message must pass through verbatim, got %q", res.Message)
	}
}

func TestSubmitFailureFallsBackToGenericMessage(t *testing.T) {
	sink := &stubSink{outcome: &SubmitOutcome{Success: false}}
	c, _, _, _ := coordinatorFixture(sink, directResolution(2, nil), 2)

	res, _ := c.Submit(context.Background())
	if res.Message != MsgSubmitFailed {
		t.Fatalf("message = %q, want generic fallback", res.Message)
	}
}

func TestSubmitTransportErrorFails(t *testing.T) {
	sink := &stubSink{err: errors.New("connection reset")}
	c, _, routine, _ := coordinatorFixture(sink, directResolution(2, nil), 2)

	res, err := c.Submit(context.Background())
	if err != nil {
		t.Fatalf("transport failure maps to the failed state, not an error: %v", err)
	}
	if res.State != StateFailed || res.Message != MsgSubmitFailed {
		t.Fatalf("unexpected result %+v", res)
	}
	if _, deletes := routine.counts(); deletes != 0 {
		t.Fatalf("no clear may run on failure")
	}
}

func TestSubmitIdempotentAfterSuccess(t *testing.T) {
	sink := &stubSink{outcome: &SubmitOutcome{Success: true}}
	c, _, routine, _ := coordinatorFixture(sink, directResolution(2, nil), 2)

	if res, _ := c.Submit(context.Background()); res.State != StateSucceeded {
		t.Fatalf("first submit should succeed")
	}
	res, err := c.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if res.State != StateSucceeded {
		t.Fatalf("repeat submit reports success, got %v", res.State)
	}
	if sink.directCalls != 1 {
		t.Fatalf("endpoint calls = %d, want 1", sink.directCalls)
	}
	if _, deletes := routine.counts(); deletes != 1 {
		t.Fatalf("clear calls = %d, want exactly 1 across repeats", deletes)
	}
}
