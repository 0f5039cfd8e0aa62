package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"oncohub.org/internal/access"
	"oncohub.org/internal/congress"
)

var eventColumns = []string{"id", "name", "status", "starts_on", "ends_on", "updated_at"}

func TestEvent(t *testing.T) {
	store, mock := newMockStore(t)
	starts := time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(q("from congress_events")).WithArgs("c1").
		WillReturnRows(sqlmock.NewRows(eventColumns).AddRow("c1", "Spring Congress", "live", starts, nil, starts))
	mock.ExpectQuery(q("from congress_events")).WithArgs("c2").
		WillReturnRows(sqlmock.NewRows(eventColumns).AddRow("c2", "Draft", nil, nil, nil, starts))

	ev, err := store.Event(context.Background(), "c1")
	if err != nil {
		t.Fatalf("Event: %v", err)
	}
	if ev.Status != congress.StageLive || ev.StartsOn == nil || ev.EndsOn != nil {
		t.Fatalf("unexpected event: %+v", ev)
	}
	ev, err = store.Event(context.Background(), "c2")
	if err != nil {
		t.Fatalf("Event: %v", err)
	}
	if ev.Status != "" {
		t.Fatalf("expected empty stage, got %q", ev.Status)
	}
}

func TestSetStageConflict(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec(q("set_config")).WithArgs("coord").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("update congress_events")).
		WithArgs("c1", "planning", "open_for_topics", sqlmock.AnyArg(), "coord").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q("select status from congress_events")).WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("open_for_topics"))
	mock.ExpectRollback()

	_, err := store.SetStage(context.Background(), "coord", "c1", congress.StagePlanning, congress.StageOpenForTopics)
	if !errors.Is(err, access.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSetStageRefusedByRowPolicy(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec(q("set_config")).WithArgs("clin").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("update congress_events")).
		WithArgs("c1", "planning", "open_for_topics", sqlmock.AnyArg(), "clin").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q("select status from congress_events")).WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("planning"))
	mock.ExpectRollback()

	_, err := store.SetStage(context.Background(), "clin", "c1", congress.StagePlanning, congress.StageOpenForTopics)
	if !errors.Is(err, access.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if errors.Is(err, access.ErrConflict) {
		t.Fatalf("policy refusal must not read as a conflict: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSetStageMissingEvent(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec(q("set_config")).WithArgs("coord").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("update congress_events")).
		WithArgs("gone", "planning", "open_for_topics", sqlmock.AnyArg(), "coord").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q("select status from congress_events")).WithArgs("gone").
		WillReturnRows(sqlmock.NewRows([]string{"status"}))
	mock.ExpectRollback()

	_, err := store.SetStage(context.Background(), "coord", "gone", congress.StagePlanning, congress.StageOpenForTopics)
	if !errors.Is(err, access.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSetStage(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectExec(q("set_config")).WithArgs("coord").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("update congress_events")).
		WithArgs("c1", "live", "post_congress", sqlmock.AnyArg(), "coord").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(q("from congress_events")).WithArgs("c1").
		WillReturnRows(sqlmock.NewRows(eventColumns).AddRow("c1", "Spring Congress", "post_congress", nil, nil, now))

	ev, err := store.SetStage(context.Background(), "coord", "c1", congress.StageLive, congress.StagePostCongress)
	if err != nil {
		t.Fatalf("SetStage: %v", err)
	}
	if ev.Status != congress.StagePostCongress {
		t.Fatalf("unexpected status: %s", ev.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAssignments(t *testing.T) {
	store, mock := newMockStore(t)
	from := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(q("from congress_assignments")).WithArgs("c1", "u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "congress_id", "project_role", "all_workstreams", "workstream_ids", "effective_from", "effective_to"}).
			AddRow("a1", "u1", "c1", "Ops Lead", false, []byte(`["ws-1","ws-2"]`), from, to).
			AddRow("a2", "u1", "c1", "Observer", true, []byte(`[]`), from, nil))

	list, err := store.Assignments(context.Background(), "c1", "u1")
	if err != nil {
		t.Fatalf("Assignments: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 assignments, got %d", len(list))
	}
	if !list[0].Scope.Covers("ws-2") || list[0].Scope.Covers("ws-3") || list[0].EffectiveTo == nil {
		t.Fatalf("unexpected first assignment: %+v", list[0])
	}
	if !list[1].Scope.All || list[1].EffectiveTo != nil {
		t.Fatalf("unexpected second assignment: %+v", list[1])
	}
}

func TestCreateAssignment(t *testing.T) {
	store, mock := newMockStore(t)
	from := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectExec(q("set_config")).WithArgs("coord").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("insert into congress_assignments")).
		WithArgs(sqlmock.AnyArg(), "u2", "c1", "Sponsor Lead", false, []byte(`["ws-sponsors"]`), from, nil, "coord").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	a, err := store.CreateAssignment(context.Background(), "coord", congress.Assignment{
		UserID: "u2", CongressID: "c1", ProjectRole: congress.ProjectSponsorLead,
		Scope:         congress.WorkstreamScope{WorkstreamIDs: []string{"ws-sponsors"}},
		EffectiveFrom: from,
	})
	if err != nil {
		t.Fatalf("CreateAssignment: %v", err)
	}
	if a.ID == "" {
		t.Fatalf("expected generated id")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
