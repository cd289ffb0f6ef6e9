package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/friendsincode/mimir_forum/internal/models"
	"github.com/google/uuid"
)

func TestCreateInterviewHappyPath(t *testing.T) {
	database := setupTestDB(t)
	clock := &testClock{now: time.Date(2026, 3, 12, 8, 0, 0, 0, time.UTC)}
	svc := newTestService(t, database, clock)

	student := createStudent(t, database, "amina", models.StudentInternal, false)
	company := createCompany(t, database, "Acme", 0)
	at := time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC)

	interview := createInterview(t, svc, student, company, at)

	if interview.Status != models.StatusWaiting {
		t.Errorf("status = %q, want waiting", interview.Status)
	}
	if interview.Position != 1 {
		t.Errorf("position = %d, want 1", interview.Position)
	}
	if interview.Priority != 81 {
		t.Errorf("priority = %d, want 81", interview.Priority)
	}
	if interview.StudentName != student.FullName || interview.CompanyName != company.Name {
		t.Error("participant names not denormalized onto the record")
	}
	if interview.Room != company.Room {
		t.Errorf("room = %q, want %q", interview.Room, company.Room)
	}
	if interview.EstimatedDuration != 15 {
		t.Errorf("duration = %d, want default 15", interview.EstimatedDuration)
	}
	if len(interview.Notifications) != 1 || interview.Notifications[0].Type != "scheduled" {
		t.Errorf("notifications = %+v, want one scheduled entry", interview.Notifications)
	}
}

func TestCreateInterviewValidation(t *testing.T) {
	database := setupTestDB(t)
	svc := newTestService(t, database, &testClock{now: time.Now()})
	student := createStudent(t, database, "sami", models.StudentExternal, false)
	company := createCompany(t, database, "Beta", 0)
	at := time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		req  CreateRequest
	}{
		{
			name: "missing student",
			req:  CreateRequest{CompanyID: company.ID, OpportunityType: models.OpportunityPFE, ScheduledTime: at},
		},
		{
			name: "missing company",
			req:  CreateRequest{StudentID: student.ID, OpportunityType: models.OpportunityPFE, ScheduledTime: at},
		},
		{
			name: "missing scheduled time",
			req:  CreateRequest{StudentID: student.ID, CompanyID: company.ID, OpportunityType: models.OpportunityPFE},
		},
		{
			name: "unknown opportunity type",
			req:  CreateRequest{StudentID: student.ID, CompanyID: company.ID, OpportunityType: "sabbatical", ScheduledTime: at},
		},
		{
			name: "negative duration",
			req: CreateRequest{StudentID: student.ID, CompanyID: company.ID, OpportunityType: models.OpportunityPFE,
				ScheduledTime: at, EstimatedDuration: -5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateInterview(context.Background(), tt.req)
			if _, ok := AsValidationError(err); !ok {
				t.Errorf("err = %v, want ValidationError", err)
			}
		})
	}

	var count int64
	database.Model(&models.Interview{}).Count(&count)
	if count != 0 {
		t.Errorf("rejected registrations persisted %d interviews", count)
	}
}

func TestCreateInterviewUnknownParticipants(t *testing.T) {
	database := setupTestDB(t)
	svc := newTestService(t, database, &testClock{now: time.Now()})
	student := createStudent(t, database, "lina", models.StudentExternal, false)
	at := time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC)

	_, err := svc.CreateInterview(context.Background(), CreateRequest{
		StudentID:       student.ID,
		CompanyID:       uuid.New(),
		OpportunityType: models.OpportunityPFE,
		ScheduledTime:   at,
	})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown company err = %v, want ErrNotFound", err)
	}

	company := createCompany(t, database, "Gamma", 0)
	_, err = svc.CreateInterview(context.Background(), CreateRequest{
		StudentID:       uuid.New(),
		CompanyID:       company.ID,
		OpportunityType: models.OpportunityPFE,
		ScheduledTime:   at,
	})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown student err = %v, want ErrNotFound", err)
	}
}

func TestCreateInterviewOpportunityNotAccepted(t *testing.T) {
	database := setupTestDB(t)
	svc := newTestService(t, database, &testClock{now: time.Now()})
	student := createStudent(t, database, "yanis", models.StudentExternal, false)
	company := createCompany(t, database, "Delta", 0, string(models.OpportunityEmploi))

	_, err := svc.CreateInterview(context.Background(), CreateRequest{
		StudentID:       student.ID,
		CompanyID:       company.ID,
		OpportunityType: models.OpportunityPFE,
		ScheduledTime:   time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC),
	})
	if !errors.Is(err, ErrOpportunityNotAccepted) {
		t.Errorf("err = %v, want ErrOpportunityNotAccepted", err)
	}
}

func TestCreateInterviewCapacityExceeded(t *testing.T) {
	database := setupTestDB(t)
	svc := newTestService(t, database, &testClock{now: time.Now()})
	company := createCompany(t, database, "Epsilon", 1)
	first := createStudent(t, database, "first", models.StudentExternal, false)
	second := createStudent(t, database, "second", models.StudentExternal, false)

	createInterview(t, svc, first, company, time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC))

	_, err := svc.CreateInterview(context.Background(), CreateRequest{
		StudentID:       second.ID,
		CompanyID:       company.ID,
		OpportunityType: models.OpportunityPFE,
		ScheduledTime:   time.Date(2026, 3, 12, 14, 0, 0, 0, time.UTC),
	})
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Errorf("err = %v, want ErrCapacityExceeded", err)
	}
}

func TestQueuePositionsPerCompany(t *testing.T) {
	database := setupTestDB(t)
	svc := newTestService(t, database, &testClock{now: time.Now()})
	company := createCompany(t, database, "Zeta", 0)
	base := time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		student := createStudent(t, database, uuid.NewString(), models.StudentExternal, false)
		interview := createInterview(t, svc, student, company, base.Add(time.Duration(i)*time.Hour))
		if interview.Position != i+1 {
			t.Errorf("interview %d position = %d, want %d", i, interview.Position, i+1)
		}
	}
}

func TestStateMachineTransitions(t *testing.T) {
	database := setupTestDB(t)
	clock := &testClock{now: time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC)}
	svc := newTestService(t, database, clock)
	student := createStudent(t, database, "nora", models.StudentInternal, false)
	company := createCompany(t, database, "Eta", 0)

	interview := createInterview(t, svc, student, company, clock.now)
	ctx := context.Background()

	started, err := svc.Start(ctx, interview.ID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if started.Status != models.StatusInProgress {
		t.Errorf("status = %q, want in_progress", started.Status)
	}
	if started.StartTime == nil || !started.StartTime.Equal(clock.now) {
		t.Errorf("start time = %v, want %s", started.StartTime, clock.now)
	}

	// Double start must fail and leave the record untouched.
	if _, err := svc.Start(ctx, interview.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("double start err = %v, want ErrInvalidTransition", err)
	}

	clock.now = clock.now.Add(22 * time.Minute)
	ended, err := svc.End(ctx, interview.ID)
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	if ended.Status != models.StatusCompleted {
		t.Errorf("status = %q, want completed", ended.Status)
	}
	if ended.ActualDuration == nil || *ended.ActualDuration != 22 {
		t.Errorf("actual duration = %v, want 22", ended.ActualDuration)
	}

	// Terminal record rejects every further transition.
	if _, err := svc.Start(ctx, interview.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("start after completion err = %v, want ErrInvalidTransition", err)
	}
	if _, err := svc.Cancel(ctx, interview.ID, "too late"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("cancel after completion err = %v, want ErrInvalidTransition", err)
	}
	if _, err := svc.MarkNoShow(ctx, interview.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("no-show after completion err = %v, want ErrInvalidTransition", err)
	}
}

func TestEndRequiresInProgress(t *testing.T) {
	database := setupTestDB(t)
	clock := &testClock{now: time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC)}
	svc := newTestService(t, database, clock)
	student := createStudent(t, database, "omar", models.StudentExternal, false)
	company := createCompany(t, database, "Theta", 0)

	interview := createInterview(t, svc, student, company, clock.now)

	if _, err := svc.End(context.Background(), interview.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("ending a waiting interview err = %v, want ErrInvalidTransition", err)
	}

	unchanged := mustGet(t, database, interview.ID)
	if unchanged.Status != models.StatusWaiting || unchanged.EndTime != nil {
		t.Error("rejected transition mutated the record")
	}
}

func TestCancelFromEachActiveState(t *testing.T) {
	database := setupTestDB(t)
	clock := &testClock{now: time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC)}
	ctx := context.Background()

	for _, status := range []models.InterviewStatus{models.StatusScheduled, models.StatusWaiting, models.StatusInProgress} {
		svc := newTestService(t, database, clock)
		seeded := seedInterview(t, database, uuid.New(), clock.now, 15, status)

		cancelled, err := svc.Cancel(ctx, seeded.ID, "organizer decision")
		if err != nil {
			t.Errorf("cancel from %q: %v", status, err)
			continue
		}
		if cancelled.Status != models.StatusCancelled {
			t.Errorf("status = %q, want cancelled", cancelled.Status)
		}
		if cancelled.Notes != "organizer decision" {
			t.Errorf("notes = %q, want the cancellation reason", cancelled.Notes)
		}
	}
}

func TestMarkNoShow(t *testing.T) {
	database := setupTestDB(t)
	clock := &testClock{now: time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC)}
	svc := newTestService(t, database, clock)
	student := createStudent(t, database, "rim", models.StudentExternal, false)
	company := createCompany(t, database, "Iota", 0)

	interview := createInterview(t, svc, student, company, clock.now)

	marked, err := svc.MarkNoShow(context.Background(), interview.ID)
	if err != nil {
		t.Fatalf("MarkNoShow: %v", err)
	}
	if marked.Status != models.StatusNoShow {
		t.Errorf("status = %q, want no_show", marked.Status)
	}
}

func TestTransitionNotFound(t *testing.T) {
	database := setupTestDB(t)
	svc := newTestService(t, database, &testClock{now: time.Now()})

	if _, err := svc.Start(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

// TestConflictDetectionEndToEnd walks the full registration scenario:
// a second booking five minutes into an existing one is rejected with
// the conflict set, and resolution pushes the booking to the next free
// 15-minute slot.
func TestConflictDetectionEndToEnd(t *testing.T) {
	database := setupTestDB(t)
	T := time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC)
	clock := &testClock{now: T}
	svc := newTestService(t, database, clock)
	ctx := context.Background()

	student := createStudent(t, database, "selma", models.StudentInternal, false)
	companyA := createCompany(t, database, "Kappa", 0)
	companyB := createCompany(t, database, "Lambda", 0)

	first := createInterview(t, svc, student, companyA, T)
	if first.Status != models.StatusWaiting || first.Position != 1 {
		t.Fatalf("first interview status=%q position=%d, want waiting/1", first.Status, first.Position)
	}

	// Same student, different company, five minutes into the first
	// window: rejected with the overlapping interview attached.
	_, err := svc.CreateInterview(ctx, CreateRequest{
		StudentID:       student.ID,
		CompanyID:       companyB.ID,
		OpportunityType: models.OpportunityPFE,
		ScheduledTime:   T.Add(5 * time.Minute),
	})
	conflictErr, ok := AsConflictError(err)
	if !ok {
		t.Fatalf("err = %v, want ConflictError", err)
	}
	if len(conflictErr.Conflicts) != 1 || conflictErr.Conflicts[0].ID != first.ID {
		t.Fatalf("conflicts = %+v, want the first interview", conflictErr.Conflicts)
	}

	var count int64
	database.Model(&models.Interview{}).Count(&count)
	if count != 1 {
		t.Fatalf("conflicting registration persisted, count = %d", count)
	}

	// Resolving the first interview reschedules it to the next clear
	// 15-minute slot after its own window.
	resolution, err := svc.ResolveConflicts(ctx, first.ID)
	if err != nil {
		t.Fatalf("ResolveConflicts: %v", err)
	}
	if !resolution.Resolved {
		t.Fatal("resolution.Resolved = false, want true")
	}
	want := T.Add(15 * time.Minute)
	if resolution.NewTime == nil || !resolution.NewTime.Equal(want) {
		t.Fatalf("new time = %v, want %s", resolution.NewTime, want)
	}

	rescheduled := mustGet(t, database, first.ID)
	if !rescheduled.ScheduledTime.Equal(want) {
		t.Errorf("scheduled time = %s, want %s", rescheduled.ScheduledTime, want)
	}
	if rescheduled.HasUnresolvedConflicts() {
		t.Error("resolution left unresolved conflict records")
	}
	if len(rescheduled.Conflicts) == 0 {
		t.Error("resolution recorded no conflict entry")
	}
}

func TestCreateWithAllowConflictsAnnotates(t *testing.T) {
	database := setupTestDB(t)
	T := time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC)
	svc := newTestService(t, database, &testClock{now: T})
	ctx := context.Background()

	student := createStudent(t, database, "walid", models.StudentExternal, false)
	companyA := createCompany(t, database, "Mu", 0)
	companyB := createCompany(t, database, "Nu", 0)

	createInterview(t, svc, student, companyA, T)

	second, err := svc.CreateInterview(ctx, CreateRequest{
		StudentID:       student.ID,
		CompanyID:       companyB.ID,
		OpportunityType: models.OpportunityPFE,
		ScheduledTime:   T.Add(5 * time.Minute),
		AllowConflicts:  true,
	})
	if err != nil {
		t.Fatalf("CreateInterview with AllowConflicts: %v", err)
	}
	if !second.HasUnresolvedConflicts() {
		t.Error("overlapping interview created without conflict annotation")
	}
}

func TestResolveConflictsNothingToResolve(t *testing.T) {
	database := setupTestDB(t)
	T := time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC)
	svc := newTestService(t, database, &testClock{now: T})

	// A lone completed interview is not active, so its window has no
	// conflicts, not even with itself.
	seeded := seedInterview(t, database, uuid.New(), T, 15, models.StatusCompleted)

	resolution, err := svc.ResolveConflicts(context.Background(), seeded.ID)
	if err != nil {
		t.Fatalf("ResolveConflicts: %v", err)
	}
	if resolution.Resolved {
		t.Error("resolution.Resolved = true, want false when nothing overlaps")
	}
}

func TestGetInterviewStats(t *testing.T) {
	database := setupTestDB(t)
	clock := &testClock{now: time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC)}
	svc := newTestService(t, database, clock)
	ctx := context.Background()

	company := createCompany(t, database, "Xi", 0)
	base := clock.now

	for i := 0; i < 2; i++ {
		student := createStudent(t, database, uuid.NewString(), models.StudentExternal, false)
		interview := createInterview(t, svc, student, company, base.Add(time.Duration(i)*time.Hour))
		if _, err := svc.Start(ctx, interview.ID); err != nil {
			t.Fatalf("Start: %v", err)
		}
		clock.now = clock.now.Add(20 * time.Minute)
		if _, err := svc.End(ctx, interview.ID); err != nil {
			t.Fatalf("End: %v", err)
		}
	}
	waiting := createStudent(t, database, "still-waiting", models.StudentExternal, false)
	createInterview(t, svc, waiting, company, base.Add(6*time.Hour))

	stats, err := svc.GetInterviewStats(ctx)
	if err != nil {
		t.Fatalf("GetInterviewStats: %v", err)
	}
	if stats.Total != 3 {
		t.Errorf("Total = %d, want 3", stats.Total)
	}
	if stats.ByStatus[models.StatusCompleted] != 2 || stats.ByStatus[models.StatusWaiting] != 1 {
		t.Errorf("ByStatus = %v", stats.ByStatus)
	}
	if stats.AverageDurationMinutes != 20 {
		t.Errorf("AverageDurationMinutes = %d, want 20", stats.AverageDurationMinutes)
	}
}
