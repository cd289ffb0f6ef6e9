package audit

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/friendsincode/mimir_forum/internal/db"
	"github.com/friendsincode/mimir_forum/internal/events"
	"github.com/friendsincode/mimir_forum/internal/models"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	if err := db.Migrate(database); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewService(database, events.NewBus(), zerolog.Nop())
}

func TestRecordExtractsPayloadFields(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	userID := uuid.New()
	interviewID := uuid.New()

	svc.Record(ctx, models.AuditActionInterviewStart, events.Payload{
		"user_id":      userID.String(),
		"user_email":   "organizer@example.edu",
		"interview_id": interviewID.String(),
		"ip_address":   "192.0.2.10",
		"user_agent":   "curl/8.0",
	})

	entries, err := svc.Query(ctx, models.AuditActionInterviewStart, 10)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	entry := entries[0]
	if entry.UserID == nil || *entry.UserID != userID {
		t.Errorf("user id not extracted: %v", entry.UserID)
	}
	if entry.UserEmail != "organizer@example.edu" {
		t.Errorf("user email = %q", entry.UserEmail)
	}
	if entry.ResourceType != "interview" || entry.ResourceID != interviewID.String() {
		t.Errorf("resource = %s/%s", entry.ResourceType, entry.ResourceID)
	}
	if entry.IPAddress != "192.0.2.10" {
		t.Errorf("ip address = %q", entry.IPAddress)
	}
}

func TestRecordWithoutUserIsSystemAction(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	svc.Record(ctx, models.AuditActionQueueOptimize, events.Payload{
		"company_id": uuid.New().String(),
	})

	entries, err := svc.Query(ctx, models.AuditActionQueueOptimize, 10)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].UserID != nil {
		t.Errorf("expected nil user id for system action, got %v", entries[0].UserID)
	}
	if entries[0].CompanyID == nil {
		t.Error("expected company id to be extracted")
	}
}

func TestQueryFiltersByAction(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	svc.Record(ctx, models.AuditActionInterviewCreate, events.Payload{})
	svc.Record(ctx, models.AuditActionInterviewCancel, events.Payload{})
	svc.Record(ctx, models.AuditActionInterviewCancel, events.Payload{})

	entries, err := svc.Query(ctx, models.AuditActionInterviewCancel, 0)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 cancel entries, got %d", len(entries))
	}

	all, err := svc.Query(ctx, "", 0)
	if err != nil {
		t.Fatalf("query all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 total entries, got %d", len(all))
	}
}
