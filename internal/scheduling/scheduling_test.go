package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/friendsincode/mimir_forum/internal/db"
	"github.com/friendsincode/mimir_forum/internal/events"
	"github.com/friendsincode/mimir_forum/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}

	if err := db.Migrate(database); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}

	return database
}

// testClock is a settable clock for deterministic scheduling decisions.
type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func newTestService(t *testing.T, database *gorm.DB, clock Clock) *Service {
	t.Helper()
	return NewService(database, events.NewBus(), clock, DefaultOptions(), zerolog.Nop())
}

func createStudent(t *testing.T, database *gorm.DB, name string, kind models.StudentKind, committee bool) *models.Student {
	t.Helper()
	student := &models.Student{
		FullName:        name,
		Email:           name + "@example.org",
		Kind:            kind,
		CommitteeMember: committee,
	}
	if err := database.Create(student).Error; err != nil {
		t.Fatalf("create student: %v", err)
	}
	return student
}

func createCompany(t *testing.T, database *gorm.DB, name string, capacity int, accepted ...string) *models.Company {
	t.Helper()
	company := &models.Company{
		Name:                  name,
		Room:                  "Room " + name,
		DailyCapacity:         capacity,
		AcceptedOpportunities: models.StringList(accepted),
		Active:                true,
	}
	if err := database.Create(company).Error; err != nil {
		t.Fatalf("create company: %v", err)
	}
	return company
}

func createInterview(t *testing.T, svc *Service, student *models.Student, company *models.Company, at time.Time) *models.Interview {
	t.Helper()
	interview, err := svc.CreateInterview(context.Background(), CreateRequest{
		StudentID:       student.ID,
		CompanyID:       company.ID,
		OpportunityType: models.OpportunityPFE,
		ScheduledTime:   at,
	})
	if err != nil {
		t.Fatalf("create interview: %v", err)
	}
	return interview
}

func mustGet(t *testing.T, database *gorm.DB, id uuid.UUID) *models.Interview {
	t.Helper()
	var interview models.Interview
	if err := database.First(&interview, "id = ?", id).Error; err != nil {
		t.Fatalf("load interview %s: %v", id, err)
	}
	return &interview
}
