package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/friendsincode/mimir_forum/internal/models"
	"github.com/google/uuid"
)

func TestNextAvailableTimeFullyBooked(t *testing.T) {
	database := setupTestDB(t)
	finder := NewSlotFinder(NewDetector(database), 15, 48, 9, 17)
	studentID := uuid.New()
	base := time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC)

	// Book every 15-minute slot for the next 12 hours.
	for i := 0; i <= 49; i++ {
		seedInterview(t, database, studentID, base.Add(time.Duration(i)*15*time.Minute), 15, models.StatusWaiting)
	}

	_, err := finder.NextAvailableTime(context.Background(), studentID, base, 15)
	if !errors.Is(err, ErrSlotExhausted) {
		t.Fatalf("err = %v, want ErrSlotExhausted", err)
	}
}

func TestNextAvailableTimeFindsSingleGap(t *testing.T) {
	database := setupTestDB(t)
	finder := NewSlotFinder(NewDetector(database), 15, 48, 9, 17)
	studentID := uuid.New()
	base := time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC)
	gap := base.Add(10 * 15 * time.Minute)

	for i := 0; i <= 49; i++ {
		at := base.Add(time.Duration(i) * 15 * time.Minute)
		if at.Equal(gap) {
			continue
		}
		seedInterview(t, database, studentID, at, 15, models.StatusWaiting)
	}

	got, err := finder.NextAvailableTime(context.Background(), studentID, base, 15)
	if err != nil {
		t.Fatalf("NextAvailableTime: %v", err)
	}
	if !got.Equal(gap) {
		t.Errorf("slot = %s, want %s", got, gap)
	}
}

func TestNextAvailableTimeSkipsCurrentInstant(t *testing.T) {
	database := setupTestDB(t)
	finder := NewSlotFinder(NewDetector(database), 15, 48, 9, 17)
	studentID := uuid.New()
	base := time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC)

	seedInterview(t, database, studentID, base, 15, models.StatusWaiting)

	got, err := finder.NextAvailableTime(context.Background(), studentID, base, 15)
	if err != nil {
		t.Fatalf("NextAvailableTime: %v", err)
	}
	// The scan starts one increment after fromTime, and the existing
	// booking ends exactly there, so the first candidate is free.
	want := base.Add(15 * time.Minute)
	if !got.Equal(want) {
		t.Errorf("slot = %s, want %s", got, want)
	}
}

func TestDaySlots(t *testing.T) {
	finder := NewSlotFinder(nil, 15, 48, 9, 17)
	ref := time.Date(2026, 3, 12, 13, 42, 0, 0, time.UTC)

	slots := finder.DaySlots(ref)

	if len(slots) != 32 {
		t.Fatalf("len(slots) = %d, want 32", len(slots))
	}
	first := time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC)
	last := time.Date(2026, 3, 12, 16, 45, 0, 0, time.UTC)
	if !slots[0].Equal(first) {
		t.Errorf("first slot = %s, want %s", slots[0], first)
	}
	if !slots[len(slots)-1].Equal(last) {
		t.Errorf("last slot = %s, want %s", slots[len(slots)-1], last)
	}
}

func TestSelectSlotByBand(t *testing.T) {
	finder := NewSlotFinder(nil, 15, 48, 9, 17)
	ref := time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC)
	slots := finder.DaySlots(ref)

	tests := []struct {
		name     string
		priority int
		want     time.Time
	}{
		{"high priority takes earliest", 181, slots[0]},
		{"medium priority takes midday", 71, slots[len(slots)/2]},
		{"low priority takes latest", 11, slots[len(slots)-1]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := finder.SelectSlot(slots, tt.priority)
			if !ok {
				t.Fatal("SelectSlot returned no slot")
			}
			if !got.Equal(tt.want) {
				t.Errorf("slot = %s, want %s", got, tt.want)
			}
		})
	}

	if _, ok := finder.SelectSlot(nil, 181); ok {
		t.Error("SelectSlot on empty candidates should report no slot")
	}
}
