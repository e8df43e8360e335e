package service

import (
	"testing"
	"time"

	"buyback_backend/internal/scheduling/repository"

	"github.com/google/uuid"
)

func TestBuildAvailabilitySkipsSundays(t *testing.T) {
	// Wednesday
	now := time.Date(2026, 9, 2, 10, 0, 0, 0, time.UTC)

	days := buildAvailability(now, 7, 12, 20, nil)

	if len(days) != 6 {
		t.Fatalf("got %d days, want 6 (Sunday excluded)", len(days))
	}
	for _, day := range days {
		if day.Date == "2026-09-06" {
			t.Fatal("Sunday 2026-09-06 must not be offered")
		}
	}
}

func TestBuildAvailabilityExcludesPastHoursToday(t *testing.T) {
	now := time.Date(2026, 9, 2, 14, 30, 0, 0, time.UTC)

	days := buildAvailability(now, 1, 12, 20, nil)

	if len(days) != 1 {
		t.Fatalf("got %d days, want 1", len(days))
	}
	slots := days[0].Slots
	if len(slots) != 5 {
		t.Fatalf("got %d slots, want 5 (15:00 through 19:00)", len(slots))
	}
	if slots[0].StartTime != "15:00" {
		t.Fatalf("first slot = %s, want 15:00", slots[0].StartTime)
	}
	if last := slots[len(slots)-1]; last.StartTime != "19:00" || last.EndTime != "20:00" {
		t.Fatalf("last slot = %s-%s, want 19:00-20:00", last.StartTime, last.EndTime)
	}
}

func TestBuildAvailabilityDefersToPersistedFlags(t *testing.T) {
	now := time.Date(2026, 9, 2, 10, 0, 0, 0, time.UTC)

	persisted := map[slotKey]repository.Slot{
		{date: "2026-09-03", hour: 13}: {ID: uuid.New(), StartHour: 13, IsAvailable: false},
		{date: "2026-09-03", hour: 14}: {ID: uuid.New(), StartHour: 14, IsAvailable: true, IsBlocked: true},
		{date: "2026-09-03", hour: 15}: {ID: uuid.New(), StartHour: 15, IsAvailable: true},
	}

	days := buildAvailability(now, 2, 12, 20, persisted)
	if len(days) != 2 {
		t.Fatalf("got %d days, want 2", len(days))
	}

	byStart := make(map[string]SlotView)
	for _, slot := range days[1].Slots {
		byStart[slot.StartTime] = slot
	}

	if byStart["13:00"].Available {
		t.Fatal("booked slot must not be available")
	}
	if byStart["14:00"].Available {
		t.Fatal("blocked slot must not be available")
	}
	if !byStart["15:00"].Available {
		t.Fatal("persisted open slot must be available")
	}
	if !byStart["12:00"].Available {
		t.Fatal("unpersisted candidate must default to available")
	}
}

func TestBuildAvailabilityDropsExhaustedToday(t *testing.T) {
	// 19:45: the last slot of the day has started, nothing left to offer.
	now := time.Date(2026, 9, 2, 19, 45, 0, 0, time.UTC)

	days := buildAvailability(now, 1, 12, 20, nil)
	if len(days) != 0 {
		t.Fatalf("got %d days, want 0", len(days))
	}
}
