package service

import (
	"fmt"
	"time"

	"buyback_backend/internal/scheduling/repository"
)

// SlotView is one offered window in a day's availability.
type SlotView struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Available bool   `json:"available"`
}

// DayAvailability lists the slot grid for one bookable day. IsSameDay is
// set on today's entry when the requesting lead still qualifies for a
// same-day appointment.
type DayAvailability struct {
	Date      string     `json:"date"`
	IsSameDay bool       `json:"isSameDay"`
	Slots     []SlotView `json:"slots"`
}

type slotKey struct {
	date string
	hour int
}

const dateLayout = "2006-01-02"

func formatHour(hour int) string {
	return fmt.Sprintf("%02d:00", hour)
}

// buildAvailability synthesizes the slot grid for the horizon. Days without
// a persisted row are implicit full-availability candidates; persisted rows
// defer to their flags. Sundays are excluded, as are hours already past on
// the current day.
func buildAvailability(now time.Time, daysAhead, startHour, endHour int, persisted map[slotKey]repository.Slot) []DayAvailability {
	days := make([]DayAvailability, 0, daysAhead)

	for offset := 0; offset < daysAhead; offset++ {
		day := now.AddDate(0, 0, offset)
		if day.Weekday() == time.Sunday {
			continue
		}
		date := day.Format(dateLayout)

		slots := make([]SlotView, 0, endHour-startHour)
		for hour := startHour; hour < endHour; hour++ {
			if offset == 0 && hour <= now.Hour() {
				continue
			}

			available := true
			if slot, ok := persisted[slotKey{date: date, hour: hour}]; ok {
				available = slot.IsAvailable && !slot.IsBlocked
			}

			slots = append(slots, SlotView{
				StartTime: formatHour(hour),
				EndTime:   formatHour(hour + 1),
				Available: available,
			})
		}

		if len(slots) > 0 {
			days = append(days, DayAvailability{Date: date, Slots: slots})
		}
	}

	return days
}
