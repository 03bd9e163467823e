package report

import (
	"time"

	"github.com/shrimpsizemoose/kardemumma/internal/models"
)

// Calendar answers which days count toward attendance denominators.
// A day is instructional when it is not a Sunday and not in the holiday set.
type Calendar struct {
	holidays map[string]struct{}
}

func NewCalendar(holidays []models.Holiday) *Calendar {
	set := make(map[string]struct{}, len(holidays))
	for _, h := range holidays {
		set[h.Day] = struct{}{}
	}
	return &Calendar{holidays: set}
}

func (c *Calendar) IsInstructionalDay(day time.Time) bool {
	if day.Weekday() == time.Sunday {
		return false
	}
	_, holiday := c.holidays[day.Format(models.DayFormat)]
	return !holiday
}

// InstructionalDays enumerates instructional days in [from, to] inclusive.
// A holiday falling on a Sunday is excluded exactly once.
func (c *Calendar) InstructionalDays(from, to time.Time) []string {
	var days []string
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if c.IsInstructionalDay(d) {
			days = append(days, d.Format(models.DayFormat))
		}
	}
	return days
}
