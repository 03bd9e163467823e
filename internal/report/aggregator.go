package report

import (
	"fmt"
	"math"

	"github.com/shrimpsizemoose/kardemumma/internal/models"
	"github.com/shrimpsizemoose/kardemumma/internal/store"
)

type StudentStats struct {
	Present int `json:"present"`
	Total   int `json:"total"`
}

type Stats struct {
	PerStudent    map[string]StudentStats `json:"per_student"`
	CohortPresent int                     `json:"cohort_present"`
	CohortTotal   int                     `json:"cohort_total"`
	Percentage    int                     `json:"percentage"`
}

type Aggregator struct {
	store store.AttendanceStore
}

func NewAggregator(s store.AttendanceStore) *Aggregator {
	return &Aggregator{store: s}
}

// ComputeStats merges ledger records and manual overrides against the
// instructional-day calendar for the given roster and range. The merge is
// order independent: ledger rows mark a day present at most once, a manual
// present marks it only when not already counted, a manual absent removes
// the day from either source.
func (a *Aggregator) ComputeStats(roster []string, from, to string) (*Stats, error) {
	fromDay, err := models.ParseDay(from)
	if err != nil {
		return nil, fmt.Errorf("invalid start day %q: %w", from, err)
	}
	toDay, err := models.ParseDay(to)
	if err != nil {
		return nil, fmt.Errorf("invalid end day %q: %w", to, err)
	}
	if fromDay.After(toDay) {
		return nil, fmt.Errorf("start day %s is after end day %s", from, to)
	}

	holidays, err := a.store.ListHolidaysByDateRange(from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load holidays: %w", err)
	}

	calendar := NewCalendar(holidays)
	instructional := calendar.InstructionalDays(fromDay, toDay)
	instructionalSet := make(map[string]struct{}, len(instructional))
	for _, d := range instructional {
		instructionalSet[d] = struct{}{}
	}

	inRoster := make(map[string]struct{}, len(roster))
	presence := make(map[string]map[string]struct{}, len(roster))
	for _, student := range roster {
		inRoster[student] = struct{}{}
		presence[student] = make(map[string]struct{})
	}

	records, err := a.store.ListRecordsByDateRange(from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load attendance records: %w", err)
	}
	for _, rec := range records {
		if _, ok := instructionalSet[rec.Day]; !ok {
			continue
		}
		if _, ok := inRoster[rec.Student]; !ok {
			continue
		}
		presence[rec.Student][rec.Day] = struct{}{}
	}

	overrides, err := a.store.ListOverridesByDateRange(from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load manual overrides: %w", err)
	}
	for _, ov := range overrides {
		if _, ok := instructionalSet[ov.Day]; !ok {
			continue
		}
		if _, ok := inRoster[ov.Student]; !ok {
			continue
		}
		if ov.Present {
			presence[ov.Student][ov.Day] = struct{}{}
		} else {
			delete(presence[ov.Student], ov.Day)
		}
	}

	totalPerStudent := len(instructional)
	stats := &Stats{
		PerStudent:  make(map[string]StudentStats, len(roster)),
		CohortTotal: totalPerStudent * len(roster),
	}
	for _, student := range roster {
		present := len(presence[student])
		stats.PerStudent[student] = StudentStats{
			Present: present,
			Total:   totalPerStudent,
		}
		stats.CohortPresent += present
	}

	if stats.CohortTotal > 0 {
		ratio := float64(stats.CohortPresent) / float64(stats.CohortTotal)
		stats.Percentage = int(math.Round(ratio * 100))
	}

	return stats, nil
}
