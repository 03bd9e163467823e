package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// DayFormat is the wire and storage format for calendar days.
const DayFormat = "2006-01-02"

const (
	SourceAuto   = "auto"
	SourceManual = "manual"
)

type AttendanceRecord struct {
	ID         string  `db:"id" json:"id"`
	Student    string  `db:"student" json:"student" validate:"required,max=64"`
	Day        string  `db:"day" json:"day" validate:"required,datetime=2006-01-02"`
	DeviceID   string  `db:"device_id" json:"device_id" validate:"required,max=128"`
	CapturedAt int64   `db:"captured_at" json:"captured_at"`
	Latitude   float64 `db:"latitude" json:"latitude"`
	Longitude  float64 `db:"longitude" json:"longitude"`
	AccuracyM  float64 `db:"accuracy_m" json:"accuracy_m" validate:"gt=0"`
	DistanceM  float64 `db:"distance_m" json:"distance_m"`
	Source     string  `db:"source" json:"source"`
}

func (r *AttendanceRecord) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// ParseDay parses a YYYY-MM-DD day string in UTC.
func ParseDay(day string) (time.Time, error) {
	return time.Parse(DayFormat, day)
}
