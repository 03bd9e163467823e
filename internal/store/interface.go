package store

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/shrimpsizemoose/kardemumma/internal/models"
)

type AttendanceStore interface {
	Close() error
	ApplyMigrations(dir string) error

	// TryCreateRecord is the idempotency core: a conditional insert that
	// succeeds at most once per (student, day). It reports whether this
	// call created the record; false means it already existed.
	TryCreateRecord(record *models.AttendanceRecord) (bool, error)
	RecordExists(student, day string) (bool, error)
	GetRecord(student, day string) (*models.AttendanceRecord, error)
	ListRecordsByDay(day string) ([]models.AttendanceRecord, error)
	ListRecordsByDateRange(from, to string) ([]models.AttendanceRecord, error)

	SetOverride(override models.ManualOverride) error
	GetOverride(student, day string) (*models.ManualOverride, error)
	ListOverridesByDateRange(from, to string) ([]models.ManualOverride, error)

	AddHoliday(holiday models.Holiday) error
	RemoveHoliday(day string) error
	ListHolidays() ([]models.Holiday, error)
	ListHolidaysByDateRange(from, to string) ([]models.Holiday, error)

	FetchRegisterRows(from, to string) ([]RegisterRow, error)
}

// BaseStore provides common functionality for different DB implementations
type BaseStore struct {
	DB        *sqlx.DB
	Converter func(string) string
}

func (s *BaseStore) Close() error {
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}

// ApplyMigrations applies SQL migrations from a directory, translating dialect if needed
func (s *BaseStore) ApplyMigrations(dir string, translateSQL func(string) string) error {
	files, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	for _, file := range files {
		if !strings.HasSuffix(file.Name(), ".sql") {
			continue
		}

		content, err := os.ReadFile(fmt.Sprintf("%s/%s", dir, file.Name()))
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", file.Name(), err)
		}

		sql := string(content)
		if translateSQL != nil {
			sql = translateSQL(sql)
		}

		if _, err := s.DB.Exec(sql); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", file.Name(), err)
		}
	}

	return nil
}

func (s *BaseStore) TryCreateRecord(record *models.AttendanceRecord) (bool, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.Source == "" {
		record.Source = models.SourceAuto
	}

	res, err := s.DB.NamedExec(`
		INSERT INTO attendance_records
			(id, student, day, device_id, captured_at, latitude, longitude, accuracy_m, distance_m, source)
		VALUES
			(:id, :student, :day, :device_id, :captured_at, :latitude, :longitude, :accuracy_m, :distance_m, :source)
		ON CONFLICT (student, day) DO NOTHING
	`, record)
	if err != nil {
		return false, fmt.Errorf("failed to create attendance record: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read insert result: %w", err)
	}
	return rows == 1, nil
}

func (s *BaseStore) RecordExists(student, day string) (bool, error) {
	var count int
	query := s.Converter(`
		SELECT COUNT(1) FROM attendance_records
		WHERE student = ? AND day = ?
	`)

	if err := s.DB.Get(&count, query, student, day); err != nil {
		return false, fmt.Errorf("failed to check attendance record: %w", err)
	}
	return count > 0, nil
}

func (s *BaseStore) GetRecord(student, day string) (*models.AttendanceRecord, error) {
	var record models.AttendanceRecord
	query := s.Converter(`
		SELECT id, student, day, device_id, captured_at, latitude, longitude, accuracy_m, distance_m, source
		FROM attendance_records
		WHERE student = ? AND day = ?
	`)

	err := s.DB.Get(&record, query, student, day)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get attendance record: %w", err)
	}
	return &record, nil
}

func (s *BaseStore) ListRecordsByDay(day string) ([]models.AttendanceRecord, error) {
	var records []models.AttendanceRecord
	query := s.Converter(`
		SELECT id, student, day, device_id, captured_at, latitude, longitude, accuracy_m, distance_m, source
		FROM attendance_records
		WHERE day = ?
		ORDER BY student ASC
	`)

	if err := s.DB.Select(&records, query, day); err != nil {
		return nil, fmt.Errorf("failed to list attendance records: %w", err)
	}
	return records, nil
}

func (s *BaseStore) ListRecordsByDateRange(from, to string) ([]models.AttendanceRecord, error) {
	var records []models.AttendanceRecord
	query := s.Converter(`
		SELECT id, student, day, device_id, captured_at, latitude, longitude, accuracy_m, distance_m, source
		FROM attendance_records
		WHERE day >= ? AND day <= ?
		ORDER BY day, student ASC
	`)

	if err := s.DB.Select(&records, query, from, to); err != nil {
		return nil, fmt.Errorf("failed to list attendance records: %w", err)
	}
	return records, nil
}

func (s *BaseStore) SetOverride(override models.ManualOverride) error {
	_, err := s.DB.NamedExec(`
		INSERT INTO manual_overrides (student, day, present, recorded_at)
		VALUES (:student, :day, :present, :recorded_at)
		ON CONFLICT (student, day) DO UPDATE SET
		present = :present,
		recorded_at = :recorded_at
	`, override)
	if err != nil {
		return fmt.Errorf("failed to set manual override: %w", err)
	}
	return nil
}

func (s *BaseStore) GetOverride(student, day string) (*models.ManualOverride, error) {
	var override models.ManualOverride
	query := s.Converter(`
		SELECT student, day, present, recorded_at
		FROM manual_overrides
		WHERE student = ? AND day = ?
	`)

	err := s.DB.Get(&override, query, student, day)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get manual override: %w", err)
	}
	return &override, nil
}

func (s *BaseStore) ListOverridesByDateRange(from, to string) ([]models.ManualOverride, error) {
	var overrides []models.ManualOverride
	query := s.Converter(`
		SELECT student, day, present, recorded_at
		FROM manual_overrides
		WHERE day >= ? AND day <= ?
		ORDER BY day, student ASC
	`)

	if err := s.DB.Select(&overrides, query, from, to); err != nil {
		return nil, fmt.Errorf("failed to list manual overrides: %w", err)
	}
	return overrides, nil
}

func (s *BaseStore) AddHoliday(holiday models.Holiday) error {
	_, err := s.DB.NamedExec(`
		INSERT INTO holidays (day, note)
		VALUES (:day, :note)
		ON CONFLICT (day) DO UPDATE SET
		note = :note
	`, holiday)
	if err != nil {
		return fmt.Errorf("failed to add holiday: %w", err)
	}
	return nil
}

func (s *BaseStore) RemoveHoliday(day string) error {
	query := s.Converter(`DELETE FROM holidays WHERE day = ?`)
	if _, err := s.DB.Exec(query, day); err != nil {
		return fmt.Errorf("failed to remove holiday: %w", err)
	}
	return nil
}

func (s *BaseStore) ListHolidays() ([]models.Holiday, error) {
	var holidays []models.Holiday
	err := s.DB.Select(&holidays, `
		SELECT day, note
		FROM holidays
		ORDER BY day ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list holidays: %w", err)
	}
	return holidays, nil
}

func (s *BaseStore) ListHolidaysByDateRange(from, to string) ([]models.Holiday, error) {
	var holidays []models.Holiday
	query := s.Converter(`
		SELECT day, note
		FROM holidays
		WHERE day >= ? AND day <= ?
		ORDER BY day ASC
	`)

	if err := s.DB.Select(&holidays, query, from, to); err != nil {
		return nil, fmt.Errorf("failed to list holidays: %w", err)
	}
	return holidays, nil
}
