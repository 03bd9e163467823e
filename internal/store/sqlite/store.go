// internal/store/sqlite/store.go
package sqlite

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/shrimpsizemoose/kardemumma/internal/store"
)

type SQLiteStore struct {
	store.BaseStore
}

func NewSQLiteStore(dsn, migrationsDir string) (*SQLiteStore, error) {
	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &SQLiteStore{BaseStore: store.BaseStore{
		DB: db,
		Converter: func(query string) string {
			return query
		},
	}}

	if err := s.ApplyMigrations(migrationsDir); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) ApplyMigrations(dir string) error {
	return s.BaseStore.ApplyMigrations(dir, translateToSQLite)
}

// translateToSQLite converts Postgres SQL to SQLite dialect
func translateToSQLite(sql string) string {
	replacements := map[string]string{
		"BIGSERIAL":        "INTEGER PRIMARY KEY AUTOINCREMENT",
		"SERIAL":           "INTEGER PRIMARY KEY AUTOINCREMENT",
		"BIGINT":           "INTEGER",
		"UUID":             "TEXT",
		"BOOLEAN":          "INTEGER",
		"DOUBLE PRECISION": "REAL",
		"TRUE":             "1",
		"FALSE":            "0",
		"now()":            "CURRENT_TIMESTAMP",
		"VARCHAR(10)":      "TEXT",
		"::text":           "",
	}
	result := sql
	for from, to := range replacements {
		result = strings.ReplaceAll(result, from, to)
	}
	return result
}

// FetchRegisterRows flattens ledger records and manual overrides into one
// per-day/per-student table, override rows replacing ledger rows for the
// same key.
func (s *SQLiteStore) FetchRegisterRows(from, to string) ([]store.RegisterRow, error) {
	query := `
		SELECT student, day, source, present, distance_m
		FROM (
			SELECT
				r.student,
				r.day,
				'auto' AS source,
				1 AS present,
				r.distance_m
			FROM attendance_records r
			WHERE r.day >= ? AND r.day <= ?
			AND NOT EXISTS (
				SELECT 1 FROM manual_overrides o
				WHERE o.student = r.student AND o.day = r.day
			)
			UNION ALL
			SELECT
				o.student,
				o.day,
				'manual' AS source,
				o.present,
				NULL AS distance_m
			FROM manual_overrides o
			WHERE o.day >= ? AND o.day <= ?
		)
		ORDER BY day, student
	`

	var rows []store.RegisterRow
	err := s.DB.Select(&rows, query, from, to, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch register rows: %w", err)
	}

	return rows, nil
}
