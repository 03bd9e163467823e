package postgres

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/shrimpsizemoose/kardemumma/internal/store"
)

type PostgresStore struct {
	store.BaseStore
}

func NewPostgresStore(dsn, migrationsDir string) (*PostgresStore, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &PostgresStore{BaseStore: store.BaseStore{
		DB: db,
		Converter: func(query string) string {
			out := query
			for i := 1; strings.Contains(out, "?"); i++ {
				out = strings.Replace(out, "?", fmt.Sprintf("$%d", i), 1)
			}
			return out
		},
	}}

	if err := s.ApplyMigrations(migrationsDir); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return s, nil
}

func (s *PostgresStore) ApplyMigrations(dir string) error {
	return s.BaseStore.ApplyMigrations(dir, nil)
}

// FetchRegisterRows flattens ledger records and manual overrides into one
// per-day/per-student table. A manual override replaces the ledger row for
// the same (student, day), so no day is reported twice.
func (s *PostgresStore) FetchRegisterRows(from, to string) ([]store.RegisterRow, error) {
	query := `
        SELECT student, day, source, present, distance_m
        FROM (
            SELECT
                r.student,
                r.day,
                'auto' AS source,
                TRUE AS present,
                r.distance_m
            FROM attendance_records r
            WHERE r.day >= $1 AND r.day <= $2
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
                NULL::double precision AS distance_m
            FROM manual_overrides o
            WHERE o.day >= $1 AND o.day <= $2
        ) merged
        ORDER BY day, student
    `

	var rows []store.RegisterRow
	err := s.DB.Select(&rows, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch register rows: %w", err)
	}

	return rows, nil
}
