package postgres

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/shrimpsizemoose/kardemumma/internal/models"
)

// setupTestDB spins up a disposable Postgres and applies the real migrations
func setupTestDB(t *testing.T) (*PostgresStore, func()) {
	ctx := context.Background()

	postgres, err := postgres.Run(
		ctx,
		"postgres:16-alpine",
		testcontainers.WithEnv(map[string]string{
			"POSTGRES_DB":       "testdb",
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
		}),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second)),
	)
	require.NoError(t, err)

	dsn, err := postgres.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	s, err := NewPostgresStore(dsn, "../../../migrations")
	require.NoError(t, err, "Failed to create store")

	cleanup := func() {
		s.Close()
		postgres.Terminate(ctx)
	}

	return s, cleanup
}

func testRecord(student, day string) *models.AttendanceRecord {
	return &models.AttendanceRecord{
		Student:    student,
		Day:        day,
		DeviceID:   "dev-5f2c",
		CapturedAt: time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC).Unix(),
		Latitude:   34.0803,
		Longitude:  74.7777,
		AccuracyM:  12.5,
		DistanceM:  34.2,
		Source:     models.SourceAuto,
	}
}

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		log.Println("Skipping Postgres integration tests. Use -short=false to run them.")
		os.Exit(0)
	}
	log.Println("Starting Postgres store tests...")
	code := m.Run()
	log.Println("Finished Postgres store tests")
	os.Exit(code)
}

func TestTryCreateRecord(t *testing.T) {
	s, cleanup := setupTestDB(t)
	defer cleanup()

	record := testRecord("19-cse-041", "2024-03-01")

	t.Run("first create wins", func(t *testing.T) {
		created, err := s.TryCreateRecord(record)
		require.NoError(t, err)
		assert.True(t, created)
	})

	t.Run("second create observes already-exists", func(t *testing.T) {
		dup := testRecord("19-cse-041", "2024-03-01")
		created, err := s.TryCreateRecord(dup)
		require.NoError(t, err)
		assert.False(t, created)
	})

	t.Run("original evidence is preserved", func(t *testing.T) {
		got, err := s.GetRecord("19-cse-041", "2024-03-01")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, record.ID, got.ID)
		assert.Equal(t, "dev-5f2c", got.DeviceID)
	})
}

func TestTryCreateRecord_Concurrent(t *testing.T) {
	s, cleanup := setupTestDB(t)
	defer cleanup()

	const racers = 16

	var wg sync.WaitGroup
	results := make(chan bool, racers)

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			rec := testRecord("19-cse-042", "2024-03-01")
			rec.DeviceID = fmt.Sprintf("dev-%02d", n)
			created, err := s.TryCreateRecord(rec)
			require.NoError(t, err)
			results <- created
		}(i)
	}
	wg.Wait()
	close(results)

	createdCount := 0
	for created := range results {
		if created {
			createdCount++
		}
	}
	assert.Equal(t, 1, createdCount, "exactly one racer must create the record")

	records, err := s.ListRecordsByDay("2024-03-01")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestOverrideAndRegisterRows(t *testing.T) {
	s, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := s.TryCreateRecord(testRecord("19-cse-041", "2024-03-01"))
	require.NoError(t, err)

	require.NoError(t, s.SetOverride(models.ManualOverride{
		Student: "19-cse-041", Day: "2024-03-01", Present: false, RecordedAt: 1,
	}))
	require.NoError(t, s.SetOverride(models.ManualOverride{
		Student: "19-cse-043", Day: "2024-03-02", Present: true, RecordedAt: 1,
	}))

	rows, err := s.FetchRegisterRows("2024-03-01", "2024-03-07")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	for _, row := range rows {
		assert.Equal(t, models.SourceManual, row.Source)
	}
}

func TestHolidayOperations(t *testing.T) {
	s, cleanup := setupTestDB(t)
	defer cleanup()

	require.NoError(t, s.AddHoliday(models.Holiday{Day: "2024-03-08", Note: "spring festival"}))

	holidays, err := s.ListHolidaysByDateRange("2024-03-01", "2024-03-31")
	require.NoError(t, err)
	require.Len(t, holidays, 1)
	assert.Equal(t, "spring festival", holidays[0].Note)

	require.NoError(t, s.RemoveHoliday("2024-03-08"))

	holidays, err = s.ListHolidays()
	require.NoError(t, err)
	assert.Empty(t, holidays)
}
