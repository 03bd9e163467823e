// internal/store/sqlite/store_test.go
package sqlite

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shrimpsizemoose/kardemumma/internal/models"
)

// setupTestDB creates an in-memory SQLite database with the real migrations
// applied. Each test gets its own shared-cache database so connections from
// the pool see the same data.
func setupTestDB(t *testing.T) (*SQLiteStore, func()) {
	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)

	s, err := NewSQLiteStore(dsn, "../../../migrations")
	require.NoError(t, err, "Failed to create store")

	s.DB.SetMaxOpenConns(1)

	cleanup := func() {
		err := s.Close()
		require.NoError(t, err, "Failed to close database")
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
	log.Println("Starting SQLite store tests...")
	code := m.Run()
	log.Println("Finished SQLite store tests")
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
		assert.NotEmpty(t, record.ID)
	})

	t.Run("second create observes already-exists", func(t *testing.T) {
		dup := testRecord("19-cse-041", "2024-03-01")
		dup.DistanceM = 199.9

		created, err := s.TryCreateRecord(dup)
		require.NoError(t, err)
		assert.False(t, created)
	})

	t.Run("original evidence is never overwritten", func(t *testing.T) {
		got, err := s.GetRecord("19-cse-041", "2024-03-01")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, record.ID, got.ID)
		assert.Equal(t, 34.2, got.DistanceM)
		assert.Equal(t, "dev-5f2c", got.DeviceID)
		assert.Equal(t, models.SourceAuto, got.Source)
	})

	t.Run("exists reflects the write", func(t *testing.T) {
		exists, err := s.RecordExists("19-cse-041", "2024-03-01")
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = s.RecordExists("19-cse-041", "2024-03-02")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("get non-existent record", func(t *testing.T) {
		got, err := s.GetRecord("not.exists", "2024-03-01")
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestTryCreateRecord_Concurrent(t *testing.T) {
	s, cleanup := setupTestDB(t)
	defer cleanup()

	const racers = 16

	var wg sync.WaitGroup
	results := make(chan bool, racers)
	errs := make(chan error, racers)

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			rec := testRecord("19-cse-042", "2024-03-01")
			rec.DeviceID = fmt.Sprintf("dev-%02d", n)
			created, err := s.TryCreateRecord(rec)
			if err != nil {
				errs <- err
				return
			}
			results <- created
		}(i)
	}
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent TryCreateRecord failed: %v", err)
	}

	createdCount := 0
	total := 0
	for created := range results {
		total++
		if created {
			createdCount++
		}
	}
	assert.Equal(t, racers, total)
	assert.Equal(t, 1, createdCount, "exactly one racer must create the record")

	records, err := s.ListRecordsByDay("2024-03-01")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestListRecordsByDateRange(t *testing.T) {
	s, cleanup := setupTestDB(t)
	defer cleanup()

	days := []string{"2024-03-01", "2024-03-02", "2024-03-05"}
	for _, d := range days {
		_, err := s.TryCreateRecord(testRecord("19-cse-041", d))
		require.NoError(t, err)
	}
	_, err := s.TryCreateRecord(testRecord("19-cse-042", "2024-03-02"))
	require.NoError(t, err)

	t.Run("range is inclusive on both ends", func(t *testing.T) {
		records, err := s.ListRecordsByDateRange("2024-03-01", "2024-03-02")
		require.NoError(t, err)
		assert.Len(t, records, 3)
	})

	t.Run("records outside the range are excluded", func(t *testing.T) {
		records, err := s.ListRecordsByDateRange("2024-03-03", "2024-03-04")
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("per-day listing", func(t *testing.T) {
		records, err := s.ListRecordsByDay("2024-03-02")
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "19-cse-041", records[0].Student)
		assert.Equal(t, "19-cse-042", records[1].Student)
	})
}

func TestOverrideOperations(t *testing.T) {
	s, cleanup := setupTestDB(t)
	defer cleanup()

	override := models.ManualOverride{
		Student:    "19-cse-041",
		Day:        "2024-03-01",
		Present:    true,
		RecordedAt: time.Date(2024, 3, 1, 16, 0, 0, 0, time.UTC).Unix(),
	}

	t.Run("set present", func(t *testing.T) {
		err := s.SetOverride(override)
		require.NoError(t, err)

		got, err := s.GetOverride(override.Student, override.Day)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.True(t, got.Present)
	})

	t.Run("set absent replaces the same key", func(t *testing.T) {
		absent := override
		absent.Present = false
		err := s.SetOverride(absent)
		require.NoError(t, err)

		got, err := s.GetOverride(override.Student, override.Day)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.False(t, got.Present)

		overrides, err := s.ListOverridesByDateRange("2024-03-01", "2024-03-07")
		require.NoError(t, err)
		assert.Len(t, overrides, 1)
	})

	t.Run("get non-existent override", func(t *testing.T) {
		got, err := s.GetOverride("not.exists", "2024-03-01")
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestHolidayOperations(t *testing.T) {
	s, cleanup := setupTestDB(t)
	defer cleanup()

	t.Run("add and list", func(t *testing.T) {
		require.NoError(t, s.AddHoliday(models.Holiday{Day: "2024-03-08", Note: "spring festival"}))
		require.NoError(t, s.AddHoliday(models.Holiday{Day: "2024-03-04"}))

		holidays, err := s.ListHolidays()
		require.NoError(t, err)
		require.Len(t, holidays, 2)
		assert.Equal(t, "2024-03-04", holidays[0].Day)
	})

	t.Run("re-adding a day updates the note", func(t *testing.T) {
		require.NoError(t, s.AddHoliday(models.Holiday{Day: "2024-03-08", Note: "festival (corrected)"}))

		holidays, err := s.ListHolidaysByDateRange("2024-03-08", "2024-03-08")
		require.NoError(t, err)
		require.Len(t, holidays, 1)
		assert.Equal(t, "festival (corrected)", holidays[0].Note)
	})

	t.Run("remove", func(t *testing.T) {
		require.NoError(t, s.RemoveHoliday("2024-03-08"))

		holidays, err := s.ListHolidays()
		require.NoError(t, err)
		assert.Len(t, holidays, 1)
	})
}

func TestFetchRegisterRows(t *testing.T) {
	s, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := s.TryCreateRecord(testRecord("19-cse-041", "2024-03-01"))
	require.NoError(t, err)
	_, err = s.TryCreateRecord(testRecord("19-cse-042", "2024-03-01"))
	require.NoError(t, err)

	// override shadows the ledger row for the same key
	require.NoError(t, s.SetOverride(models.ManualOverride{
		Student: "19-cse-041", Day: "2024-03-01", Present: false, RecordedAt: 1,
	}))
	// and contributes a row of its own where the ledger has none
	require.NoError(t, s.SetOverride(models.ManualOverride{
		Student: "19-cse-043", Day: "2024-03-02", Present: true, RecordedAt: 1,
	}))

	rows, err := s.FetchRegisterRows("2024-03-01", "2024-03-07")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	bySrc := make(map[string]string)
	for _, row := range rows {
		bySrc[row.Student] = row.Source
		if row.Student == "19-cse-041" {
			assert.False(t, row.Present)
			assert.Nil(t, row.DistanceM)
		}
		if row.Student == "19-cse-042" {
			assert.True(t, row.Present)
			require.NotNil(t, row.DistanceM)
			assert.Equal(t, 34.2, *row.DistanceM)
		}
	}
	assert.Equal(t, models.SourceManual, bySrc["19-cse-041"])
	assert.Equal(t, models.SourceAuto, bySrc["19-cse-042"])
	assert.Equal(t, models.SourceManual, bySrc["19-cse-043"])
}
