package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/kardemumma/internal/app"
	"github.com/shrimpsizemoose/kardemumma/internal/models"
	"github.com/shrimpsizemoose/kardemumma/internal/store"
)

// CSVExporter periodically dumps the flattened register table to disk so
// the office can pull it into their spreadsheets.
type CSVExporter struct {
	config    *app.Config
	store     store.AttendanceStore
	scheduler *gocron.Scheduler
}

func NewCSVExporter(config *app.Config, store store.AttendanceStore) *CSVExporter {
	return &CSVExporter{
		config:    config,
		store:     store,
		scheduler: gocron.NewScheduler(time.UTC),
	}
}

// Start schedules the recurring export per the configured cron expression.
func (e *CSVExporter) Start() error {
	_, err := e.scheduler.Cron(e.config.Export.Schedule).Do(func() {
		if err := e.ExportLatest(); err != nil {
			logger.Error.Printf("Export failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule export: %w", err)
	}

	e.scheduler.StartAsync()
	return nil
}

// ExportLatest writes the trailing lookback window ending today.
func (e *CSVExporter) ExportLatest() error {
	lookback := e.config.Export.LookbackDays
	if lookback <= 0 {
		lookback = 30
	}

	to := time.Now().UTC()
	from := to.AddDate(0, 0, -lookback)

	return e.Export(from.Format(models.DayFormat), to.Format(models.DayFormat))
}

func (e *CSVExporter) Export(from, to string) error {
	rows, err := e.store.FetchRegisterRows(from, to)
	if err != nil {
		return fmt.Errorf("failed to fetch register rows: %w", err)
	}

	if err := os.MkdirAll(e.config.Export.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create export dir: %w", err)
	}

	name := fmt.Sprintf("attendance_%s_%s.csv", from, to)
	path := filepath.Join(e.config.Export.OutputDir, name)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"day", "student", "source", "present", "distance_m"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, row := range rows {
		distance := ""
		if row.DistanceM != nil {
			distance = strconv.FormatFloat(*row.DistanceM, 'f', 1, 64)
		}
		record := []string{
			row.Day,
			row.Student,
			row.Source,
			strconv.FormatBool(row.Present),
			distance,
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush export: %w", err)
	}

	logger.Info.Printf("Exported %d register rows to %s", len(rows), path)
	return nil
}

func (e *CSVExporter) Stop() {
	if e.scheduler != nil {
		e.scheduler.Stop()
	}
}
