package store

type DatabaseType string

const (
	DBTypePostgres DatabaseType = "postgres"
	DBTypeSQLite   DatabaseType = "sqlite"
)

// RegisterRow is one line of the flattened per-day/per-student register:
// ledger records and manual overrides merged into a single export shape.
type RegisterRow struct {
	Student   string   `db:"student" json:"student"`
	Day       string   `db:"day" json:"day"`
	Source    string   `db:"source" json:"source"`
	Present   bool     `db:"present" json:"present"`
	DistanceM *float64 `db:"distance_m" json:"distance_m"`
}
