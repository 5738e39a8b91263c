// Package migrate implements the advisory startup check that compares the
// applied schema revision with the newest migration on disk. It never applies
// migrations itself; `goose up` is run externally against the migrations dir.
package migrate

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/pressly/goose/v3"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Status is the tri-state outcome of the check.
type Status int

const (
	// StatusUnknown means the check could not determine either revision, for
	// example because the database was unreachable.
	StatusUnknown Status = iota
	StatusUpToDate
	StatusStale
)

func (s Status) String() string {
	switch s {
	case StatusUpToDate:
		return "up to date"
	case StatusStale:
		return "stale"
	default:
		return "unknown"
	}
}

// Result reports the check outcome. Current and Head are only meaningful when
// Status is not StatusUnknown.
type Result struct {
	Status  Status
	Current int64
	Head    int64
}

// Check compares the applied revision in the database at dsn with the head
// revision under dir. It is advisory only: every failure is logged and
// reported as StatusUnknown, never returned as an error.
func Check(dsn, dir string) Result {
	db, err := goose.OpenDBWithDriver("pgx", dsn)
	if err != nil {
		log.Printf("migration check: open db: %v", err)
		return Result{Status: StatusUnknown}
	}
	defer db.Close()

	head, err := headVersion(dir)
	if err != nil {
		log.Printf("migration check: %v", err)
		return Result{Status: StatusUnknown}
	}
	return CheckDB(db, head)
}

// CheckDB compares the revision recorded in goose's version table with head.
// Split out from Check so it can run against any *sql.DB.
func CheckDB(db *sql.DB, head int64) Result {
	current, err := currentVersion(db)
	if err != nil {
		log.Printf("migration check: current version: %v", err)
		return Result{Status: StatusUnknown}
	}

	res := Result{Current: current, Head: head}
	if current == head {
		res.Status = StatusUpToDate
		report("database migrations are up to date")
		return res
	}
	res.Status = StatusStale
	report(fmt.Sprintf(
		"database is not up to date: current %d, head %d; run 'goose up' to apply pending migrations",
		current, head))
	return res
}

// report logs the message and mirrors it to stdout, since log writes to
// stderr by default.
func report(msg string) {
	log.Print(msg)
	fmt.Println(msg)
}

// currentVersion reads the newest applied revision with a single SELECT.
// goose.GetDBVersion would create the version table as a side effect; the
// check must stay read-only.
func currentVersion(db *sql.DB) (int64, error) {
	var v int64
	err := db.QueryRow(
		`SELECT version_id FROM goose_db_version WHERE is_applied ORDER BY id DESC LIMIT 1`,
	).Scan(&v)
	if err != nil {
		return 0, err
	}
	return v, nil
}

func headVersion(dir string) (int64, error) {
	migrations, err := goose.CollectMigrations(dir, 0, goose.MaxVersion)
	if err != nil {
		return 0, fmt.Errorf("collect migrations: %w", err)
	}
	if len(migrations) == 0 {
		return 0, fmt.Errorf("no migrations in %s", dir)
	}
	return migrations[len(migrations)-1].Version, nil
}
