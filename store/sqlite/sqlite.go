/*
Package sqlite provides a SQLite-backed implementation of funding.Repository.

PURPOSE:
  Persists rate schedules, application snapshots and calculation runs so the
  API survives restarts and every run stays auditable. In production the
  same layout applies to PostgreSQL with minor dialect changes.

INTERFACES IMPLEMENTED:
  funding.RateScheduleStore: Versioned rate schedules with band tables
  funding.ApplicationStore:  Materialized application snapshots
  funding.RunStore:          Append-only calculation runs

STORAGE FORMAT:
  Each record is stored as JSON in the format of the factory package, next to
  a few indexed columns used for lookup. Decimals are strings, so no
  precision is lost.

KEY TABLES:
  rate_schedules:   id, name, effective_from, config_json
  applications:     id, facility_id, rate_schedule_id, snapshot_json
  calculation_runs: seq, run_id (unique), application_id, decision, run_json

APPEND-ONLY ENFORCEMENT:
  - SaveRun only ever INSERTs; a repeated run_id is ErrDuplicateRun
  - A trigger aborts any UPDATE on calculation_runs
  - Reset is the only path that deletes runs

MIGRATIONS:
  Versioned SQL files under migrations/ are embedded into the binary and
  applied with goose on New().

USAGE:
  store, err := sqlite.New("./data/funding.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - funding/store.go: Interface definitions
  - funding/store/memory.go: In-memory implementation for testing
  - factory/: JSON formats used for the stored columns
*/
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/warp/facility-funding/factory"
	"github.com/warp/facility-funding/funding"
)

//go:embed migrations/*.sql
var migrations embed.FS

// goose keeps its configuration in package globals.
var gooseMu sync.Mutex

const timeLayout = time.RFC3339Nano

// Store implements funding.Repository using SQLite.
type Store struct {
	db           *sql.DB
	schedules    *factory.ScheduleFactory
	applications *factory.ApplicationFactory
}

var _ funding.Repository = (*Store)(nil)

// New opens the database at dbPath and applies pending migrations.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{
		db:           db,
		schedules:    factory.NewScheduleFactory(),
		applications: factory.NewApplicationFactory(),
	}, nil
}

func migrate(db *sql.DB) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("run goose up migrations: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// =============================================================================
// RATE SCHEDULES
// =============================================================================

func (s *Store) SaveRateSchedule(ctx context.Context, rs funding.StoredRateSchedule) error {
	config, err := json.Marshal(s.schedules.ToJSON(rs))
	if err != nil {
		return fmt.Errorf("encode rate schedule %s: %w", rs.ID, err)
	}
	effective := ""
	if !rs.EffectiveFrom.IsZero() {
		effective = rs.EffectiveFrom.Format("2006-01-02")
	}

	query, args, err := sq.Insert("rate_schedules").
		Columns("id", "name", "effective_from", "config_json", "created_at").
		Values(string(rs.ID), rs.Name, effective, string(config), formatTime(rs.CreatedAt)).
		Suffix(`ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			effective_from = excluded.effective_from,
			config_json = excluded.config_json`).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save rate schedule %s: %w", rs.ID, err)
	}
	return nil
}

func (s *Store) GetRateSchedule(ctx context.Context, id funding.RateScheduleID) (*funding.StoredRateSchedule, error) {
	query, args, err := sq.Select("config_json", "created_at").
		From("rate_schedules").
		Where(sq.Eq{"id": string(id)}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var config, created string
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&config, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, funding.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get rate schedule %s: %w", id, err)
	}
	return s.decodeSchedule(config, created)
}

func (s *Store) ListRateSchedules(ctx context.Context) ([]funding.StoredRateSchedule, error) {
	query, args, err := sq.Select("config_json", "created_at").
		From("rate_schedules").
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list rate schedules: %w", err)
	}
	defer rows.Close()

	var out []funding.StoredRateSchedule
	for rows.Next() {
		var config, created string
		if err := rows.Scan(&config, &created); err != nil {
			return nil, err
		}
		rs, err := s.decodeSchedule(config, created)
		if err != nil {
			return nil, err
		}
		out = append(out, *rs)
	}
	return out, rows.Err()
}

func (s *Store) decodeSchedule(config, created string) (*funding.StoredRateSchedule, error) {
	rs, err := s.schedules.ParseRateSchedule(config)
	if err != nil {
		return nil, err
	}
	if rs.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	return rs, nil
}

// =============================================================================
// APPLICATIONS
// =============================================================================

func (s *Store) SaveApplication(ctx context.Context, app funding.Application) error {
	snapshot, err := json.Marshal(s.applications.ToJSON(app))
	if err != nil {
		return fmt.Errorf("encode application %s: %w", app.ID, err)
	}

	query, args, err := sq.Insert("applications").
		Columns("id", "facility_id", "rate_schedule_id", "snapshot_json", "created_at").
		Values(string(app.ID), string(app.FacilityID), string(app.RateScheduleID), string(snapshot), formatTime(app.CreatedAt)).
		Suffix(`ON CONFLICT(id) DO UPDATE SET
			facility_id = excluded.facility_id,
			rate_schedule_id = excluded.rate_schedule_id,
			snapshot_json = excluded.snapshot_json`).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save application %s: %w", app.ID, err)
	}
	return nil
}

func (s *Store) GetApplication(ctx context.Context, id funding.ApplicationID) (*funding.Application, error) {
	query, args, err := sq.Select("snapshot_json", "created_at").
		From("applications").
		Where(sq.Eq{"id": string(id)}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var snapshot, created string
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&snapshot, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, funding.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get application %s: %w", id, err)
	}
	return s.decodeApplication(snapshot, created)
}

func (s *Store) ListApplications(ctx context.Context) ([]funding.Application, error) {
	query, args, err := sq.Select("snapshot_json", "created_at").
		From("applications").
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	var out []funding.Application
	for rows.Next() {
		var snapshot, created string
		if err := rows.Scan(&snapshot, &created); err != nil {
			return nil, err
		}
		app, err := s.decodeApplication(snapshot, created)
		if err != nil {
			return nil, err
		}
		out = append(out, *app)
	}
	return out, rows.Err()
}

func (s *Store) decodeApplication(snapshot, created string) (*funding.Application, error) {
	app, err := s.applications.ParseApplication(snapshot)
	if err != nil {
		return nil, err
	}
	if app.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	return app, nil
}

// =============================================================================
// RUNS - Append-only
// =============================================================================

func (s *Store) SaveRun(ctx context.Context, run funding.RunRecord) error {
	data, err := factory.MarshalRun(run)
	if err != nil {
		return fmt.Errorf("encode run %s: %w", run.RunID, err)
	}

	query, args, err := sq.Insert("calculation_runs").
		Columns("run_id", "application_id", "facility_id", "rate_schedule_id",
			"decision", "grand_total", "run_json", "completed_at").
		Values(run.RunID.String(), string(run.ApplicationID), string(run.FacilityID), string(run.RateScheduleID),
			string(run.Decision), run.GrandTotal().String(), string(data), formatTime(run.CompletedAt)).
		ToSql()
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return funding.ErrDuplicateRun
		}
		return fmt.Errorf("save run %s: %w", run.RunID, err)
	}
	return nil
}

func (s *Store) ListRuns(ctx context.Context, applicationID funding.ApplicationID) ([]funding.RunRecord, error) {
	query, args, err := sq.Select("run_json").
		From("calculation_runs").
		Where(sq.Eq{"application_id": string(applicationID)}).
		OrderBy("seq").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	out := []funding.RunRecord{}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		run, err := factory.UnmarshalRun(data)
		if err != nil {
			return nil, err
		}
		out = append(out, *run)
	}
	return out, rows.Err()
}

// Reset removes all rows. Migrations are kept.
func (s *Store) Reset(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"calculation_runs", "applications", "rate_schedules"} {
		query, args, err := sq.Delete(table).ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("reset %s: %w", table, err)
		}
	}
	return tx.Commit()
}

// =============================================================================
// HELPERS
// =============================================================================

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored time %q: %w", s, err)
	}
	return t, nil
}
