// Package meallog persists analyzed meals in the food_logs table and answers
// cache lookups against that history.
package meallog

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"nutrirag/internal/domain"
	"nutrirag/internal/sqlitedb"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	table        = "food_logs"
	versionTable = "meallog_goose_version"
)

// Store is the Meal Record store. Every call opens and closes its own
// database handle; nothing is held between operations.
type Store struct {
	path string
	now  func() time.Time
}

// Option customizes a Store.
type Option func(*Store)

// WithClock overrides the time source used to stamp new records.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open prepares the database at path, applying pending migrations.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("meallog: database path is required")
	}
	s := &Store{path: path, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	err := sqlitedb.With(ctx, path, func(db *sql.DB) error {
		return sqlitedb.Migrate(ctx, db, migrationsFS, "migrations", versionTable)
	})
	if err != nil {
		return nil, fmt.Errorf("meallog: %w", err)
	}
	return s, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Save appends a record stamped with the current time and returns it with its id.
func (s *Store) Save(ctx context.Context, rec domain.MealRecord) (domain.MealRecord, error) {
	rec.Date = s.now().Format(domain.DateLayout)
	query, args, err := sq.Insert(table).
		Columns("date", "food", "food_key", "protein", "carbs", "fats", "advice").
		Values(rec.Date, rec.Food, foodKey(rec.Food), rec.Protein, rec.Carbs, rec.Fats, rec.Advice).
		ToSql()
	if err != nil {
		return rec, fmt.Errorf("meallog: build insert: %w", err)
	}
	err = sqlitedb.With(ctx, s.path, func(db *sql.DB) error {
		res, err := db.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		rec.ID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return rec, fmt.Errorf("meallog: save meal: %w", err)
	}
	return rec, nil
}

// Lookup returns the most recent record whose food contains description,
// compared case-insensitively. Broad descriptions can match unrelated
// meals; that imprecision is accepted. A miss is (zero, false, nil).
func (s *Store) Lookup(ctx context.Context, description string) (domain.CachedMeal, bool, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return domain.CachedMeal{}, false, nil
	}
	pattern := "%" + escapeLike(foodKey(description)) + "%"
	query, args, err := sq.Select("protein", "carbs", "fats", "advice").
		From(table).
		Where(sq.Expr(`food_key LIKE ? ESCAPE '\'`, pattern)).
		OrderBy("date DESC", "id DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return domain.CachedMeal{}, false, fmt.Errorf("meallog: build lookup: %w", err)
	}
	var hit domain.CachedMeal
	found := false
	err = sqlitedb.With(ctx, s.path, func(db *sql.DB) error {
		err := db.QueryRowContext(ctx, query, args...).Scan(&hit.Protein, &hit.Carbs, &hit.Fats, &hit.Advice)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		return domain.CachedMeal{}, false, fmt.Errorf("meallog: lookup: %w", err)
	}
	return hit, found, nil
}

// TodayIntake sums the macros of every record stamped with today's date.
func (s *Store) TodayIntake(ctx context.Context) (domain.DailyIntake, error) {
	day := s.now().Format("2006-01-02")
	query, args, err := sq.Select("COALESCE(SUM(protein), 0)", "COALESCE(SUM(carbs), 0)", "COALESCE(SUM(fats), 0)", "COUNT(*)").
		From(table).
		Where(sq.Like{"date": day + "%"}).
		ToSql()
	if err != nil {
		return domain.DailyIntake{}, fmt.Errorf("meallog: build intake: %w", err)
	}
	out := domain.DailyIntake{Date: day}
	err = sqlitedb.With(ctx, s.path, func(db *sql.DB) error {
		return db.QueryRowContext(ctx, query, args...).Scan(&out.Protein, &out.Carbs, &out.Fats, &out.Meals)
	})
	if err != nil {
		return domain.DailyIntake{}, fmt.Errorf("meallog: today intake: %w", err)
	}
	return out, nil
}

// Recent lists up to limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]domain.MealRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	query, args, err := sq.Select("id", "date", "food", "protein", "carbs", "fats", "advice").
		From(table).
		OrderBy("date DESC", "id DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("meallog: build recent: %w", err)
	}
	var out []domain.MealRecord
	err = sqlitedb.With(ctx, s.path, func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var r domain.MealRecord
			if err := rows.Scan(&r.ID, &r.Date, &r.Food, &r.Protein, &r.Carbs, &r.Fats, &r.Advice); err != nil {
				return err
			}
			out = append(out, r)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("meallog: recent: %w", err)
	}
	return out, nil
}

// foodKey folds food for matching. SQLite's lower() only folds ASCII, so the
// key is computed here and stored alongside the original text.
func foodKey(food string) string {
	return strings.ToLower(food)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside a LIKE pattern using '\' as escape.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
