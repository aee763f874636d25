// Package sqlite persists finalized plans in SQLite.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/compass/pkg/domain"
	"github.com/aretw0/compass/pkg/ports"
	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"
)

//go:embed schema.sql
var schema string

var _ ports.PlanRepository = (*Repository)(nil)

// Repository implements ports.PlanRepository. Every write runs in a single
// transaction and is rolled back on any error.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// Open connects to dsn, enables foreign keys and applies the schema.
func Open(ctx context.Context, dsn string) (*Repository, error) {
	if !strings.Contains(dsn, "_foreign_keys") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_foreign_keys=on"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer; one connection also keeps :memory: usable.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	r := New(db)
	if err := r.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

// New wraps an open database. Call Migrate before first use.
func New(db *sql.DB) *Repository {
	return &Repository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Migrate creates missing tables.
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Close closes the database.
func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
			}
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// Create inserts the itinerary as a new draft plan.
func (r *Repository) Create(ctx context.Context, it domain.Itinerary) (*domain.Plan, error) {
	plan := domain.Plan{
		ID:        ulid.Make().String(),
		Status:    domain.PlanStatusDraft,
		Itinerary: *it.Clone(),
		CreatedAt: r.now(),
	}
	plan.Itinerary.Normalize()

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO plans
			(id, status, theme, description, departure_location, destination, num_travelers,
			 duration, start_date, end_date, highlight, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			plan.ID, plan.Status, plan.Theme, plan.Description, plan.DepartureLocation, plan.Destination,
			plan.Travelers, plan.Duration, plan.StartDate.String(), plan.EndDate.String(), plan.Highlight,
			formatTime(plan.CreatedAt))
		if err != nil {
			return fmt.Errorf("insert plan: %w", err)
		}
		return insertDays(ctx, tx, plan.ID, plan.Days)
	})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, plan.ID)
}

// Get loads a plan with its full day tree.
func (r *Repository) Get(ctx context.Context, id string) (*domain.Plan, error) {
	row := r.db.QueryRowContext(ctx, selectPlan+` WHERE id = ?`, id)
	plan, err := scanPlan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrPlanNotFound
	}
	if err != nil {
		return nil, err
	}
	if plan.Days, err = loadDays(ctx, r.db, id); err != nil {
		return nil, err
	}
	return plan, nil
}

// List returns every plan, oldest first.
func (r *Repository) List(ctx context.Context) ([]domain.Plan, error) {
	rows, err := r.db.QueryContext(ctx, selectPlan+` ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	var plans []domain.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		plans = append(plans, *p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range plans {
		if plans[i].Days, err = loadDays(ctx, r.db, plans[i].ID); err != nil {
			return nil, err
		}
	}
	return plans, nil
}

// Update applies a partial update. A non-nil Days replaces the whole tree.
func (r *Repository) Update(ctx context.Context, id string, patch domain.PlanPatch) (*domain.Plan, error) {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		current, err := scanPlan(tx.QueryRowContext(ctx, selectPlan+` WHERE id = ?`, id))
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrPlanNotFound
		}
		if err != nil {
			return err
		}

		patch.ApplyTo(current)
		_, err = tx.ExecContext(ctx, `UPDATE plans SET
			status = ?, theme = ?, description = ?, departure_location = ?, destination = ?,
			num_travelers = ?, duration = ?, start_date = ?, end_date = ?, highlight = ?, updated_at = ?
			WHERE id = ?`,
			current.Status, current.Theme, current.Description, current.DepartureLocation, current.Destination,
			current.Travelers, current.Duration, current.StartDate.String(), current.EndDate.String(),
			current.Highlight, formatTime(r.now()), id)
		if err != nil {
			return fmt.Errorf("update plan: %w", err)
		}

		if patch.Days == nil {
			return nil
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM plan_days WHERE plan_id = ?`, id); err != nil {
			return fmt.Errorf("clear days: %w", err)
		}
		return insertDays(ctx, tx, id, current.Days)
	})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

// Delete removes a plan; days, segments, activities and accommodations
// cascade.
func (r *Repository) Delete(ctx context.Context, id string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM plans WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete plan: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return domain.ErrPlanNotFound
		}
		return nil
	})
}

const selectPlan = `SELECT id, status, theme, description, departure_location, destination,
	num_travelers, duration, start_date, end_date, highlight, created_at, updated_at FROM plans`

type scanner interface {
	Scan(dest ...any) error
}

func scanPlan(s scanner) (*domain.Plan, error) {
	var (
		p                  domain.Plan
		start, end, create string
		updated            sql.NullString
	)
	err := s.Scan(&p.ID, &p.Status, &p.Theme, &p.Description, &p.DepartureLocation, &p.Destination,
		&p.Travelers, &p.Duration, &start, &end, &p.Highlight, &create, &updated)
	if err != nil {
		return nil, err
	}
	if p.StartDate, err = domain.ParseDate(start); err != nil {
		return nil, err
	}
	if p.EndDate, err = domain.ParseDate(end); err != nil {
		return nil, err
	}
	if p.CreatedAt, err = time.Parse(time.RFC3339Nano, create); err != nil {
		return nil, fmt.Errorf("plan %s created_at: %w", p.ID, err)
	}
	if updated.Valid {
		t, err := time.Parse(time.RFC3339Nano, updated.String)
		if err != nil {
			return nil, fmt.Errorf("plan %s updated_at: %w", p.ID, err)
		}
		p.UpdatedAt = &t
	}
	return &p, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
