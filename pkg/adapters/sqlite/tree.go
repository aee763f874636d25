package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aretw0/compass/pkg/domain"
)

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func insertDays(ctx context.Context, tx *sql.Tx, planID string, days []domain.Day) error {
	for i, day := range days {
		res, err := tx.ExecContext(ctx, `INSERT INTO plan_days (plan_id, position, date, location, theme, transportation)
			VALUES (?, ?, ?, ?, ?, ?)`,
			planID, i, day.Date.String(), day.Location, day.Theme, day.Transportation)
		if err != nil {
			return fmt.Errorf("insert day %d: %w", i+1, err)
		}
		dayID, err := res.LastInsertId()
		if err != nil {
			return err
		}

		for j, seg := range day.Segments {
			res, err := tx.ExecContext(ctx, `INSERT INTO plan_segments (day_id, position, time_slot) VALUES (?, ?, ?)`,
				dayID, j, seg.TimeSlot)
			if err != nil {
				return fmt.Errorf("insert segment %d of day %d: %w", j+1, i+1, err)
			}
			segID, err := res.LastInsertId()
			if err != nil {
				return err
			}
			for k, a := range seg.Activities {
				_, err := tx.ExecContext(ctx, `INSERT INTO activities
					(segment_id, position, name, category, location, description, estimated_duration, notes)
					VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
					segID, k, a.Name, a.Category, a.Location, a.Description, a.EstimatedDuration, a.Notes)
				if err != nil {
					return fmt.Errorf("insert activity %q: %w", a.Name, err)
				}
			}
		}

		if acc := day.Accommodation; acc != nil {
			_, err := tx.ExecContext(ctx, `INSERT INTO accommodations
				(day_id, hotel_id, name, url, address, price, currency, review_score, review_count, arrival_date, departure_date)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				dayID, acc.HotelID, acc.Name, acc.URL, acc.Address, acc.Price, acc.Currency,
				acc.ReviewScore, acc.ReviewCount, acc.ArrivalDate.String(), acc.DepartureDate.String())
			if err != nil {
				return fmt.Errorf("insert accommodation of day %d: %w", i+1, err)
			}
		}
	}
	return nil
}

func loadDays(ctx context.Context, q querier, planID string) ([]domain.Day, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, date, location, theme, transportation
		FROM plan_days WHERE plan_id = ? ORDER BY position`, planID)
	if err != nil {
		return nil, fmt.Errorf("load days: %w", err)
	}
	var (
		days []domain.Day
		ids  []int64
	)
	for rows.Next() {
		var (
			id   int64
			date string
			d    domain.Day
		)
		if err := rows.Scan(&id, &date, &d.Location, &d.Theme, &d.Transportation); err != nil {
			rows.Close()
			return nil, err
		}
		if d.Date, err = domain.ParseDate(date); err != nil {
			rows.Close()
			return nil, err
		}
		days = append(days, d)
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, id := range ids {
		if days[i].Segments, err = loadSegments(ctx, q, id); err != nil {
			return nil, err
		}
		if days[i].Accommodation, err = loadAccommodation(ctx, q, id); err != nil {
			return nil, err
		}
	}
	return days, nil
}

func loadSegments(ctx context.Context, q querier, dayID int64) ([]domain.Segment, error) {
	rows, err := q.QueryContext(ctx, `SELECT s.id, s.time_slot, a.name, a.category, a.location,
			a.description, a.estimated_duration, a.notes
		FROM plan_segments s LEFT JOIN activities a ON a.segment_id = s.id
		WHERE s.day_id = ? ORDER BY s.position, a.position`, dayID)
	if err != nil {
		return nil, fmt.Errorf("load segments: %w", err)
	}
	defer rows.Close()

	var segs []domain.Segment
	lastID := int64(-1)
	for rows.Next() {
		var (
			segID                                 int64
			slot                                  string
			name, cat, loc, desc, estimate, notes sql.NullString
		)
		if err := rows.Scan(&segID, &slot, &name, &cat, &loc, &desc, &estimate, &notes); err != nil {
			return nil, err
		}
		if segID != lastID {
			segs = append(segs, domain.Segment{TimeSlot: slot, Activities: []domain.Activity{}})
			lastID = segID
		}
		if !name.Valid {
			continue
		}
		s := &segs[len(segs)-1]
		s.Activities = append(s.Activities, domain.Activity{
			Name:              name.String,
			Category:          cat.String,
			Location:          loc.String,
			Description:       desc.String,
			EstimatedDuration: estimate.String,
			Notes:             notes.String,
		})
	}
	return segs, rows.Err()
}

func loadAccommodation(ctx context.Context, q querier, dayID int64) (*domain.Accommodation, error) {
	rows, err := q.QueryContext(ctx, `SELECT hotel_id, name, url, address, price, currency,
			review_score, review_count, arrival_date, departure_date
		FROM accommodations WHERE day_id = ?`, dayID)
	if err != nil {
		return nil, fmt.Errorf("load accommodation: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, rows.Err()
	}
	var (
		acc                domain.Accommodation
		arrival, departure string
	)
	if err := rows.Scan(&acc.HotelID, &acc.Name, &acc.URL, &acc.Address, &acc.Price, &acc.Currency,
		&acc.ReviewScore, &acc.ReviewCount, &arrival, &departure); err != nil {
		return nil, err
	}
	if acc.ArrivalDate, err = domain.ParseDate(arrival); err != nil {
		return nil, err
	}
	if acc.DepartureDate, err = domain.ParseDate(departure); err != nil {
		return nil, err
	}
	return &acc, nil
}
