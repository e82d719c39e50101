package database

import (
	"context"
	"fmt"
	"time"

	"github.com/dramirezdlp99/sistema-reservas/internal/models"
)

// SpaceUsage counts reservations ever made against a space.
type SpaceUsage struct {
	SpaceID   int64  `json:"space_id"`
	SpaceName string `json:"space_name"`
	Total     int    `json:"total"`
}

// DayOccupancy counts fulfilled demand (confirmed + completed) on one date.
type DayOccupancy struct {
	Date  string `json:"date"`
	Total int    `json:"total"`
}

// CountReservationsByStatus returns reservation totals grouped by status.
func (db *DB) CountReservationsByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM reservations GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// TopSpaces returns the most reserved spaces, busiest first.
func (db *DB) TopSpaces(ctx context.Context, limit int) ([]SpaceUsage, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := db.QueryContext(ctx, `
		SELECT s.id, s.name, COUNT(r.id) AS total
		FROM reservations r
		JOIN spaces s ON s.id = r.space_id
		GROUP BY s.id, s.name
		ORDER BY total DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("top spaces: %w", err)
	}
	defer rows.Close()

	var usage []SpaceUsage
	for rows.Next() {
		var u SpaceUsage
		if err := rows.Scan(&u.SpaceID, &u.SpaceName, &u.Total); err != nil {
			return nil, err
		}
		usage = append(usage, u)
	}
	return usage, rows.Err()
}

// OccupancyByDay returns per-day confirmed+completed counts for days
// consecutive dates starting at from. Dates with no reservations appear with
// a zero total.
func (db *DB) OccupancyByDay(ctx context.Context, from time.Time, days int) ([]DayOccupancy, error) {
	if days <= 0 {
		days = 7
	}
	start := from.Format(models.DateLayout)
	end := from.AddDate(0, 0, days-1).Format(models.DateLayout)

	rows, err := db.QueryContext(ctx, `
		SELECT date, COUNT(*) FROM reservations
		WHERE date >= ? AND date <= ? AND status IN (?, ?)
		GROUP BY date`,
		start, end, models.StatusConfirmed, models.StatusCompleted)
	if err != nil {
		return nil, fmt.Errorf("occupancy by day: %w", err)
	}
	defer rows.Close()

	byDate := make(map[string]int)
	for rows.Next() {
		var date string
		var n int
		if err := rows.Scan(&date, &n); err != nil {
			return nil, err
		}
		byDate[date] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]DayOccupancy, 0, days)
	for i := 0; i < days; i++ {
		d := from.AddDate(0, 0, i).Format(models.DateLayout)
		out = append(out, DayOccupancy{Date: d, Total: byDate[d]})
	}
	return out, nil
}
