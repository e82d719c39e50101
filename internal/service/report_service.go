package service

import (
	"context"
	"time"

	"github.com/dramirezdlp99/sistema-reservas/internal/booking"
	"github.com/dramirezdlp99/sistema-reservas/internal/database"
)

// ReportStore supplies the aggregate queries behind usage summaries.
type ReportStore interface {
	CountReservationsByStatus(ctx context.Context) (map[string]int, error)
	TopSpaces(ctx context.Context, limit int) ([]database.SpaceUsage, error)
	OccupancyByDay(ctx context.Context, from time.Time, days int) ([]database.DayOccupancy, error)
}

// UsageSummary aggregates reservation activity for administrators. Document
// rendering (PDF, spreadsheets) belongs to external consumers of this data.
type UsageSummary struct {
	ByStatus        map[string]int          `json:"by_status"`
	TopSpaces       []database.SpaceUsage   `json:"top_spaces"`
	WeeklyOccupancy []database.DayOccupancy `json:"weekly_occupancy"`
}

// ReportService computes usage summaries; admin only.
type ReportService struct {
	store ReportStore
	now   func() time.Time
}

// NewReportService creates the report service.
func NewReportService(store ReportStore) *ReportService {
	return &ReportService{store: store, now: time.Now}
}

// Summary returns reservation totals by status, the busiest spaces, and the
// trailing week's per-day occupancy.
func (s *ReportService) Summary(ctx context.Context, actor booking.Actor) (*UsageSummary, error) {
	if !actor.IsAdmin() {
		return nil, booking.ErrPermissionDenied
	}

	byStatus, err := s.store.CountReservationsByStatus(ctx)
	if err != nil {
		return nil, err
	}
	top, err := s.store.TopSpaces(ctx, 5)
	if err != nil {
		return nil, err
	}
	weekAgo := s.now().AddDate(0, 0, -6)
	occupancy, err := s.store.OccupancyByDay(ctx, weekAgo, 7)
	if err != nil {
		return nil, err
	}

	return &UsageSummary{
		ByStatus:        byStatus,
		TopSpaces:       top,
		WeeklyOccupancy: occupancy,
	}, nil
}
