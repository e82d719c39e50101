package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dramirezdlp99/sistema-reservas/internal/booking"
	"github.com/dramirezdlp99/sistema-reservas/internal/models"
)

const reservationColumns = `id, space_id, requester_id, date, start_time, end_time,
	reason, description, status, auto_confirm, confirmed_by, created_at, updated_at, version`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row rowScanner) (*models.Reservation, error) {
	var r models.Reservation
	var confirmedBy sql.NullInt64
	err := row.Scan(&r.ID, &r.SpaceID, &r.RequesterID, &r.Date, &r.StartTime, &r.EndTime,
		&r.Reason, &r.Description, &r.Status, &r.AutoConfirm, &confirmedBy,
		&r.CreatedAt, &r.UpdatedAt, &r.Version)
	if err != nil {
		return nil, err
	}
	if confirmedBy.Valid {
		r.ConfirmedBy = &confirmedBy.Int64
	}
	return &r, nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// findConflict returns the first pending or confirmed reservation on
// (spaceID, date) whose [start,end) interval intersects the requested one,
// skipping excludeID so an edit never conflicts with itself. Touching
// endpoints do not conflict. Returns nil when the slot is free.
func findConflict(ctx context.Context, q querier, spaceID int64, date, start, end, excludeID string) (*models.Reservation, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE space_id = ? AND date = ?
		  AND status IN (?, ?)
		  AND id <> ?
		  AND start_time < ? AND end_time > ?
		ORDER BY start_time
		LIMIT 1`,
		spaceID, date, models.StatusPending, models.StatusConfirmed, excludeID, end, start,
	)
	r, err := scanReservation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find conflict: %w", err)
	}
	return r, nil
}

// FindConflict runs the conflict query outside a transaction, for read-only
// availability checks.
func (db *DB) FindConflict(ctx context.Context, spaceID int64, date, start, end, excludeID string) (*models.Reservation, error) {
	return findConflict(ctx, db.DB, spaceID, date, start, end, excludeID)
}

// CreateReservation inserts a reservation after rechecking for conflicts
// inside the same transaction. The recheck means that even if the caller's
// validation raced with another writer, the loser fails here with a
// ConflictError instead of committing a double booking. Lock contention maps
// to booking.ErrConcurrency, which is retryable.
func (db *DB) CreateReservation(ctx context.Context, r *models.Reservation) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return txErr("begin", err)
	}
	defer tx.Rollback()

	conflict, err := findConflict(ctx, tx, r.SpaceID, r.Date, r.StartTime, r.EndTime, r.ID)
	if err != nil {
		return txErr("recheck", err)
	}
	if conflict != nil {
		return &booking.ConflictError{
			SpaceID:   conflict.SpaceID,
			Date:      conflict.Date,
			StartTime: conflict.StartTime,
			EndTime:   conflict.EndTime,
		}
	}

	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now
	r.Version = 1

	var confirmedBy any
	if r.ConfirmedBy != nil {
		confirmedBy = *r.ConfirmedBy
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO reservations (`+reservationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.SpaceID, r.RequesterID, r.Date, r.StartTime, r.EndTime,
		r.Reason, r.Description, r.Status, r.AutoConfirm, confirmedBy,
		r.CreatedAt, r.UpdatedAt, r.Version,
	)
	if err != nil {
		return txErr("insert", err)
	}
	if err := tx.Commit(); err != nil {
		return txErr("commit", err)
	}
	return nil
}

// UpdateReservationInterval rewrites the booked slot and free-text fields of
// a reservation, rechecking conflicts in the same transaction and bumping
// the version. A version mismatch means another writer got there first.
func (db *DB) UpdateReservationInterval(ctx context.Context, r *models.Reservation) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return txErr("begin", err)
	}
	defer tx.Rollback()

	conflict, err := findConflict(ctx, tx, r.SpaceID, r.Date, r.StartTime, r.EndTime, r.ID)
	if err != nil {
		return txErr("recheck", err)
	}
	if conflict != nil {
		return &booking.ConflictError{
			SpaceID:   conflict.SpaceID,
			Date:      conflict.Date,
			StartTime: conflict.StartTime,
			EndTime:   conflict.EndTime,
		}
	}

	r.UpdatedAt = time.Now().UTC()
	res, err := tx.ExecContext(ctx, `
		UPDATE reservations
		SET date = ?, start_time = ?, end_time = ?, reason = ?, description = ?,
		    updated_at = ?, version = version + 1
		WHERE id = ? AND version = ?`,
		r.Date, r.StartTime, r.EndTime, r.Reason, r.Description,
		r.UpdatedAt, r.ID, r.Version,
	)
	if err != nil {
		return txErr("update", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return booking.ErrConcurrency
	}
	if err := tx.Commit(); err != nil {
		return txErr("commit", err)
	}
	r.Version++
	return nil
}

// UpdateReservationStatus applies a status change with compare-and-swap on
// the version. confirmedBy is recorded only when non-nil (administrative
// confirmation); auto-confirmation and cancellation leave it untouched.
func (db *DB) UpdateReservationStatus(ctx context.Context, id string, version int64, status string, confirmedBy *int64) error {
	var res sql.Result
	var err error
	now := time.Now().UTC()
	if confirmedBy != nil {
		res, err = db.ExecContext(ctx, `
			UPDATE reservations SET status = ?, confirmed_by = ?, updated_at = ?, version = version + 1
			WHERE id = ? AND version = ?`,
			status, *confirmedBy, now, id, version)
	} else {
		res, err = db.ExecContext(ctx, `
			UPDATE reservations SET status = ?, updated_at = ?, version = version + 1
			WHERE id = ? AND version = ?`,
			status, now, id, version)
	}
	if err != nil {
		return txErr("update status", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return booking.ErrConcurrency
	}
	return nil
}

// GetReservation returns a reservation by ID.
func (db *DB) GetReservation(ctx context.Context, id string) (*models.Reservation, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id)
	r, err := scanReservation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, booking.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get reservation %s: %w", id, err)
	}
	return r, nil
}

// ListReservations returns reservations matching the filter, most recent
// date first.
func (db *DB) ListReservations(ctx context.Context, f models.ReservationFilter) ([]models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE 1=1`
	var args []any
	if f.SpaceID != 0 {
		query += ` AND space_id = ?`
		args = append(args, f.SpaceID)
	}
	if f.RequesterID != 0 {
		query += ` AND requester_id = ?`
		args = append(args, f.RequesterID)
	}
	if f.Date != "" {
		query += ` AND date = ?`
		args = append(args, f.Date)
	}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, f.Status)
	}
	query += ` ORDER BY date DESC, start_time DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}
	return db.queryReservations(ctx, query, args...)
}

// ListUpcomingByRequester returns the requester's pending and confirmed
// reservations from date onward, soonest first.
func (db *DB) ListUpcomingByRequester(ctx context.Context, requesterID int64, fromDate string, limit int) ([]models.Reservation, error) {
	query := `SELECT ` + reservationColumns + `
		FROM reservations
		WHERE requester_id = ? AND date >= ? AND status IN (?, ?)
		ORDER BY date, start_time`
	args := []any{requesterID, fromDate, models.StatusPending, models.StatusConfirmed}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return db.queryReservations(ctx, query, args...)
}

// ListSpaceCalendar returns the active reservations occupying a space within
// [fromDate, toDate], for calendar rendering by external consumers.
func (db *DB) ListSpaceCalendar(ctx context.Context, spaceID int64, fromDate, toDate string) ([]models.Reservation, error) {
	return db.queryReservations(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE space_id = ? AND date >= ? AND date <= ? AND status IN (?, ?)
		ORDER BY date, start_time`,
		spaceID, fromDate, toDate, models.StatusPending, models.StatusConfirmed)
}

// CountActiveByRequester counts the requester's pending and confirmed
// reservations from fromDate onward.
func (db *DB) CountActiveByRequester(ctx context.Context, requesterID int64, fromDate string) (int, error) {
	var count int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM reservations
		WHERE requester_id = ? AND date >= ? AND status IN (?, ?)`,
		requesterID, fromDate, models.StatusPending, models.StatusConfirmed,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count active reservations: %w", err)
	}
	return count, nil
}

// CompleteElapsed marks confirmed reservations whose interval has fully
// passed as completed and returns them. Runs as one transaction so the sweep
// never observes a half-updated set.
func (db *DB) CompleteElapsed(ctx context.Context, now time.Time) ([]models.Reservation, error) {
	date := now.Format(models.DateLayout)
	tod := now.Format(models.TimeLayout)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, txErr("begin", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE status = ? AND (date < ? OR (date = ? AND end_time <= ?))`,
		models.StatusConfirmed, date, date, tod)
	if err != nil {
		return nil, txErr("select elapsed", err)
	}
	var elapsed []models.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		elapsed = append(elapsed, *r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(elapsed) == 0 {
		return nil, tx.Commit()
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE reservations SET status = ?, updated_at = ?, version = version + 1
		WHERE status = ? AND (date < ? OR (date = ? AND end_time <= ?))`,
		models.StatusCompleted, now.UTC(), models.StatusConfirmed, date, date, tod)
	if err != nil {
		return nil, txErr("complete", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, txErr("commit", err)
	}

	for i := range elapsed {
		elapsed[i].Status = models.StatusCompleted
		elapsed[i].Version++
	}
	return elapsed, nil
}

func (db *DB) queryReservations(ctx context.Context, query string, args ...any) ([]models.Reservation, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reservations: %w", err)
	}
	defer rows.Close()

	var out []models.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// txErr wraps database errors, translating sqlite lock contention into the
// retryable concurrency error.
func txErr(op string, err error) error {
	if isBusy(err) {
		return fmt.Errorf("%s: %w", op, booking.ErrConcurrency)
	}
	return fmt.Errorf("%s: %w", op, err)
}
