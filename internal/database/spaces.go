package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dramirezdlp99/sistema-reservas/internal/booking"
	"github.com/dramirezdlp99/sistema-reservas/internal/models"
)

// CreateSpaceType inserts a space type and sets its ID.
func (db *DB) CreateSpaceType(ctx context.Context, st *models.SpaceType) error {
	res, err := db.ExecContext(ctx,
		`INSERT INTO space_types (name, description, min_capacity, max_capacity) VALUES (?, ?, ?, ?)`,
		st.Name, st.Description, st.MinCapacity, st.MaxCapacity,
	)
	if err != nil {
		return fmt.Errorf("create space type: %w", err)
	}
	st.ID, err = res.LastInsertId()
	return err
}

// ListSpaceTypes returns all space types ordered by name.
func (db *DB) ListSpaceTypes(ctx context.Context) ([]models.SpaceType, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, name, description, min_capacity, max_capacity FROM space_types ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list space types: %w", err)
	}
	defer rows.Close()

	var types []models.SpaceType
	for rows.Next() {
		var st models.SpaceType
		if err := rows.Scan(&st.ID, &st.Name, &st.Description, &st.MinCapacity, &st.MaxCapacity); err != nil {
			return nil, err
		}
		types = append(types, st)
	}
	return types, rows.Err()
}

// CreateSpace inserts a space and sets its ID.
func (db *DB) CreateSpace(ctx context.Context, s *models.Space) error {
	res, err := db.ExecContext(ctx,
		`INSERT INTO spaces (name, type_id, code, capacity, location, description, equipment, active)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.Name, s.TypeID, s.Code, s.Capacity, s.Location, s.Description, s.Equipment, s.Active,
	)
	if err != nil {
		return fmt.Errorf("create space: %w", err)
	}
	s.ID, err = res.LastInsertId()
	return err
}

// UpdateSpace updates the mutable attributes of a space.
func (db *DB) UpdateSpace(ctx context.Context, s *models.Space) error {
	res, err := db.ExecContext(ctx,
		`UPDATE spaces SET name = ?, type_id = ?, code = ?, capacity = ?, location = ?,
		        description = ?, equipment = ?, active = ?
		 WHERE id = ?`,
		s.Name, s.TypeID, s.Code, s.Capacity, s.Location, s.Description, s.Equipment, s.Active, s.ID,
	)
	if err != nil {
		return fmt.Errorf("update space: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return booking.ErrSpaceNotFound
	}
	return nil
}

// SetSpaceActive flips the active flag. Deactivation never touches existing
// reservations; it only gates new ones.
func (db *DB) SetSpaceActive(ctx context.Context, id int64, active bool) error {
	res, err := db.ExecContext(ctx, `UPDATE spaces SET active = ? WHERE id = ?`, active, id)
	if err != nil {
		return fmt.Errorf("set space active: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return booking.ErrSpaceNotFound
	}
	return nil
}

// GetSpace returns a space by ID.
func (db *DB) GetSpace(ctx context.Context, id int64) (*models.Space, error) {
	var s models.Space
	err := db.QueryRowContext(ctx,
		`SELECT id, name, type_id, code, capacity, location, description, equipment, active, created_at
		 FROM spaces WHERE id = ?`, id,
	).Scan(&s.ID, &s.Name, &s.TypeID, &s.Code, &s.Capacity, &s.Location, &s.Description,
		&s.Equipment, &s.Active, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, booking.ErrSpaceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get space %d: %w", id, err)
	}
	return &s, nil
}

// ListSpaces returns spaces, optionally only active ones, ordered by name.
func (db *DB) ListSpaces(ctx context.Context, onlyActive bool) ([]models.Space, error) {
	query := `SELECT id, name, type_id, code, capacity, location, description, equipment, active, created_at
	          FROM spaces`
	if onlyActive {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY name`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list spaces: %w", err)
	}
	defer rows.Close()

	var spaces []models.Space
	for rows.Next() {
		var s models.Space
		if err := rows.Scan(&s.ID, &s.Name, &s.TypeID, &s.Code, &s.Capacity, &s.Location,
			&s.Description, &s.Equipment, &s.Active, &s.CreatedAt); err != nil {
			return nil, err
		}
		spaces = append(spaces, s)
	}
	return spaces, rows.Err()
}
