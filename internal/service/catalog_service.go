package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/dramirezdlp99/sistema-reservas/internal/booking"
	"github.com/dramirezdlp99/sistema-reservas/internal/models"
)

// Catalog mistakes surfaced to administrators.
var (
	ErrInvalidSpace     = errors.New("space needs a name, a code and a positive capacity")
	ErrInvalidSpaceType = errors.New("space type needs a name and sane capacity bounds")
)

// CatalogStore is the persistence boundary of the space catalog.
type CatalogStore interface {
	CreateSpaceType(ctx context.Context, st *models.SpaceType) error
	ListSpaceTypes(ctx context.Context) ([]models.SpaceType, error)
	CreateSpace(ctx context.Context, s *models.Space) error
	UpdateSpace(ctx context.Context, s *models.Space) error
	SetSpaceActive(ctx context.Context, id int64, active bool) error
	GetSpace(ctx context.Context, id int64) (*models.Space, error)
	ListSpaces(ctx context.Context, onlyActive bool) ([]models.Space, error)
}

// CatalogService manages the bookable space catalog. Reads are open;
// mutations require administrative capability.
type CatalogService struct {
	store  CatalogStore
	logger zerolog.Logger
}

// NewCatalogService creates the catalog service.
func NewCatalogService(store CatalogStore, logger *zerolog.Logger) *CatalogService {
	return &CatalogService{
		store:  store,
		logger: logger.With().Str("component", "catalog").Logger(),
	}
}

// CreateSpaceType registers a new space category.
func (s *CatalogService) CreateSpaceType(ctx context.Context, actor booking.Actor, st *models.SpaceType) error {
	if !actor.IsAdmin() {
		return booking.ErrPermissionDenied
	}
	if st.Name == "" || st.MinCapacity < 1 || st.MaxCapacity < st.MinCapacity {
		return ErrInvalidSpaceType
	}
	if err := s.store.CreateSpaceType(ctx, st); err != nil {
		return err
	}
	s.logger.Info().Str("name", st.Name).Msg("space type created")
	return nil
}

// ListSpaceTypes returns every space category.
func (s *CatalogService) ListSpaceTypes(ctx context.Context) ([]models.SpaceType, error) {
	return s.store.ListSpaceTypes(ctx)
}

// CreateSpace registers a new bookable space.
func (s *CatalogService) CreateSpace(ctx context.Context, actor booking.Actor, sp *models.Space) error {
	if !actor.IsAdmin() {
		return booking.ErrPermissionDenied
	}
	if sp.Name == "" || sp.Code == "" || sp.Capacity < 1 {
		return ErrInvalidSpace
	}
	if err := s.store.CreateSpace(ctx, sp); err != nil {
		return err
	}
	s.logger.Info().Str("code", sp.Code).Int64("space_id", sp.ID).Msg("space created")
	return nil
}

// UpdateSpace rewrites the attributes of a space.
func (s *CatalogService) UpdateSpace(ctx context.Context, actor booking.Actor, sp *models.Space) error {
	if !actor.IsAdmin() {
		return booking.ErrPermissionDenied
	}
	if sp.Name == "" || sp.Code == "" || sp.Capacity < 1 {
		return ErrInvalidSpace
	}
	return s.store.UpdateSpace(ctx, sp)
}

// DeactivateSpace stops the space from accepting new reservations. Existing
// reservations remain valid.
func (s *CatalogService) DeactivateSpace(ctx context.Context, actor booking.Actor, id int64) error {
	if !actor.IsAdmin() {
		return booking.ErrPermissionDenied
	}
	if err := s.store.SetSpaceActive(ctx, id, false); err != nil {
		return err
	}
	s.logger.Info().Int64("space_id", id).Msg("space deactivated")
	return nil
}

// ActivateSpace reopens a space for new reservations.
func (s *CatalogService) ActivateSpace(ctx context.Context, actor booking.Actor, id int64) error {
	if !actor.IsAdmin() {
		return booking.ErrPermissionDenied
	}
	return s.store.SetSpaceActive(ctx, id, true)
}

// GetSpace returns one space by id.
func (s *CatalogService) GetSpace(ctx context.Context, id int64) (*models.Space, error) {
	return s.store.GetSpace(ctx, id)
}

// ListSpaces returns spaces; onlyActive narrows to bookable ones.
func (s *CatalogService) ListSpaces(ctx context.Context, onlyActive bool) ([]models.Space, error) {
	return s.store.ListSpaces(ctx, onlyActive)
}
