package places

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/adube/placeshare/internal/httperr"
	"github.com/adube/placeshare/internal/models"
	"github.com/adube/placeshare/internal/store"
)

// PlaceStore defines the place persistence the service needs.
type PlaceStore interface {
	GetPlaceByID(ctx context.Context, id string) (*models.Place, error)
	ListPlacesByCreator(ctx context.Context, userID string) ([]models.Place, error)
	InsertPlace(ctx context.Context, p *models.Place) error
	UpdatePlace(ctx context.Context, p *models.Place) error
	DeletePlace(ctx context.Context, id string) error
}

// UserStore defines the user persistence the service needs.
type UserStore interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	AddUserPlace(ctx context.Context, userID, placeID string) error
	RemoveUserPlace(ctx context.Context, userID, placeID string) error
}

// Tx runs a function inside a multi-document transaction. Store calls made
// with the context passed to fn join the transaction.
type Tx interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// FileStore is the object storage holding place images.
type FileStore interface {
	Remove(ctx context.Context, key string) error
}

// Service coordinates the linked user<->place mutations. It is the only
// component that opens transactions spanning both collections; a place's
// record and its entry in the creator's places list always move together.
type Service struct {
	places PlaceStore
	users  UserStore
	tx     Tx
	files  FileStore
	log    zerolog.Logger
}

func NewService(places PlaceStore, users UserStore, tx Tx, files FileStore, log zerolog.Logger) *Service {
	return &Service{places: places, users: users, tx: tx, files: files, log: log}
}

// Get returns a single place by id.
func (s *Service) Get(ctx context.Context, id string) (*models.Place, error) {
	p, err := s.places.GetPlaceByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, httperr.NotFound("Could not find a place for the provided id.")
		}
		return nil, httperr.Persistence("Something went wrong, could not find a place.", err)
	}
	return p, nil
}

// ListByCreator returns all places owned by the given user, newest first.
// A user with no places yields an empty list, not an error.
func (s *Service) ListByCreator(ctx context.Context, userID string) ([]models.Place, error) {
	ps, err := s.places.ListPlacesByCreator(ctx, userID)
	if err != nil {
		return nil, httperr.Persistence("Fetching places failed, please try again later.", err)
	}
	if ps == nil {
		ps = []models.Place{}
	}
	return ps, nil
}

// CreateLinked inserts a new place owned by creatorID and appends its id to
// the creator's places list, atomically. If either write fails the
// transaction aborts and neither is observable.
func (s *Service) CreateLinked(ctx context.Context, creatorID string, req models.CreatePlaceRequest, imageKey string) (*models.Place, error) {
	creator, err := s.users.GetUserByID(ctx, creatorID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, httperr.NotFound("Could not find user for the provided id.")
		}
		return nil, httperr.Persistence("Creating place failed, please try again.", err)
	}

	place := &models.Place{
		Title:       req.Title,
		Description: req.Description,
		Address:     req.Address,
		Image:       imageKey,
		Creator:     creator.ID,
	}
	if req.Location != nil {
		place.Location = *req.Location
	}

	err = s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.places.InsertPlace(txCtx, place); err != nil {
			return err
		}
		return s.users.AddUserPlace(txCtx, creatorID, place.ID.Hex())
	})
	if err != nil {
		return nil, httperr.Persistence("Creating place failed, please try again.", err)
	}
	return place, nil
}

// Update applies title/description changes to a place owned by requesterID.
// Single-document write, so no transaction is involved.
func (s *Service) Update(ctx context.Context, placeID, requesterID string, req models.UpdatePlaceRequest) (*models.Place, error) {
	place, err := s.places.GetPlaceByID(ctx, placeID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, httperr.NotFound("Could not find a place for the provided id.")
		}
		return nil, httperr.Persistence("Something went wrong, could not update place.", err)
	}

	if place.Creator.Hex() != requesterID {
		return nil, httperr.Forbidden("You are not allowed to edit this place.")
	}

	place.Title = req.Title
	place.Description = req.Description

	if err := s.places.UpdatePlace(ctx, place); err != nil {
		return nil, httperr.Persistence("Something went wrong, could not update place.", err)
	}
	return place, nil
}

// DeleteLinked removes a place and its entry in the creator's places list,
// atomically. The ownership check happens before any write: a non-owner
// request leaves both documents untouched.
func (s *Service) DeleteLinked(ctx context.Context, placeID, requesterID string) error {
	place, err := s.places.GetPlaceByID(ctx, placeID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return httperr.NotFound("Could not find a place for the provided id.")
		}
		return httperr.Persistence("Something went wrong, could not delete place.", err)
	}

	if place.Creator.Hex() != requesterID {
		return httperr.Forbidden("You are not allowed to delete this place.")
	}

	err = s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.places.DeletePlace(txCtx, placeID); err != nil {
			return err
		}
		return s.users.RemoveUserPlace(txCtx, place.Creator.Hex(), placeID)
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Concurrent delete won the race.
			return httperr.NotFound("Could not find a place for the provided id.")
		}
		return httperr.Persistence("Something went wrong, could not delete place.", err)
	}

	// Image cleanup is best-effort and happens outside the transaction;
	// a failure here never surfaces to the caller.
	if place.Image != "" {
		if err := s.files.Remove(ctx, place.Image); err != nil {
			s.log.Warn().Err(err).Str("key", place.Image).Msg("failed to remove place image")
		}
	}
	return nil
}
