package places

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/adube/placeshare/internal/httperr"
	"github.com/adube/placeshare/internal/models"
	"github.com/adube/placeshare/internal/store"
)

// fakeStore is an in-memory stand-in for the Mongo store. The linked tests
// drive it through the same interfaces the real store satisfies.
type fakeStore struct {
	users  map[string]*models.User
	places map[string]*models.Place

	failAddPlace    bool
	failRemovePlace bool
	deleteCalls     int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:  map[string]*models.User{},
		places: map[string]*models.Place{},
	}
}

func (f *fakeStore) addUser(name string) *models.User {
	u := &models.User{
		ID:     primitive.NewObjectID(),
		Name:   name,
		Email:  name + "@x.com",
		Places: []primitive.ObjectID{},
	}
	f.users[u.ID.Hex()] = u
	return u
}

func (f *fakeStore) addPlace(creator *models.User, image string) *models.Place {
	p := &models.Place{
		ID:          primitive.NewObjectID(),
		Title:       "Empire State Building",
		Description: "One of the most famous sky scrapers in the world",
		Address:     "20 W 34th St, New York",
		Image:       image,
		Creator:     creator.ID,
	}
	f.places[p.ID.Hex()] = p
	creator.Places = append(creator.Places, p.ID)
	return p
}

func (f *fakeStore) GetUserByID(_ context.Context, id string) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, fmt.Errorf("user %q: %w", id, store.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (f *fakeStore) AddUserPlace(_ context.Context, userID, placeID string) error {
	if f.failAddPlace {
		return errors.New("induced write failure")
	}
	u, ok := f.users[userID]
	if !ok {
		return fmt.Errorf("user %q: %w", userID, store.ErrNotFound)
	}
	pid, err := primitive.ObjectIDFromHex(placeID)
	if err != nil {
		return fmt.Errorf("place %q: %w", placeID, store.ErrNotFound)
	}
	u.Places = append(u.Places, pid)
	return nil
}

func (f *fakeStore) RemoveUserPlace(_ context.Context, userID, placeID string) error {
	if f.failRemovePlace {
		return errors.New("induced write failure")
	}
	u, ok := f.users[userID]
	if !ok {
		return fmt.Errorf("user %q: %w", userID, store.ErrNotFound)
	}
	kept := u.Places[:0]
	for _, pid := range u.Places {
		if pid.Hex() != placeID {
			kept = append(kept, pid)
		}
	}
	u.Places = kept
	return nil
}

func (f *fakeStore) GetPlaceByID(_ context.Context, id string) (*models.Place, error) {
	p, ok := f.places[id]
	if !ok {
		return nil, fmt.Errorf("place %q: %w", id, store.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) ListPlacesByCreator(_ context.Context, userID string) ([]models.Place, error) {
	var out []models.Place
	for _, p := range f.places {
		if p.Creator.Hex() == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeStore) InsertPlace(_ context.Context, p *models.Place) error {
	p.ID = primitive.NewObjectID()
	cp := *p
	f.places[p.ID.Hex()] = &cp
	return nil
}

func (f *fakeStore) UpdatePlace(_ context.Context, p *models.Place) error {
	stored, ok := f.places[p.ID.Hex()]
	if !ok {
		return fmt.Errorf("place %q: %w", p.ID.Hex(), store.ErrNotFound)
	}
	stored.Title = p.Title
	stored.Description = p.Description
	return nil
}

func (f *fakeStore) DeletePlace(_ context.Context, id string) error {
	f.deleteCalls++
	if _, ok := f.places[id]; !ok {
		return fmt.Errorf("place %q: %w", id, store.ErrNotFound)
	}
	delete(f.places, id)
	return nil
}

// fakeTx emulates transaction semantics over the fake store: it snapshots
// both maps before running fn and restores them if fn fails, so neither
// write of an aborted linked operation stays observable.
type fakeTx struct {
	s       *fakeStore
	aborted bool
}

func (t *fakeTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	savedUsers := map[string]*models.User{}
	for k, v := range t.s.users {
		cp := *v
		cp.Places = append([]primitive.ObjectID{}, v.Places...)
		savedUsers[k] = &cp
	}
	savedPlaces := map[string]*models.Place{}
	for k, v := range t.s.places {
		cp := *v
		savedPlaces[k] = &cp
	}

	if err := fn(ctx); err != nil {
		t.s.users = savedUsers
		t.s.places = savedPlaces
		t.aborted = true
		return err
	}
	return nil
}

type fakeFiles struct {
	removed []string
	fail    bool
}

func (f *fakeFiles) Remove(_ context.Context, key string) error {
	if f.fail {
		return errors.New("object store unavailable")
	}
	f.removed = append(f.removed, key)
	return nil
}

func newTestService(fs *fakeStore) (*Service, *fakeTx, *fakeFiles) {
	tx := &fakeTx{s: fs}
	ff := &fakeFiles{}
	return NewService(fs, fs, tx, ff, zerolog.Nop()), tx, ff
}

func apiStatus(t *testing.T, err error) int {
	t.Helper()
	var apiErr *httperr.Error
	require.ErrorAs(t, err, &apiErr)
	return apiErr.Status
}

func TestCreateLinked(t *testing.T) {
	fs := newFakeStore()
	user := fs.addUser("a")
	svc, _, _ := newTestService(fs)

	req := models.CreatePlaceRequest{
		Title:       "Empire State Building",
		Description: "Famous sky scraper",
		Address:     "20 W 34th St, New York",
		Location:    &models.Location{Lat: 40.748, Lng: -73.985},
	}

	place, err := svc.CreateLinked(context.Background(), user.ID.Hex(), req, "img.png")
	require.NoError(t, err)
	require.False(t, place.ID.IsZero())

	// Both sides of the link exist.
	assert.Equal(t, user.ID, place.Creator)
	stored := fs.users[user.ID.Hex()]
	assert.Contains(t, stored.Places, place.ID)
	assert.Contains(t, fs.places, place.ID.Hex())
	assert.Equal(t, 40.748, fs.places[place.ID.Hex()].Location.Lat)
}

func TestCreateLinkedUnknownUser(t *testing.T) {
	fs := newFakeStore()
	svc, _, _ := newTestService(fs)

	_, err := svc.CreateLinked(context.Background(), primitive.NewObjectID().Hex(), models.CreatePlaceRequest{
		Title: "t", Description: "desc five", Address: "a",
	}, "")
	assert.Equal(t, http.StatusNotFound, apiStatus(t, err))
	assert.Empty(t, fs.places)
}

func TestCreateLinkedAbortsOnSecondWriteFailure(t *testing.T) {
	fs := newFakeStore()
	user := fs.addUser("a")
	fs.failAddPlace = true
	svc, tx, _ := newTestService(fs)

	_, err := svc.CreateLinked(context.Background(), user.ID.Hex(), models.CreatePlaceRequest{
		Title: "t", Description: "desc five", Address: "a",
	}, "")
	assert.Equal(t, http.StatusInternalServerError, apiStatus(t, err))

	// The aborted transaction left neither write observable.
	assert.True(t, tx.aborted)
	assert.Empty(t, fs.places)
	assert.Empty(t, fs.users[user.ID.Hex()].Places)
}

func TestDeleteLinked(t *testing.T) {
	fs := newFakeStore()
	user := fs.addUser("a")
	place := fs.addPlace(user, "img.png")
	svc, _, ff := newTestService(fs)

	err := svc.DeleteLinked(context.Background(), place.ID.Hex(), user.ID.Hex())
	require.NoError(t, err)

	assert.NotContains(t, fs.places, place.ID.Hex())
	assert.NotContains(t, fs.users[user.ID.Hex()].Places, place.ID)
	assert.Equal(t, []string{"img.png"}, ff.removed)
}

func TestDeleteLinkedForbiddenBeforeMutation(t *testing.T) {
	fs := newFakeStore()
	owner := fs.addUser("owner")
	other := fs.addUser("other")
	place := fs.addPlace(owner, "img.png")
	svc, tx, ff := newTestService(fs)

	err := svc.DeleteLinked(context.Background(), place.ID.Hex(), other.ID.Hex())
	assert.Equal(t, http.StatusForbidden, apiStatus(t, err))

	// Nothing was touched: no delete attempt, no transaction, no cleanup.
	assert.Zero(t, fs.deleteCalls)
	assert.False(t, tx.aborted)
	assert.Contains(t, fs.places, place.ID.Hex())
	assert.Contains(t, fs.users[owner.ID.Hex()].Places, place.ID)
	assert.Empty(t, ff.removed)
}

func TestDeleteLinkedNotFound(t *testing.T) {
	fs := newFakeStore()
	user := fs.addUser("a")
	svc, _, _ := newTestService(fs)

	err := svc.DeleteLinked(context.Background(), primitive.NewObjectID().Hex(), user.ID.Hex())
	assert.Equal(t, http.StatusNotFound, apiStatus(t, err))
}

func TestDeleteLinkedAbortsOnSecondWriteFailure(t *testing.T) {
	fs := newFakeStore()
	user := fs.addUser("a")
	place := fs.addPlace(user, "")
	fs.failRemovePlace = true
	svc, tx, _ := newTestService(fs)

	err := svc.DeleteLinked(context.Background(), place.ID.Hex(), user.ID.Hex())
	assert.Equal(t, http.StatusInternalServerError, apiStatus(t, err))

	// Rolled back: the place must not vanish while the user still lists it.
	assert.True(t, tx.aborted)
	assert.Contains(t, fs.places, place.ID.Hex())
	assert.Contains(t, fs.users[user.ID.Hex()].Places, place.ID)
}

func TestDeleteLinkedImageCleanupFailureIsNotFatal(t *testing.T) {
	fs := newFakeStore()
	user := fs.addUser("a")
	place := fs.addPlace(user, "img.png")
	svc, _, ff := newTestService(fs)
	ff.fail = true

	err := svc.DeleteLinked(context.Background(), place.ID.Hex(), user.ID.Hex())
	require.NoError(t, err)
	assert.NotContains(t, fs.places, place.ID.Hex())
}

func TestUpdate(t *testing.T) {
	fs := newFakeStore()
	user := fs.addUser("a")
	place := fs.addPlace(user, "")
	svc, _, _ := newTestService(fs)

	updated, err := svc.Update(context.Background(), place.ID.Hex(), user.ID.Hex(), models.UpdatePlaceRequest{
		Title:       "New title",
		Description: "New description",
	})
	require.NoError(t, err)
	assert.Equal(t, "New title", updated.Title)
	assert.Equal(t, "New title", fs.places[place.ID.Hex()].Title)
	assert.Equal(t, "New description", fs.places[place.ID.Hex()].Description)
}

func TestUpdateForbidden(t *testing.T) {
	fs := newFakeStore()
	owner := fs.addUser("owner")
	other := fs.addUser("other")
	place := fs.addPlace(owner, "")
	svc, _, _ := newTestService(fs)

	_, err := svc.Update(context.Background(), place.ID.Hex(), other.ID.Hex(), models.UpdatePlaceRequest{
		Title: "New title", Description: "New description",
	})
	assert.Equal(t, http.StatusForbidden, apiStatus(t, err))
	assert.Equal(t, "Empire State Building", fs.places[place.ID.Hex()].Title)
}

func TestUpdateNotFound(t *testing.T) {
	fs := newFakeStore()
	user := fs.addUser("a")
	svc, _, _ := newTestService(fs)

	_, err := svc.Update(context.Background(), primitive.NewObjectID().Hex(), user.ID.Hex(), models.UpdatePlaceRequest{
		Title: "t", Description: "desc five",
	})
	assert.Equal(t, http.StatusNotFound, apiStatus(t, err))
}

func TestListByCreatorEmpty(t *testing.T) {
	fs := newFakeStore()
	user := fs.addUser("a")
	svc, _, _ := newTestService(fs)

	places, err := svc.ListByCreator(context.Background(), user.ID.Hex())
	require.NoError(t, err)
	assert.NotNil(t, places)
	assert.Empty(t, places)
}
