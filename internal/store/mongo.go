package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/adube/placeshare/internal/models"
)

// Sentinel errors callers match with errors.Is to translate store failures
// into the API error taxonomy.
var (
	ErrNotFound     = errors.New("store: not found")
	ErrDuplicateKey = errors.New("store: duplicate key")
)

// MongoStore handles user and place CRUD against MongoDB. Both collections
// live in the same database so linked writes can share one transaction.
type MongoStore struct {
	db     *mongo.Database
	users  *mongo.Collection
	places *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		db:     db,
		users:  db.Collection("users"),
		places: db.Collection("places"),
	}
}

// EnsureIndexes creates the unique email index. Duplicate-email races that
// slip past the application-level check fail here with a duplicate key error.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create email index: %w", err)
	}
	return nil
}

// WithTransaction runs fn inside a multi-document transaction. The context
// passed to fn carries the session; any store call made with it joins the
// transaction. If fn returns an error the transaction is aborted and neither
// write is observable.
func (s *MongoStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := s.db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// ── Users ────────────────────────────────────────────────────

func (s *MongoStore) InsertUser(ctx context.Context, u *models.User) error {
	u.CreatedAt = time.Now()
	if u.Places == nil {
		u.Places = []primitive.ObjectID{}
	}
	res, err := s.users.InsertOne(ctx, u)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("insert user: %w", ErrDuplicateKey)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	u.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (s *MongoStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("user %q: %w", id, ErrNotFound)
	}
	var u models.User
	if err := s.users.FindOne(ctx, bson.M{"_id": oid}).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("user %q: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (s *MongoStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.users.FindOne(ctx, bson.M{"email": email}).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("user %q: %w", email, ErrNotFound)
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return &u, nil
}

func (s *MongoStore) ListUsers(ctx context.Context) ([]models.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.users.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer cur.Close(ctx)

	var users []models.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// AddUserPlace appends placeID to the user's places list.
func (s *MongoStore) AddUserPlace(ctx context.Context, userID, placeID string) error {
	uid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return fmt.Errorf("user %q: %w", userID, ErrNotFound)
	}
	pid, err := primitive.ObjectIDFromHex(placeID)
	if err != nil {
		return fmt.Errorf("place %q: %w", placeID, ErrNotFound)
	}
	res, err := s.users.UpdateOne(ctx, bson.M{"_id": uid}, bson.M{"$push": bson.M{"places": pid}})
	if err != nil {
		return fmt.Errorf("add user place: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("user %q: %w", userID, ErrNotFound)
	}
	return nil
}

// RemoveUserPlace removes placeID from the user's places list.
func (s *MongoStore) RemoveUserPlace(ctx context.Context, userID, placeID string) error {
	uid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return fmt.Errorf("user %q: %w", userID, ErrNotFound)
	}
	pid, err := primitive.ObjectIDFromHex(placeID)
	if err != nil {
		return fmt.Errorf("place %q: %w", placeID, ErrNotFound)
	}
	res, err := s.users.UpdateOne(ctx, bson.M{"_id": uid}, bson.M{"$pull": bson.M{"places": pid}})
	if err != nil {
		return fmt.Errorf("remove user place: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("user %q: %w", userID, ErrNotFound)
	}
	return nil
}

// ── Places ───────────────────────────────────────────────────

func (s *MongoStore) InsertPlace(ctx context.Context, p *models.Place) error {
	p.CreatedAt = time.Now()
	res, err := s.places.InsertOne(ctx, p)
	if err != nil {
		return fmt.Errorf("insert place: %w", err)
	}
	p.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (s *MongoStore) GetPlaceByID(ctx context.Context, id string) (*models.Place, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("place %q: %w", id, ErrNotFound)
	}
	var p models.Place
	if err := s.places.FindOne(ctx, bson.M{"_id": oid}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("place %q: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get place: %w", err)
	}
	return &p, nil
}

func (s *MongoStore) ListPlacesByCreator(ctx context.Context, userID string) ([]models.Place, error) {
	uid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		// A malformed id cannot own places.
		return []models.Place{}, nil
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.places.Find(ctx, bson.M{"creator": uid}, opts)
	if err != nil {
		return nil, fmt.Errorf("list places: %w", err)
	}
	defer cur.Close(ctx)

	var places []models.Place
	if err := cur.All(ctx, &places); err != nil {
		return nil, fmt.Errorf("list places: %w", err)
	}
	return places, nil
}

// UpdatePlace persists the place's mutable fields.
func (s *MongoStore) UpdatePlace(ctx context.Context, p *models.Place) error {
	res, err := s.places.UpdateOne(ctx, bson.M{"_id": p.ID}, bson.M{"$set": bson.M{
		"title":       p.Title,
		"description": p.Description,
	}})
	if err != nil {
		return fmt.Errorf("update place: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("place %q: %w", p.ID.Hex(), ErrNotFound)
	}
	return nil
}

func (s *MongoStore) DeletePlace(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("place %q: %w", id, ErrNotFound)
	}
	res, err := s.places.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete place: %w", err)
	}
	if res.DeletedCount == 0 {
		// Lost a race with a concurrent delete.
		return fmt.Errorf("place %q: %w", id, ErrNotFound)
	}
	return nil
}
