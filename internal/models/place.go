package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Location is a lat/lng coordinate pair.
type Location struct {
	Lat float64 `json:"lat" bson:"lat"`
	Lng float64 `json:"lng" bson:"lng"`
}

// Place is a single place record stored in the places collection.
// Creator always references an existing user, and that user's Places list
// contains this place's id for as long as the place exists.
type Place struct {
	ID          primitive.ObjectID `json:"id"          bson:"_id,omitempty"`
	Title       string             `json:"title"       bson:"title"`
	Description string             `json:"description" bson:"description"`
	Address     string             `json:"address"     bson:"address"`
	Location    Location           `json:"location"    bson:"location"`
	Image       string             `json:"image"       bson:"image"`
	Creator     primitive.ObjectID `json:"creator"     bson:"creator"`
	CreatedAt   time.Time          `json:"created_at"  bson:"created_at"`
}

// CreatePlaceRequest is the body for POST /places (JSON or multipart fields).
type CreatePlaceRequest struct {
	Title       string    `json:"title"       validate:"required"`
	Description string    `json:"description" validate:"required,min=5"`
	Address     string    `json:"address"     validate:"required"`
	Location    *Location `json:"location"`
}

// UpdatePlaceRequest is the body for PATCH /places/{id}.
type UpdatePlaceRequest struct {
	Title       string `json:"title"       validate:"required"`
	Description string `json:"description" validate:"required,min=5"`
}
