package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a registered account stored in the users collection. Places holds
// the ids of every Place whose creator is this user; the two sides of that
// link are only ever mutated together, inside one transaction.
type User struct {
	ID        primitive.ObjectID   `json:"id"         bson:"_id,omitempty"`
	Name      string               `json:"name"       bson:"name"`
	Email     string               `json:"email"      bson:"email"`
	Password  string               `json:"-"          bson:"password"` // never serialize
	Image     string               `json:"image"      bson:"image"`
	Places    []primitive.ObjectID `json:"places"     bson:"places"`
	CreatedAt time.Time            `json:"created_at" bson:"created_at"`
}

// SignupRequest is the body for POST /users/signup (JSON or multipart fields).
type SignupRequest struct {
	Name     string `json:"name"     validate:"required"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginRequest is the body for POST /users/login.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}
