package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Identity is the authenticated principal attached to a request.
type Identity struct {
	UserID   primitive.ObjectID `bson:"user_id" json:"userId"`
	Username string             `bson:"username" json:"username"`
	Email    string             `bson:"email" json:"email"`
}

// Anonymous reports whether the identity carries no user.
func (i Identity) Anonymous() bool {
	return i.UserID.IsZero()
}

// Session is a server-side login record. The cookie only carries a signed
// reference to its ID.
type Session struct {
	ID        string `bson:"_id"`
	Identity  `bson:",inline"`
	CreatedAt time.Time `bson:"created_at"`
	TouchedAt time.Time `bson:"touched_at"`
	ExpiresAt time.Time `bson:"expires_at"`
}
