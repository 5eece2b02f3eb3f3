package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updatedAt"`

	Username string `bson:"username" json:"username"` // stored lowercase
	Email    string `bson:"email" json:"email"`       // stored lowercase
	Password string `bson:"password" json:"-"`        // Don't return password in JSON

	FullName       string     `bson:"full_name" json:"fullName"`
	Bio            string     `bson:"bio" json:"bio"`
	ProfilePicture *string    `bson:"profile_picture" json:"profilePicture"`
	LastLogin      *time.Time `bson:"last_login" json:"lastLogin"`
}

// Identity returns the session snapshot for the user.
func (u *User) Identity() Identity {
	return Identity{UserID: u.ID, Username: u.Username, Email: u.Email}
}
