package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Comment is a top-level comment on a doc page. Replies are embedded and
// username/profile picture are snapshots taken at write time.
type Comment struct {
	ID                 primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	UserID             primitive.ObjectID   `bson:"user_id" json:"userId"`
	Username           string               `bson:"username" json:"username"`
	UserProfilePicture *string              `bson:"user_profile_picture" json:"userProfilePicture"`
	PageURL            string               `bson:"page_url" json:"pageUrl"`
	Content            string               `bson:"content" json:"content"`
	CreatedAt          time.Time            `bson:"created_at" json:"createdAt"`
	UpdatedAt          time.Time            `bson:"updated_at" json:"updatedAt"`
	Likes              []primitive.ObjectID `bson:"likes" json:"likes"`
	Replies            []Reply              `bson:"replies" json:"replies"`
}

type Reply struct {
	ID                 primitive.ObjectID `bson:"_id" json:"_id"`
	UserID             primitive.ObjectID `bson:"user_id" json:"userId"`
	Username           string             `bson:"username" json:"username"`
	UserProfilePicture *string            `bson:"user_profile_picture" json:"userProfilePicture"`
	Content            string             `bson:"content" json:"content"`
	CreatedAt          time.Time          `bson:"created_at" json:"createdAt"`
}

// LikedBy reports whether userID is in the like set.
func (c *Comment) LikedBy(userID primitive.ObjectID) bool {
	for _, id := range c.Likes {
		if id == userID {
			return true
		}
	}
	return false
}
