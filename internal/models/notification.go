package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const NotificationTypeCommentReply = "comment_reply"

type Notification struct {
	ID        primitive.ObjectID     `bson:"_id,omitempty" json:"_id"`
	UserID    primitive.ObjectID     `bson:"user_id" json:"userId"`
	Type      string                 `bson:"type" json:"type"`
	Message   string                 `bson:"message" json:"message"`
	Data      map[string]interface{} `bson:"data" json:"data"`
	Read      bool                   `bson:"read" json:"read"`
	CreatedAt time.Time              `bson:"created_at" json:"createdAt"`
}
