package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/co-razer/docs-backend/internal/database"
	"github.com/co-razer/docs-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const DefaultNotificationLimit = 20

type NotificationListOptions struct {
	Limit      int64
	Skip       int64
	UnreadOnly bool
}

type NewNotification struct {
	UserID  primitive.ObjectID
	Type    string
	Message string
	Data    map[string]interface{}
}

// Publisher delivers a freshly created notification to live connections.
type Publisher interface {
	Publish(ctx context.Context, event NotificationEvent) error
}

// NotificationStore manages per-user notifications.
type NotificationStore struct {
	coll      *mongo.Collection
	publisher Publisher
	logger    *slog.Logger
}

func NewNotificationStore(db *mongo.Database, publisher Publisher, logger *slog.Logger) *NotificationStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationStore{
		coll:      db.Collection(database.NotificationsCollection),
		publisher: publisher,
		logger:    logger,
	}
}

// Create stores an unread notification and pushes it to the recipient's live
// connections. Push failures never fail the write.
func (s *NotificationStore) Create(ctx context.Context, in NewNotification) (*models.Notification, error) {
	data := in.Data
	if data == nil {
		data = map[string]interface{}{}
	}
	n := &models.Notification{
		ID:        primitive.NewObjectID(),
		UserID:    in.UserID,
		Type:      in.Type,
		Message:   in.Message,
		Data:      data,
		Read:      false,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.coll.InsertOne(ctx, n); err != nil {
		return nil, fmt.Errorf("insert notification: %w", err)
	}

	if s.publisher != nil {
		event := NotificationEvent{Type: EventTypeNotification, UserID: n.UserID.Hex(), Notification: n}
		if count, err := s.GetUnreadCount(ctx, n.UserID); err == nil {
			event.UnreadCount = count
		}
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Warn("failed to publish notification", "user_id", n.UserID.Hex(), "error", err)
		}
	}
	return n, nil
}

func (s *NotificationStore) GetByUser(ctx context.Context, userID primitive.ObjectID, opts NotificationListOptions) ([]models.Notification, error) {
	filter := bson.M{"user_id": userID}
	if opts.UnreadOnly {
		filter["read"] = false
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultNotificationLimit
	}
	skip := opts.Skip
	if skip < 0 {
		skip = 0
	}
	findOpts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit)

	cursor, err := s.coll.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("find notifications: %w", err)
	}
	defer cursor.Close(ctx)

	notifications := []models.Notification{}
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, fmt.Errorf("decode notifications: %w", err)
	}
	return notifications, nil
}

func (s *NotificationStore) GetUnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{"user_id": userID, "read": false})
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return n, nil
}

// MarkAsRead returns nil when the notification is missing or not owned by userID.
func (s *NotificationStore) MarkAsRead(ctx context.Context, id string, userID primitive.ObjectID) (*models.Notification, error) {
	oid, ok := parseObjectID(id)
	if !ok {
		return nil, nil
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var n models.Notification
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": oid, "user_id": userID},
		bson.M{"$set": bson.M{"read": true}},
		opts,
	).Decode(&n)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mark notification read: %w", err)
	}
	return &n, nil
}

// MarkAllAsRead returns the number of notifications that changed.
func (s *NotificationStore) MarkAllAsRead(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	res, err := s.coll.UpdateMany(ctx,
		bson.M{"user_id": userID, "read": false},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	return res.ModifiedCount, nil
}

func (s *NotificationStore) Delete(ctx context.Context, id string, userID primitive.ObjectID) (bool, error) {
	oid, ok := parseObjectID(id)
	if !ok {
		return false, nil
	}
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": oid, "user_id": userID})
	if err != nil {
		return false, fmt.Errorf("delete notification: %w", err)
	}
	return res.DeletedCount > 0, nil
}

func (s *NotificationStore) DeleteAll(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	res, err := s.coll.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, fmt.Errorf("delete notifications: %w", err)
	}
	return res.DeletedCount, nil
}
