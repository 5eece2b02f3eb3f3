package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/co-razer/docs-backend/internal/database"
	"github.com/co-razer/docs-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	DefaultCommentLimit       = 50
	DefaultRecentCommentLimit = 10
	MaxCommentLength          = 2000
	MaxReplyLength            = 1000
)

// sortable comment fields, keyed by their API name
var commentSortFields = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

type ListOptions struct {
	Limit     int64
	Skip      int64
	SortBy    string
	SortOrder int // 1 ascending, -1 descending
}

type NewComment struct {
	UserID             primitive.ObjectID
	Username           string
	UserProfilePicture *string
	PageURL            string
	Content            string
}

type NewReply struct {
	UserID             primitive.ObjectID
	Username           string
	UserProfilePicture *string
	Content            string
}

type LikeResult struct {
	Liked bool `json:"liked"`
}

// CommentStore manages comments with embedded replies and likes.
type CommentStore struct {
	coll *mongo.Collection
}

func NewCommentStore(db *mongo.Database) *CommentStore {
	return &CommentStore{coll: db.Collection(database.CommentsCollection)}
}

func (s *CommentStore) Create(ctx context.Context, in NewComment) (*models.Comment, error) {
	now := time.Now().UTC()
	comment := &models.Comment{
		ID:                 primitive.NewObjectID(),
		UserID:             in.UserID,
		Username:           in.Username,
		UserProfilePicture: in.UserProfilePicture,
		PageURL:            in.PageURL,
		Content:            in.Content,
		CreatedAt:          now,
		UpdatedAt:          now,
		Likes:              []primitive.ObjectID{},
		Replies:            []models.Reply{},
	}
	if _, err := s.coll.InsertOne(ctx, comment); err != nil {
		return nil, fmt.Errorf("insert comment: %w", err)
	}
	return comment, nil
}

// GetByPage lists a page's comments, newest first unless opts says otherwise.
func (s *CommentStore) GetByPage(ctx context.Context, pageURL string, opts ListOptions) ([]models.Comment, error) {
	return s.find(ctx, bson.M{"page_url": pageURL}, listFindOptions(opts, DefaultCommentLimit))
}

// FindByID returns nil for a malformed or unknown id.
func (s *CommentStore) FindByID(ctx context.Context, id string) (*models.Comment, error) {
	oid, ok := parseObjectID(id)
	if !ok {
		return nil, nil
	}
	var comment models.Comment
	err := s.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&comment)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find comment: %w", err)
	}
	return &comment, nil
}

// Update edits the content if userID owns the comment. Returns nil when the
// comment is missing or owned by someone else.
func (s *CommentStore) Update(ctx context.Context, id string, userID primitive.ObjectID, content string) (*models.Comment, error) {
	oid, ok := parseObjectID(id)
	if !ok {
		return nil, nil
	}
	return s.findOneAndUpdate(ctx,
		bson.M{"_id": oid, "user_id": userID},
		bson.M{"$set": bson.M{"content": content, "updated_at": time.Now().UTC()}},
	)
}

// Delete removes the comment if userID owns it.
func (s *CommentStore) Delete(ctx context.Context, id string, userID primitive.ObjectID) (bool, error) {
	oid, ok := parseObjectID(id)
	if !ok {
		return false, nil
	}
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": oid, "user_id": userID})
	if err != nil {
		return false, fmt.Errorf("delete comment: %w", err)
	}
	return res.DeletedCount > 0, nil
}

// AddReply appends a reply atomically. Any authenticated user may reply.
func (s *CommentStore) AddReply(ctx context.Context, id string, in NewReply) (*models.Comment, error) {
	oid, ok := parseObjectID(id)
	if !ok {
		return nil, nil
	}
	now := time.Now().UTC()
	reply := models.Reply{
		ID:                 primitive.NewObjectID(),
		UserID:             in.UserID,
		Username:           in.Username,
		UserProfilePicture: in.UserProfilePicture,
		Content:            in.Content,
		CreatedAt:          now,
	}
	return s.findOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{
			"$push": bson.M{"replies": reply},
			"$set":  bson.M{"updated_at": now},
		},
	)
}

// ToggleLike flips userID's membership in the like set. Returns nil when the
// comment does not exist.
//
// The membership check and the write are two operations, so two concurrent
// toggles by the same user may both act on the same observed state. The add
// uses $addToSet, so the set never holds a duplicate.
func (s *CommentStore) ToggleLike(ctx context.Context, id string, userID primitive.ObjectID) (*LikeResult, error) {
	comment, err := s.FindByID(ctx, id)
	if err != nil || comment == nil {
		return nil, err
	}

	liked := !comment.LikedBy(userID)
	update := bson.M{"$pull": bson.M{"likes": userID}}
	if liked {
		update = bson.M{"$addToSet": bson.M{"likes": userID}}
	}

	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": comment.ID}, update)
	if err != nil {
		return nil, fmt.Errorf("toggle like: %w", err)
	}
	if res.MatchedCount == 0 {
		return nil, nil
	}
	return &LikeResult{Liked: liked}, nil
}

func (s *CommentStore) GetByUser(ctx context.Context, userID primitive.ObjectID, opts ListOptions) ([]models.Comment, error) {
	opts.SortBy, opts.SortOrder = "createdAt", -1
	return s.find(ctx, bson.M{"user_id": userID}, listFindOptions(opts, DefaultCommentLimit))
}

func (s *CommentStore) CountByPage(ctx context.Context, pageURL string) (int64, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{"page_url": pageURL})
	if err != nil {
		return 0, fmt.Errorf("count comments: %w", err)
	}
	return n, nil
}

// GetRecent returns the newest comments across all pages.
func (s *CommentStore) GetRecent(ctx context.Context, limit int64) ([]models.Comment, error) {
	opts := ListOptions{Limit: limit, SortBy: "createdAt", SortOrder: -1}
	return s.find(ctx, bson.M{}, listFindOptions(opts, DefaultRecentCommentLimit))
}

func (s *CommentStore) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Comment, error) {
	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find comments: %w", err)
	}
	defer cursor.Close(ctx)

	comments := []models.Comment{}
	if err := cursor.All(ctx, &comments); err != nil {
		return nil, fmt.Errorf("decode comments: %w", err)
	}
	return comments, nil
}

func (s *CommentStore) findOneAndUpdate(ctx context.Context, filter, update bson.M) (*models.Comment, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var comment models.Comment
	err := s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&comment)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update comment: %w", err)
	}
	return &comment, nil
}

func listFindOptions(opts ListOptions, defaultLimit int64) *options.FindOptions {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	skip := opts.Skip
	if skip < 0 {
		skip = 0
	}
	field, ok := commentSortFields[opts.SortBy]
	if !ok {
		field = "created_at"
	}
	order := -1
	if opts.SortOrder == 1 {
		order = 1
	}
	return options.Find().
		SetSort(bson.D{{Key: field, Value: order}, {Key: "_id", Value: order}}).
		SetSkip(skip).
		SetLimit(limit)
}
