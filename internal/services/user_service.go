package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/co-razer/docs-backend/internal/apperr"
	"github.com/co-razer/docs-backend/internal/database"
	"github.com/co-razer/docs-backend/internal/models"
	"github.com/co-razer/docs-backend/pkg/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type CreateUserInput struct {
	Username string
	Email    string
	Password string
	FullName string
}

// ProfilePatch lists the only fields a user may edit on their profile. Nil
// fields are left untouched.
type ProfilePatch struct {
	FullName *string `json:"fullName"`
	Email    *string `json:"email"`
	Username *string `json:"username"`
	Bio      *string `json:"bio"`
}

// UserStore is the user directory backed by the users collection.
type UserStore struct {
	coll     *mongo.Collection
	pictures PictureStorage
	logger   *slog.Logger
}

func NewUserStore(db *mongo.Database, pictures PictureStorage, logger *slog.Logger) *UserStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserStore{
		coll:     db.Collection(database.UsersCollection),
		pictures: pictures,
		logger:   logger,
	}
}

// Create registers a new user with a bcrypt-hashed password. Username and
// email are stored lowercase; a taken value yields an apperr conflict naming
// the field.
func (s *UserStore) Create(ctx context.Context, in CreateUserInput) (*models.User, error) {
	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:        primitive.NewObjectID(),
		CreatedAt: now,
		UpdatedAt: now,
		Username:  utils.NormalizeIdentifier(in.Username),
		Email:     utils.NormalizeIdentifier(in.Email),
		Password:  hash,
		FullName:  strings.TrimSpace(in.FullName),
	}

	if _, err := s.coll.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, apperr.Conflict(duplicateField(err))
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"email": utils.NormalizeIdentifier(email)})
}

func (s *UserStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"username": utils.NormalizeIdentifier(username)})
}

// FindByID returns nil for a malformed or unknown id.
func (s *UserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	oid, ok := parseObjectID(id)
	if !ok {
		return nil, nil
	}
	return s.findOne(ctx, bson.M{"_id": oid})
}

// FindByEmailOrUsername matches identifier against either field, used by login.
func (s *UserStore) FindByEmailOrUsername(ctx context.Context, identifier string) (*models.User, error) {
	id := utils.NormalizeIdentifier(identifier)
	return s.findOne(ctx, bson.M{"$or": []bson.M{{"email": id}, {"username": id}}})
}

func (s *UserStore) VerifyPassword(plain, hash string) bool {
	ok, err := utils.VerifyPassword(plain, hash)
	if err != nil {
		s.logger.Warn("password hash could not be checked", "error", err)
		return false
	}
	return ok
}

func (s *UserStore) UpdateLastLogin(ctx context.Context, id string) error {
	oid, ok := parseObjectID(id)
	if !ok {
		return nil
	}
	now := time.Now().UTC()
	_, err := s.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"last_login": now, "updated_at": now}})
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

// UpdateProfile applies the whitelisted patch and returns the updated user,
// or nil when the user no longer exists.
func (s *UserStore) UpdateProfile(ctx context.Context, id string, patch ProfilePatch) (*models.User, error) {
	oid, ok := parseObjectID(id)
	if !ok {
		return nil, nil
	}

	set := bson.M{"updated_at": time.Now().UTC()}
	if patch.FullName != nil {
		set["full_name"] = strings.TrimSpace(*patch.FullName)
	}
	if patch.Bio != nil {
		set["bio"] = *patch.Bio
	}
	if patch.Email != nil {
		set["email"] = utils.NormalizeIdentifier(*patch.Email)
	}
	if patch.Username != nil {
		set["username"] = utils.NormalizeIdentifier(*patch.Username)
	}

	user, err := s.findOneAndSet(ctx, oid, set)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, apperr.Conflict(duplicateField(err))
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return user, nil
}

func (s *UserStore) ChangePassword(ctx context.Context, id, current, next string) error {
	user, err := s.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if user == nil {
		return apperr.NotFound("User not found")
	}
	if !s.VerifyPassword(current, user.Password) {
		return apperr.Auth("Current password is incorrect")
	}

	hash, err := utils.HashPassword(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	_, err = s.coll.UpdateOne(ctx, bson.M{"_id": user.ID}, bson.M{"$set": bson.M{
		"password":   hash,
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	return nil
}

// UpdateProfilePicture points the user at storedPath after removing the
// previous picture. Removal failures are logged and ignored.
func (s *UserStore) UpdateProfilePicture(ctx context.Context, id, storedPath string) (*models.User, error) {
	user, err := s.FindByID(ctx, id)
	if err != nil || user == nil {
		return nil, err
	}
	s.removePicture(ctx, user)

	updated, err := s.findOneAndSet(ctx, user.ID, bson.M{
		"profile_picture": storedPath,
		"updated_at":      time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("update profile picture: %w", err)
	}
	return updated, nil
}

// DeleteProfilePicture removes the stored picture and always nulls the field.
func (s *UserStore) DeleteProfilePicture(ctx context.Context, id string) (*models.User, error) {
	user, err := s.FindByID(ctx, id)
	if err != nil || user == nil {
		return nil, err
	}
	s.removePicture(ctx, user)

	updated, err := s.findOneAndSet(ctx, user.ID, bson.M{
		"profile_picture": nil,
		"updated_at":      time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("delete profile picture: %w", err)
	}
	return updated, nil
}

func (s *UserStore) Delete(ctx context.Context, id string) (bool, error) {
	oid, ok := parseObjectID(id)
	if !ok {
		return false, nil
	}
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return false, fmt.Errorf("delete user: %w", err)
	}
	return res.DeletedCount > 0, nil
}

func (s *UserStore) removePicture(ctx context.Context, user *models.User) {
	if user.ProfilePicture == nil || *user.ProfilePicture == "" || s.pictures == nil {
		return
	}
	if err := s.pictures.Remove(ctx, *user.ProfilePicture); err != nil {
		s.logger.Warn("failed to remove old profile picture",
			"user_id", user.ID.Hex(), "path", *user.ProfilePicture, "error", err)
	}
}

func (s *UserStore) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	err := s.coll.FindOne(ctx, filter).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

func (s *UserStore) findOneAndSet(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.User, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var user models.User
	err := s.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
