package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/co-razer/docs-backend/internal/database"
	"github.com/co-razer/docs-backend/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	// SessionDuration is 7 days
	SessionDuration = 7 * 24 * time.Hour
	// SessionTouchAfter limits how often an active session's expiry is pushed forward
	SessionTouchAfter = 24 * time.Hour

	sessionIssuer = "co-razer"
)

// SessionStore keeps login sessions in the sessions collection. The cookie
// value is an HS256 token whose jti names the session document.
type SessionStore struct {
	coll   *mongo.Collection
	secret []byte
	now    func() time.Time
}

func NewSessionStore(db *mongo.Database, secret string) *SessionStore {
	return &SessionStore{
		coll:   db.Collection(database.SessionsCollection),
		secret: []byte(secret),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create starts a session for identity and returns the signed cookie value.
func (s *SessionStore) Create(ctx context.Context, identity models.Identity) (string, *models.Session, error) {
	id, err := newSessionID()
	if err != nil {
		return "", nil, err
	}
	now := s.now()
	sess := &models.Session{
		ID:        id,
		Identity:  identity,
		CreatedAt: now,
		TouchedAt: now,
		ExpiresAt: now.Add(SessionDuration),
	}
	if _, err := s.coll.InsertOne(ctx, sess); err != nil {
		return "", nil, fmt.Errorf("insert session: %w", err)
	}
	token, err := s.sign(id, now)
	if err != nil {
		return "", nil, err
	}
	return token, sess, nil
}

// Resolve returns the live session behind a cookie value, or nil for a
// missing, forged or expired one. touched is true when the expiry was slid
// forward and the cookie should be re-issued.
func (s *SessionStore) Resolve(ctx context.Context, token string) (sess *models.Session, touched bool, err error) {
	id, ok := s.parse(token)
	if !ok {
		return nil, false, nil
	}

	now := s.now()
	var found models.Session
	err = s.coll.FindOne(ctx, bson.M{"_id": id, "expires_at": bson.M{"$gt": now}}).Decode(&found)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("find session: %w", err)
	}

	if now.Sub(found.TouchedAt) < SessionTouchAfter {
		return &found, false, nil
	}

	found.TouchedAt = now
	found.ExpiresAt = now.Add(SessionDuration)
	_, err = s.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"touched_at": found.TouchedAt,
		"expires_at": found.ExpiresAt,
	}})
	if err != nil {
		return nil, false, fmt.Errorf("touch session: %w", err)
	}
	return &found, true, nil
}

// UpdateIdentity refreshes the cached username/email after a profile edit.
func (s *SessionStore) UpdateIdentity(ctx context.Context, sessionID string, identity models.Identity) error {
	_, err := s.coll.UpdateOne(ctx, bson.M{"_id": sessionID}, bson.M{"$set": bson.M{
		"user_id":  identity.UserID,
		"username": identity.Username,
		"email":    identity.Email,
	}})
	if err != nil {
		return fmt.Errorf("update session identity: %w", err)
	}
	return nil
}

// Destroy removes the session behind a cookie value. Unknown or forged
// values are ignored.
func (s *SessionStore) Destroy(ctx context.Context, token string) error {
	id, ok := s.parse(token)
	if !ok {
		return nil
	}
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DestroyOthers ends every session of the user except keepID (e.g. after a
// password change).
func (s *SessionStore) DestroyOthers(ctx context.Context, identity models.Identity, keepID string) (int64, error) {
	res, err := s.coll.DeleteMany(ctx, bson.M{"user_id": identity.UserID, "_id": bson.M{"$ne": keepID}})
	if err != nil {
		return 0, fmt.Errorf("delete sessions: %w", err)
	}
	return res.DeletedCount, nil
}

func (s *SessionStore) sign(id string, issuedAt time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		ID:       id,
		Issuer:   sessionIssuer,
		IssuedAt: jwt.NewNumericDate(issuedAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return token, nil
}

func (s *SessionStore) parse(token string) (string, bool) {
	if token == "" {
		return "", false
	}
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(sessionIssuer))
	if err != nil || !parsed.Valid || claims.ID == "" {
		return "", false
	}
	return claims.ID, true
}

func newSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
