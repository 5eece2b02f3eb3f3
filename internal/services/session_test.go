package services

import (
	"context"
	"testing"
	"time"

	"github.com/co-razer/docs-backend/internal/database"
	"github.com/co-razer/docs-backend/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func testIdentity() models.Identity {
	return models.Identity{UserID: primitive.NewObjectID(), Username: "alice", Email: "alice@example.com"}
}

func TestSessionStoreCreateAndResolve(t *testing.T) {
	mt := newMockMongo(t)

	mt.Run("fresh session", func(mt *mtest.T) {
		store := NewSessionStore(mt.DB, "test-secret")
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		token, sess, err := store.Create(context.Background(), testIdentity())
		require.NoError(mt, err)
		assert.NotEmpty(mt, token)
		assert.WithinDuration(mt, sess.CreatedAt.Add(SessionDuration), sess.ExpiresAt, time.Second)

		stored := *sess
		stored.CreatedAt = stored.CreatedAt.Truncate(time.Millisecond)
		stored.TouchedAt = stored.TouchedAt.Truncate(time.Millisecond)
		stored.ExpiresAt = stored.ExpiresAt.Truncate(time.Millisecond)
		mt.AddMockResponses(cursorOf(mt, database.SessionsCollection, toDoc(mt, stored)))

		resolved, touched, err := store.Resolve(context.Background(), token)
		require.NoError(mt, err)
		require.NotNil(mt, resolved)
		assert.False(mt, touched)
		assert.Equal(mt, sess.ID, resolved.ID)
		assert.Equal(mt, "alice", resolved.Username)
	})

	mt.Run("slides expiry after touch interval", func(mt *mtest.T) {
		store := NewSessionStore(mt.DB, "test-secret")
		start := time.Now().UTC().Truncate(time.Millisecond)
		store.now = func() time.Time { return start }
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		token, sess, err := store.Create(context.Background(), testIdentity())
		require.NoError(mt, err)

		later := start.Add(SessionTouchAfter + time.Hour)
		store.now = func() time.Time { return later }
		mt.AddMockResponses(cursorOf(mt, database.SessionsCollection, toDoc(mt, *sess)), writeReply(1))

		resolved, touched, err := store.Resolve(context.Background(), token)
		require.NoError(mt, err)
		assert.True(mt, touched)
		assert.Equal(mt, later.Add(SessionDuration), resolved.ExpiresAt)
	})

	mt.Run("expired or missing session", func(mt *mtest.T) {
		store := NewSessionStore(mt.DB, "test-secret")
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		token, _, err := store.Create(context.Background(), testIdentity())
		require.NoError(mt, err)

		mt.AddMockResponses(cursorOf(mt, database.SessionsCollection))
		resolved, _, err := store.Resolve(context.Background(), token)
		require.NoError(mt, err)
		assert.Nil(mt, resolved)
	})
}

func TestSessionStoreRejectsForgedTokens(t *testing.T) {
	mt := newMockMongo(t)

	mt.Run("forged", func(mt *mtest.T) {
		store := NewSessionStore(mt.DB, "test-secret")

		forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			ID:     "someone-elses-session",
			Issuer: sessionIssuer,
		}).SignedString([]byte("other-secret"))
		require.NoError(mt, err)

		for _, token := range []string{"", "garbage", forged} {
			resolved, touched, err := store.Resolve(context.Background(), token)
			require.NoError(mt, err)
			assert.Nil(mt, resolved)
			assert.False(mt, touched)
		}
		assert.NoError(mt, store.Destroy(context.Background(), forged))
		assert.Empty(mt, mt.GetAllStartedEvents())
	})

	mt.Run("none algorithm", func(mt *mtest.T) {
		store := NewSessionStore(mt.DB, "test-secret")
		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{ID: "x", Issuer: sessionIssuer}).
			SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(mt, err)

		_, ok := store.parse(unsigned)
		assert.False(mt, ok)
	})
}

func TestSessionStoreDestroy(t *testing.T) {
	mt := newMockMongo(t)

	mt.Run("destroy and destroy others", func(mt *mtest.T) {
		store := NewSessionStore(mt.DB, "test-secret")
		id := testIdentity()
		mt.AddMockResponses(mtest.CreateSuccessResponse(), writeReply(1), writeReply(2))

		token, sess, err := store.Create(context.Background(), id)
		require.NoError(mt, err)
		require.NoError(mt, store.Destroy(context.Background(), token))

		n, err := store.DestroyOthers(context.Background(), id, sess.ID)
		require.NoError(mt, err)
		assert.EqualValues(mt, 2, n)
	})
}
