package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names shared by the stores.
const (
	UsersCollection         = "users"
	CommentsCollection      = "comments"
	NotificationsCollection = "notifications"
	SessionsCollection      = "sessions"
)

// Mongo owns the process-wide client. It connects lazily on the first Get and
// can be closed and reopened.
type Mongo struct {
	uri    string
	dbName string
	logger *slog.Logger

	mu     sync.Mutex
	client *mongo.Client
	db     *mongo.Database
}

func NewMongo(uri, dbName string, logger *slog.Logger) *Mongo {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mongo{uri: uri, dbName: dbName, logger: logger}
}

// Get returns the cached database handle, connecting first if needed.
func (m *Mongo) Get(ctx context.Context) (*mongo.Database, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.db != nil {
		return m.db, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(m.uri)
	clientOptions.SetServerSelectionTimeout(10 * time.Second)

	m.logger.Info("connecting to MongoDB", "uri", maskURI(m.uri), "db", m.dbName)
	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 10*time.Second)
	defer pingCancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	m.client = client
	m.db = client.Database(m.dbName)
	m.logger.Info("✅ Connected to MongoDB")
	return m.db, nil
}

// Close disconnects and clears the cached handle. Safe to call when not connected.
func (m *Mongo) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err := m.client.Disconnect(ctx)
	m.client = nil
	m.db = nil
	if err != nil && !errors.Is(err, mongo.ErrClientDisconnected) {
		return fmt.Errorf("mongo disconnect: %w", err)
	}
	m.logger.Info("MongoDB connection closed")
	return nil
}

// maskURI hides the password portion of a connection string for logging.
func maskURI(uri string) string {
	at := strings.LastIndex(uri, "@")
	if at == -1 {
		return uri
	}
	scheme := strings.Index(uri, "://")
	if scheme == -1 || scheme+3 > at {
		return uri
	}
	creds := uri[scheme+3 : at]
	colon := strings.Index(creds, ":")
	if colon == -1 {
		return uri
	}
	return uri[:scheme+3] + creds[:colon] + ":***" + uri[at:]
}
