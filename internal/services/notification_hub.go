package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/co-razer/docs-backend/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

const (
	EventTypeNotification = "notification"
	EventTypeUnreadCount  = "unread_count"

	notificationChannelPrefix = "notifications:user:"
	subscriberBufferSize      = 16
)

var (
	pushConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "corazer_notification_push_connections",
		Help: "Number of open notification push connections",
	})
	pushDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "corazer_notification_push_dropped_total",
		Help: "Notification events dropped because a subscriber was not keeping up",
	})
)

// NotificationEvent is the payload published over Redis and written to WebSocket clients.
type NotificationEvent struct {
	Type         string               `json:"type"`
	UserID       string               `json:"userId"`
	Notification *models.Notification `json:"notification,omitempty"`
	UnreadCount  int64                `json:"unreadCount"`
}

// NotificationHub fans notification events out to the WebSocket connections
// of each user. With a Redis client, events travel through pub/sub so every
// instance sees them; without one they are delivered in-process.
type NotificationHub struct {
	redis  *redis.Client
	logger *slog.Logger

	mu   sync.RWMutex
	subs map[string]map[chan NotificationEvent]struct{}

	started sync.Once
}

func NewNotificationHub(client *redis.Client, logger *slog.Logger) *NotificationHub {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationHub{
		redis:  client,
		logger: logger,
		subs:   make(map[string]map[chan NotificationEvent]struct{}),
	}
}

// Subscribe registers a listener for userID. The returned cancel func must be
// called when the connection goes away; it closes the channel.
func (h *NotificationHub) Subscribe(userID string) (<-chan NotificationEvent, func()) {
	ch := make(chan NotificationEvent, subscriberBufferSize)

	h.mu.Lock()
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[chan NotificationEvent]struct{})
	}
	h.subs[userID][ch] = struct{}{}
	h.mu.Unlock()
	pushConnections.Inc()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[userID], ch)
			if len(h.subs[userID]) == 0 {
				delete(h.subs, userID)
			}
			h.mu.Unlock()
			close(ch)
			pushConnections.Dec()
		})
	}
}

// Publish sends the event through Redis when configured, otherwise fans out locally.
func (h *NotificationHub) Publish(ctx context.Context, event NotificationEvent) error {
	if h.redis == nil {
		h.fanOut(event)
		return nil
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return h.redis.Publish(ctx, notificationChannelPrefix+event.UserID, data).Err()
}

// fanOut delivers to local subscribers without blocking; a full buffer drops the event.
func (h *NotificationHub) fanOut(event NotificationEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subs[event.UserID] {
		select {
		case ch <- event:
		default:
			pushDropped.Inc()
		}
	}
}

// Start launches the shared Redis listener once per hub. It is a no-op
// without Redis.
func (h *NotificationHub) Start(ctx context.Context) {
	if h.redis == nil {
		return
	}
	h.started.Do(func() {
		go h.runSubscriber(ctx)
	})
}

func (h *NotificationHub) runSubscriber(ctx context.Context) {
	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		err := func() error {
			pubsub := h.redis.PSubscribe(ctx, notificationChannelPrefix+"*")
			defer pubsub.Close()

			h.logger.Info("✅ Notification Redis subscriber started", "pattern", notificationChannelPrefix+"*")

			for {
				msg, err := pubsub.ReceiveMessage(ctx)
				if err != nil {
					return err
				}
				backoff = time.Second

				var event NotificationEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					h.logger.Warn("failed to unmarshal notification event", "error", err)
					continue
				}
				if event.UserID == "" {
					event.UserID = strings.TrimPrefix(msg.Channel, notificationChannelPrefix)
				}
				h.fanOut(event)
			}
		}()

		if ctx.Err() != nil {
			return
		}
		h.logger.Warn("notification subscriber error", "error", err, "retry_in", backoff)
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > 30*time.Second {
			backoff = 30 * time.Second
		}
	}
}
