package services

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/AnshRaj112/kanjou-nikki-backend/internal/models"
)

// ActivityChannel is the Redis pub/sub channel shared by every server
// instance and by sync agents.
const ActivityChannel = "admin:activity"

// FeedConn is the minimal interface our WebSocket implementation must satisfy.
type FeedConn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// ActivityHub is the registry of admin panels connected to this instance.
type ActivityHub struct {
	mu    sync.RWMutex
	conns map[string]FeedConn
}

func NewActivityHub() *ActivityHub {
	return &ActivityHub{conns: make(map[string]FeedConn)}
}

// Register adds a connection and returns its id for Unregister.
func (h *ActivityHub) Register(conn FeedConn) string {
	id := uuid.NewString()
	h.mu.Lock()
	h.conns[id] = conn
	h.mu.Unlock()
	return id
}

func (h *ActivityHub) Unregister(id string) {
	h.mu.Lock()
	delete(h.conns, id)
	h.mu.Unlock()
}

func (h *ActivityHub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Broadcast writes the event to every local connection. Connections that
// fail a write are closed and dropped.
func (h *ActivityHub) Broadcast(a models.Activity) {
	h.mu.RLock()
	targets := make(map[string]FeedConn, len(h.conns))
	for id, c := range h.conns {
		targets[id] = c
	}
	h.mu.RUnlock()

	for id, c := range targets {
		if err := c.WriteJSON(a); err != nil {
			log.Printf("activity: write to %s failed: %v", id, err)
			h.Unregister(id)
			_ = c.Close()
		}
	}
}

// ActivityFeed records admin-visible events in MongoDB, keeps the newest in
// a Redis list, and fans them out over Redis pub/sub to every instance's hub.
// Each backend is optional.
type ActivityFeed struct {
	hub    *ActivityHub
	redis  *redis.Client
	events *mongo.Collection

	startOnce sync.Once
}

func NewActivityFeed(hub *ActivityHub, client *redis.Client, db *mongo.Database) *ActivityFeed {
	f := &ActivityFeed{hub: hub, redis: client}
	if db != nil {
		f.events = db.Collection("activity")
	}
	return f
}

func (f *ActivityFeed) Hub() *ActivityHub {
	return f.hub
}

// Publish stores and fans out one event.
func (f *ActivityFeed) Publish(ctx context.Context, a models.Activity) error {
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now().UTC()
	}
	if err := f.save(ctx, &a); err != nil {
		log.Printf("activity: save failed: %v", err)
	}
	f.pushRecent(ctx, a)

	if f.redis == nil {
		f.hub.Broadcast(a)
		return nil
	}
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return f.redis.Publish(ctx, ActivityChannel, data).Err()
}

// StartSubscriber runs a single shared Redis listener for this instance.
func (f *ActivityFeed) StartSubscriber(ctx context.Context) {
	if f.redis == nil {
		return
	}
	f.startOnce.Do(func() {
		go f.runSubscriber(ctx)
	})
}

func (f *ActivityFeed) runSubscriber(ctx context.Context) {
	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		func() {
			pubsub := f.redis.Subscribe(ctx, ActivityChannel)
			defer pubsub.Close()

			log.Printf("✅ Activity subscriber started (channel: %s)", ActivityChannel)

			for {
				msg, err := pubsub.ReceiveMessage(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					log.Printf("activity subscriber error: %v", err)
					time.Sleep(backoff)
					backoff *= 2
					if backoff > 30*time.Second {
						backoff = 30 * time.Second
					}
					return
				}

				backoff = time.Second

				var a models.Activity
				if err := json.Unmarshal([]byte(msg.Payload), &a); err != nil {
					log.Printf("failed to unmarshal activity: %v", err)
					continue
				}
				f.hub.Broadcast(a)
			}
		}()
	}
}

// RedisPublisher lets processes without a hub or Mongo (the sync agent)
// put events on the shared channel.
type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Publish(ctx context.Context, a models.Activity) error {
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, ActivityChannel, data).Err()
}
