package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/AnshRaj112/kanjou-nikki-backend/internal/models"
)

// EnsureIndexes configures indexes for the activity collection.
// Called on startup from main after Mongo has connected.
func (f *ActivityFeed) EnsureIndexes(ctx context.Context) error {
	if f.events == nil {
		return nil
	}
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_timestamp"),
		},
		{
			Keys: bson.D{
				{Key: "type", Value: 1},
				{Key: "timestamp", Value: -1},
			},
			Options: options.Index().SetName("idx_type_timestamp"),
		},
	}
	_, err := f.events.Indexes().CreateMany(ctx, indexes)
	return err
}

func (f *ActivityFeed) save(ctx context.Context, a *models.Activity) error {
	if f.events == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	_, err := f.events.InsertOne(ctx, a)
	return err
}

// loadHistory returns events newest-first, optionally older than before.
func (f *ActivityFeed) loadHistory(ctx context.Context, before *time.Time, limit int64) ([]models.Activity, bool, error) {
	if f.events == nil {
		return []models.Activity{}, false, nil
	}

	filter := bson.M{}
	if before != nil {
		filter["timestamp"] = bson.M{"$lt": before.UTC()}
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(limit + 1)

	cur, err := f.events.Find(ctx, filter, opts)
	if err != nil {
		return nil, false, err
	}
	defer cur.Close(ctx)

	events := []models.Activity{}
	if err := cur.All(ctx, &events); err != nil {
		return nil, false, err
	}

	hasMore := int64(len(events)) > limit
	if hasMore {
		events = events[:limit]
	}
	return events, hasMore, nil
}
