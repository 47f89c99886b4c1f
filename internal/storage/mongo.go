package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jwebster45206/storyarc/pkg/story"
	"github.com/jwebster45206/storyarc/pkg/storage"
)

const storiesCollection = "stories"

// storyDocument wraps a story with the fields Mongo queries on. The story
// itself is kept as its JSON encoding so every backend round-trips it the
// same way.
type storyDocument struct {
	ID          string         `bson:"_id"`
	UserID      string         `bson:"user_id"`
	ShareToken  string         `bson:"share_token,omitempty"`
	IsShareable bool           `bson:"is_shareable"`
	LastUpdated time.Time      `bson:"last_updated"`
	Metadata    story.Metadata `bson:"metadata"`
	Story       []byte         `bson:"story"`
}

// MongoStorage stores stories in a MongoDB collection.
type MongoStorage struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     *slog.Logger
}

var _ storage.Storage = (*MongoStorage)(nil)

// NewMongoStorage connects, pings and ensures indexes.
func NewMongoStorage(ctx context.Context, uri, database string, logger *slog.Logger) (*MongoStorage, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping failed: %w", err)
	}

	m := &MongoStorage{
		client:     client,
		collection: client.Database(database).Collection(storiesCollection),
		logger:     logger,
	}
	if err := m.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	logger.Info("Connected to MongoDB", "database", database)
	return m, nil
}

func (m *MongoStorage) ensureIndexes(ctx context.Context) error {
	_, err := m.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "last_updated", Value: -1}}},
		{
			Keys:    bson.D{{Key: "share_token", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create story indexes: %w", err)
	}
	return nil
}

func (m *MongoStorage) Ping(ctx context.Context) error {
	if err := m.client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("mongo ping failed: %w", err)
	}
	return nil
}

func (m *MongoStorage) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := m.client.Disconnect(ctx); err != nil {
		m.logger.Error("Failed to close MongoDB connection", "error", err)
		return err
	}
	m.logger.Info("MongoDB connection closed")
	return nil
}

func (m *MongoStorage) SaveStory(ctx context.Context, s *story.Story) error {
	if s == nil {
		return errors.New("story cannot be nil")
	}
	doc, err := newStoryDocument(s)
	if err != nil {
		return err
	}
	_, err = m.collection.ReplaceOne(ctx, bson.M{"_id": s.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		m.logger.Error("Failed to save story", "story_id", s.ID, "error", err)
		return fmt.Errorf("failed to save story: %w", err)
	}
	return nil
}

func (m *MongoStorage) LoadStory(ctx context.Context, id string) (*story.Story, error) {
	return m.findOne(ctx, bson.M{"_id": id})
}

func (m *MongoStorage) DeleteStory(ctx context.Context, id string) error {
	res, err := m.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete story: %w", err)
	}
	if res.DeletedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (m *MongoStorage) ListStories(ctx context.Context, userID string) ([]story.Metadata, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "last_updated", Value: -1}}).
		SetProjection(bson.M{"metadata": 1})

	cursor, err := m.collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []storyDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode stories: %w", err)
	}
	out := make([]story.Metadata, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Metadata)
	}
	return out, nil
}

func (m *MongoStorage) LoadStoryByShareToken(ctx context.Context, token string) (*story.Story, error) {
	if token == "" {
		return nil, storage.ErrNotFound
	}
	return m.findOne(ctx, bson.M{"share_token": token, "is_shareable": true})
}

func (m *MongoStorage) findOne(ctx context.Context, filter bson.M) (*story.Story, error) {
	var doc storyDocument
	if err := m.collection.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load story: %w", err)
	}
	return decodeStory(doc.Story)
}

func newStoryDocument(s *story.Story) (storyDocument, error) {
	data, err := encodeStory(s)
	if err != nil {
		return storyDocument{}, err
	}
	return storyDocument{
		ID:          s.ID,
		UserID:      s.UserID,
		ShareToken:  s.ShareToken,
		IsShareable: s.IsShareable,
		LastUpdated: s.LastUpdated,
		Metadata:    s.Metadata(),
		Story:       data,
	}, nil
}
