package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/IshaanNene/dhscrape/internal/types"
)

// MongoStorage upserts records into a MongoDB collection, keyed by identity
// so a re-run replaces instead of duplicating.
type MongoStorage struct {
	client     *mongo.Client
	collection *mongo.Collection
	timeout    time.Duration
	mu         sync.Mutex
	count      int
	logger     *slog.Logger
}

// NewMongoStorage connects to uri and checks the connection.
func NewMongoStorage(uri, database, collection string, timeout time.Duration, logger *slog.Logger) (*MongoStorage, error) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongodb ping: %w", err)
	}

	return &MongoStorage{
		client:     client,
		collection: client.Database(database).Collection(collection),
		timeout:    timeout,
		logger:     logger.With("component", "mongo_storage"),
	}, nil
}

func (s *MongoStorage) Name() string { return "mongodb" }

// documentKey is the _id of a record.
func documentKey(r Record) string {
	return r.ID.Language + "/" + r.ID.ID + "/" + r.ID.Version
}

// toDocument turns a JSON record into a BSON document with its _id set.
func toDocument(r Record) (bson.D, error) {
	var doc bson.D
	if err := bson.UnmarshalExtJSON(r.Data, false, &doc); err != nil {
		return nil, fmt.Errorf("convert record %s: %w", r.ID.ID, err)
	}
	return append(bson.D{{Key: "_id", Value: documentKey(r)}}, doc...), nil
}

func (s *MongoStorage) Store(records []Record) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	models := make([]mongo.WriteModel, 0, len(records))
	for _, r := range records {
		doc, err := toDocument(r)
		if err != nil {
			return &types.StorageError{Backend: s.Name(), Err: err}
		}
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.D{{Key: "_id", Value: documentKey(r)}}).
			SetReplacement(doc).
			SetUpsert(true))
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if _, err := s.collection.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true)); err != nil {
		return &types.StorageError{Backend: s.Name(), Err: fmt.Errorf("mongodb bulk write: %w", err)}
	}

	s.count += len(records)
	s.logger.Debug("records stored in mongodb", "count", len(records), "total", s.count)
	return nil
}

func (s *MongoStorage) Close() error {
	s.logger.Info("mongodb storage closing", "total_records", s.count)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
