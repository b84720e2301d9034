package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	mongoDBName     = "nudgepay"
	mongoCollection = "kv"
)

// Document is one stored value keyed by its _id
type Document struct {
	Key       string    `bson:"_id"`
	Value     string    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// ---- Abstractions for Testability ----

// DataStore is the slice of collection operations the Mongo store needs
type DataStore interface {
	FindByIDs(ctx context.Context, ids []string) ([]Document, error)
	BulkWrite(
		ctx context.Context,
		models []mongo.WriteModel,
		opts ...*options.BulkWriteOptions) (*mongo.BulkWriteResult, error)
}

// MongoCollection adapts *mongo.Collection to DataStore
type MongoCollection struct {
	*mongo.Collection
}

// FindByIDs loads the documents whose _id is in ids
func (c *MongoCollection) FindByIDs(ctx context.Context, ids []string) ([]Document, error) {
	cursor, err := c.Collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, errors.Wrap(err, "failed to perform Find")
	}

	var docs []Document
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "failed to decode documents")
	}
	return docs, nil
}

// BulkWrite performs a bulk write operation
func (c *MongoCollection) BulkWrite(
	ctx context.Context,
	models []mongo.WriteModel,
	opts ...*options.BulkWriteOptions) (*mongo.BulkWriteResult, error) {
	result, err := c.Collection.BulkWrite(ctx, models, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to perform BulkWrite")
	}
	return result, nil
}

// Mongo persists values in a MongoDB collection
type Mongo struct {
	notifier
	collection DataStore
	client     *mongo.Client
}

// NewMongo wraps an existing collection
func NewMongo(collection DataStore) *Mongo {
	return &Mongo{collection: collection}
}

// ConnectMongo dials uri, pings it and returns a store over the kv collection
func ConnectMongo(ctx context.Context, uri string) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to MongoDB")
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(err, "failed to ping MongoDB")
	}

	m := NewMongo(&MongoCollection{client.Database(mongoDBName).Collection(mongoCollection)})
	m.client = client
	return m, nil
}

// Close disconnects the client if this store owns one
func (m *Mongo) Close() error {
	if m.client == nil {
		return nil
	}
	return m.client.Disconnect(context.Background())
}

// Get reads the documents for keys that exist
func (m *Mongo) Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	docs, err := m.collection.FindByIDs(ctx, keys)
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		out[d.Key] = json.RawMessage(d.Value)
	}
	return out, nil
}

// Set upserts every value in one unordered bulk write
func (m *Mongo) Set(ctx context.Context, values map[string]json.RawMessage) error {
	if len(values) == 0 {
		return nil
	}

	now := time.Now().UTC()
	models := make([]mongo.WriteModel, 0, len(values))
	for k, v := range values {
		if !json.Valid(v) {
			return errors.Errorf("value for %q is not valid JSON", k)
		}
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": k}).
			SetReplacement(Document{Key: k, Value: string(v), UpdatedAt: now}).
			SetUpsert(true))
	}

	if _, err := m.collection.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false)); err != nil {
		return err
	}

	m.notify(values)
	return nil
}
