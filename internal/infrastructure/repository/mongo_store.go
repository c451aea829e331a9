package repository

import (
	"context"
	"fmt"

	"archie-core-attribution-layer/internal/ports"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore implements the generic DataStore using MongoDB; tables map to collections
type MongoStore struct {
	db *mongo.Database
}

// NewMongoStore creates a new MongoDB backed data store
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{db: db}
}

// EnsureIndexes creates the lookup and uniqueness indexes the repositories rely on
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		TableConnections: {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "platformName", Value: 1}, {Key: "status", Value: 1}}},
		},
		TableStores: {
			{Keys: bson.D{{Key: "shopDomain", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "trackingId", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		TableInstallations: {
			{Keys: bson.D{{Key: "storeId", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		TablePerformance: {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "platformName", Value: 1}, {Key: "date", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		TableSettings: {
			{Keys: bson.D{{Key: "userId", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}

	for table, models := range indexes {
		if _, err := s.db.Collection(table).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", table, err)
		}
	}
	return nil
}

// Select returns every document of the collection matching filters
func (s *MongoStore) Select(ctx context.Context, table string, filters ports.Filter) ([]ports.Row, error) {
	cursor, err := s.db.Collection(table).Find(ctx, toBSON(filters))
	if err != nil {
		return nil, fmt.Errorf("failed to select from %s: %w", table, err)
	}
	defer cursor.Close(ctx)

	rows := []ports.Row{}
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode %s row: %w", table, err)
		}
		rows = append(rows, ports.Row(doc))
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return rows, nil
}

// Insert inserts a document, assigning a uuid "_id" when absent
func (s *MongoStore) Insert(ctx context.Context, table string, row ports.Row) (ports.Row, error) {
	doc := cloneShallow(row)
	if id, ok := doc["_id"].(string); !ok || id == "" {
		doc["_id"] = uuid.NewString()
	}

	if _, err := s.db.Collection(table).InsertOne(ctx, bson.M(doc)); err != nil {
		return nil, fmt.Errorf("failed to insert into %s: %w", table, err)
	}

	return doc, nil
}

// Update sets patch on every matching document and returns the first one after the update
func (s *MongoStore) Update(ctx context.Context, table string, patch ports.Row, filters ports.Filter) (ports.Row, error) {
	coll := s.db.Collection(table)

	cursor, err := coll.Find(ctx, toBSON(filters), options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, fmt.Errorf("failed to select from %s: %w", table, err)
	}
	var matched []bson.M
	if err := cursor.All(ctx, &matched); err != nil {
		return nil, fmt.Errorf("failed to decode %s ids: %w", table, err)
	}
	if len(matched) == 0 {
		return nil, ports.ErrNotFound
	}

	ids := make(bson.A, 0, len(matched))
	for _, m := range matched {
		ids = append(ids, m["_id"])
	}

	// keep the caller's filters so conditional updates stay conditional
	scoped := toBSON(filters)
	scoped["_id"] = bson.M{"$in": ids}

	result, err := coll.UpdateMany(ctx, scoped, bson.M{"$set": bson.M(patch)})
	if err != nil {
		return nil, fmt.Errorf("failed to update %s: %w", table, err)
	}
	if result.MatchedCount == 0 {
		return nil, ports.ErrNotFound
	}

	var doc bson.M
	err = coll.FindOne(ctx, bson.M{"_id": ids[0]}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to reload %s row: %w", table, err)
	}

	return ports.Row(doc), nil
}

// Delete removes every matching document
func (s *MongoStore) Delete(ctx context.Context, table string, filters ports.Filter) error {
	if _, err := s.db.Collection(table).DeleteMany(ctx, toBSON(filters)); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	return nil
}

func toBSON(filters ports.Filter) bson.M {
	m := bson.M{}
	for k, v := range filters {
		m[k] = v
	}
	return m
}

func cloneShallow(row ports.Row) ports.Row {
	out := make(ports.Row, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}
