package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/Alexjoshwa/agri-1.0/internal/store"
)

// ConnectDB initializes and returns a MongoDB client and database instance.
func ConnectDB(uri, dbName string) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Ping the primary node
	ctxPing, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPing()
	if err := client.Ping(ctxPing, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client, client.Database(dbName), nil
}

// DisconnectDB closes the MongoDB client connection.
func DisconnectDB(client *mongo.Client) error {
	if client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect MongoDB: %w", err)
	}
	return nil
}

type kvDocument struct {
	Key     string `bson:"_id"`
	Value   string `bson:"value"`
	Version int64  `bson:"version"`
}

// MongoKV keeps one document per key: {_id: key, value: <json text>, version: n}.
// Every write bumps version; Update only commits against the version it read.
type MongoKV struct {
	coll *mongo.Collection
}

func NewMongoKV(database *mongo.Database, collection string) *MongoKV {
	return &MongoKV{coll: database.Collection(collection)}
}

func (m *MongoKV) Get(ctx context.Context, key string) ([]byte, error) {
	var doc kvDocument
	err := m.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mongo get %s: %w", key, err)
	}
	return []byte(doc.Value), nil
}

func (m *MongoKV) Set(ctx context.Context, key string, value []byte) error {
	_, err := m.coll.UpdateOne(ctx,
		bson.M{"_id": key},
		bson.M{"$set": bson.M{"value": string(value)}, "$inc": bson.M{"version": 1}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("mongo set %s: %w", key, err)
	}
	return nil
}

func (m *MongoKV) Update(ctx context.Context, key string, fn store.UpdateFunc) error {
	return store.RetryOnConflict(ctx, key, func() (bool, error) {
		var doc kvDocument
		var current []byte
		err := m.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
		exists := !errors.Is(err, mongo.ErrNoDocuments)
		if exists {
			if err != nil {
				return false, fmt.Errorf("mongo get %s: %w", key, err)
			}
			current = []byte(doc.Value)
		}

		next, err := fn(current)
		if err != nil || next == nil {
			return true, err
		}

		if !exists {
			_, err := m.coll.InsertOne(ctx, kvDocument{Key: key, Value: string(next), Version: 1})
			if mongo.IsDuplicateKeyError(err) {
				return false, nil
			}
			if err != nil {
				return false, fmt.Errorf("mongo insert %s: %w", key, err)
			}
			return true, nil
		}

		res, err := m.coll.UpdateOne(ctx,
			versionFilter(key, doc.Version),
			bson.M{"$set": bson.M{"value": string(next)}, "$inc": bson.M{"version": 1}},
		)
		if err != nil {
			return false, fmt.Errorf("mongo update %s: %w", key, err)
		}
		return res.MatchedCount == 1, nil
	})
}

// versionFilter matches key at version. Documents written before the version
// field existed decode as version 0 and are matched by its absence.
func versionFilter(key string, version int64) bson.M {
	if version == 0 {
		return bson.M{"_id": key, "version": bson.M{"$in": bson.A{int64(0), nil}}}
	}
	return bson.M{"_id": key, "version": version}
}

func (m *MongoKV) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if _, err := m.coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": keys}}); err != nil {
		return fmt.Errorf("mongo delete: %w", err)
	}
	return nil
}
