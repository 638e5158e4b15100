package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mazrik/modcat/pkg/observability"
)

// MongoStore implements Store on top of a MongoDB collection.
// Each partition maps to its own collection; documents hold the record
// key as _id and the raw JSON value as a string field.
type MongoStore struct {
	name   string
	client *mongo.Client
	coll   *mongo.Collection
}

// mongoDoc is the document shape used for every record.
type mongoDoc struct {
	Key   string `bson:"_id"`
	Value string `bson:"value"`
}

// NewMongoStore connects to MongoDB and binds the partition to the
// given database and collection. The connection is verified with a ping
// before returning.
func NewMongoStore(ctx context.Context, name, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, unavailable(err, "connect", name, "")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, unavailable(err, "ping", name, "")
	}
	return &MongoStore{
		name:   name,
		client: client,
		coll:   client.Database(database).Collection(name),
	}, nil
}

// Name returns the partition name.
func (s *MongoStore) Name() string { return s.name }

// Get retrieves the raw value stored under key.
// Absent keys yield EmptyObject.
func (s *MongoStore) Get(ctx context.Context, key string) ([]byte, error) {
	var doc mongoDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		observability.Store().OnGet(ctx, s.name, key, true)
		return EmptyObject, nil
	}
	if err != nil {
		observability.Store().OnError(ctx, s.name, "get", err)
		return nil, unavailable(err, "get", s.name, key)
	}
	observability.Store().OnGet(ctx, s.name, key, false)
	return []byte(doc.Value), nil
}

// Set stores value under key, upserting the document.
func (s *MongoStore) Set(ctx context.Context, key string, value []byte) error {
	doc := mongoDoc{Key: key, Value: string(value)}
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": key}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		observability.Store().OnError(ctx, s.name, "set", err)
		return unavailable(err, "set", s.name, key)
	}
	observability.Store().OnSet(ctx, s.name, key, len(value))
	return nil
}

// Delete removes the given keys and returns how many existed.
func (s *MongoStore) Delete(ctx context.Context, keys ...string) (int, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	res, err := s.coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": keys}})
	if err != nil {
		observability.Store().OnError(ctx, s.name, "delete", err)
		return 0, unavailable(err, "delete", s.name, "")
	}
	observability.Store().OnDelete(ctx, s.name, len(keys), int(res.DeletedCount))
	return int(res.DeletedCount), nil
}

// ScanKeys returns every key in the partition using a projection-only query.
func (s *MongoStore) ScanKeys(ctx context.Context) ([]string, error) {
	start := time.Now()
	cursor, err := s.coll.Find(ctx, bson.M{}, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		observability.Store().OnError(ctx, s.name, "scan", err)
		return nil, unavailable(err, "scan", s.name, "")
	}
	defer cursor.Close(ctx)

	var keys []string
	for cursor.Next(ctx) {
		var doc struct {
			Key string `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, unavailable(err, "scan", s.name, "")
		}
		keys = append(keys, doc.Key)
	}
	if err := cursor.Err(); err != nil {
		observability.Store().OnError(ctx, s.name, "scan", err)
		return nil, unavailable(err, "scan", s.name, "")
	}
	observability.Store().OnScan(ctx, s.name, len(keys), time.Since(start))
	return keys, nil
}

// Close disconnects the underlying Mongo client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Ensure MongoStore implements Store.
var _ Store = (*MongoStore)(nil)
