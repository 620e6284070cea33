package docstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore is a Store backed by a MongoDB database. Document ids are stored
// as string `_id` values.
type MongoStore struct {
	db *mongo.Database
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{db: db}
}

type mongoDocument struct {
	id  string
	raw bson.Raw
}

func (d mongoDocument) ID() string { return d.id }

func (d mongoDocument) Decode(v interface{}) error {
	return bson.Unmarshal(d.raw, v)
}

func newMongoDocument(raw bson.Raw) (Document, error) {
	// cursor.Current is reused between iterations
	owned := make(bson.Raw, len(raw))
	copy(owned, raw)
	id, ok := owned.Lookup("_id").StringValueOK()
	if !ok {
		return nil, errors.New("document _id is not a string")
	}
	return mongoDocument{id: id, raw: owned}, nil
}

func (m *MongoStore) Get(ctx context.Context, collection, id string) (Document, error) {
	raw, err := m.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Raw()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("mongo FindOne %s/%s: %w", collection, id, err)
	}
	return newMongoDocument(raw)
}

func (m *MongoStore) QueryEquals(ctx context.Context, collection string, filters ...Filter) ([]Document, error) {
	filter := bson.D{}
	for _, f := range filters {
		filter = append(filter, bson.E{Key: f.Field, Value: f.Value})
	}
	cursor, err := m.db.Collection(collection).Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("mongo Find %s: %w", collection, err)
	}
	defer cursor.Close(ctx)
	return collectMongo(ctx, cursor)
}

func (m *MongoStore) Insert(ctx context.Context, collection string, record interface{}) (string, error) {
	id := uuid.New().String()
	doc, err := toBSON(record)
	if err != nil {
		return "", err
	}
	doc["_id"] = id
	if _, err := m.db.Collection(collection).InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("mongo InsertOne %s: %w", collection, err)
	}
	return id, nil
}

func (m *MongoStore) Put(ctx context.Context, collection, id string, record interface{}) error {
	doc, err := toBSON(record)
	if err != nil {
		return err
	}
	doc["_id"] = id
	_, err = m.db.Collection(collection).ReplaceOne(ctx, bson.M{"_id": id}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo ReplaceOne %s/%s: %w", collection, id, err)
	}
	return nil
}

func (m *MongoStore) Update(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	res, err := m.db.Collection(collection).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M(fields)})
	if err != nil {
		return fmt.Errorf("mongo UpdateOne %s/%s: %w", collection, id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoStore) Delete(ctx context.Context, collection, id string) error {
	res, err := m.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("mongo DeleteOne %s/%s: %w", collection, id, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoStore) List(ctx context.Context, collection string, limit, skip int) ([]Document, int64, error) {
	coll := m.db.Collection(collection)
	findOptions := options.Find().SetSkip(int64(skip)).SetSort(bson.D{{Key: "_id", Value: 1}})
	if limit > 0 {
		findOptions.SetLimit(int64(limit))
	}
	cursor, err := coll.Find(ctx, bson.M{}, findOptions)
	if err != nil {
		return nil, 0, fmt.Errorf("mongo Find %s: %w", collection, err)
	}
	defer cursor.Close(ctx)

	docs, err := collectMongo(ctx, cursor)
	if err != nil {
		return nil, 0, err
	}
	total, err := coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, fmt.Errorf("mongo CountDocuments %s: %w", collection, err)
	}
	return docs, total, nil
}

// EnsureIndex creates a compound ascending index on fields. It is idempotent.
func (m *MongoStore) EnsureIndex(ctx context.Context, collection string, fields ...string) error {
	keys := bson.D{}
	for _, f := range fields {
		keys = append(keys, bson.E{Key: f, Value: 1})
	}
	_, err := m.db.Collection(collection).Indexes().CreateOne(ctx, mongo.IndexModel{Keys: keys})
	if err != nil {
		return fmt.Errorf("create index on %s: %w", collection, err)
	}
	return nil
}

func collectMongo(ctx context.Context, cursor *mongo.Cursor) ([]Document, error) {
	var out []Document
	for cursor.Next(ctx) {
		d, err := newMongoDocument(cursor.Current)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("mongo cursor: %w", err)
	}
	return out, nil
}

func toBSON(record interface{}) (bson.M, error) {
	data, err := bson.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	var doc bson.M
	if err := bson.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	return doc, nil
}
