package repository

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/daybook/daybook/internal/entry"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepo implements a MongoDB-backed repository for entries.
// Entries keep their own string "id" field (uuid) rather than relying on
// ObjectIDs, so ids look the same whichever backend is used.
type MongoRepo struct {
	col *mongo.Collection
}

func NewMongoRepo(col *mongo.Collection) *MongoRepo {
	return &MongoRepo{col: col}
}

// EnsureIndexes creates the unique id index and the owner/time index used by
// every listing query.
func (m *MongoRepo) EnsureIndexes(ctx context.Context) error {
	_, err := m.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "ownerId", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("ensure entry indexes: %w", err)
	}
	return nil
}

func owned(ownerID string, extra bson.M) bson.M {
	f := bson.M{"ownerId": ownerID}
	for k, v := range extra {
		f[k] = v
	}
	return f
}

func (m *MongoRepo) Create(ctx context.Context, e *entry.Entry) error {
	prepare(e)
	_, err := m.col.InsertOne(ctx, e)
	return err
}

func (m *MongoRepo) Get(ctx context.Context, ownerID, id string) (*entry.Entry, error) {
	var e entry.Entry
	err := m.col.FindOne(ctx, owned(ownerID, bson.M{"id": id})).Decode(&e)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, entry.ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (m *MongoRepo) LatestBetween(ctx context.Context, ownerID string, from, to time.Time) (*entry.Entry, error) {
	filter := owned(ownerID, bson.M{"createdAt": bson.M{"$gte": from, "$lt": to}})
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "id", Value: 1}})
	var e entry.Entry
	if err := m.col.FindOne(ctx, filter, opts).Decode(&e); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, entry.ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (m *MongoRepo) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*entry.Entry, error) {
	cur, err := m.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*entry.Entry{}
	for cur.Next(ctx) {
		var e entry.Entry
		if err := cur.Decode(&e); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, cur.Err()
}

var newestFirst = bson.D{{Key: "createdAt", Value: -1}, {Key: "id", Value: 1}}

func (m *MongoRepo) List(ctx context.Context, ownerID string, limit, offset int) ([]*entry.Entry, error) {
	opts := options.Find().SetSort(newestFirst).SetSkip(int64(offset))
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return m.find(ctx, owned(ownerID, nil), opts)
}

// Search matches with a quoted, case-insensitive regex so user input is never
// interpreted as a pattern.
func (m *MongoRepo) Search(ctx context.Context, ownerID, text string, limit int) ([]*entry.Entry, error) {
	if blank(text) {
		return []*entry.Entry{}, nil
	}
	rx := primitive.Regex{Pattern: regexp.QuoteMeta(text), Options: "i"}
	filter := owned(ownerID, bson.M{"$or": bson.A{bson.M{"content": rx}, bson.M{"title": rx}}})
	opts := options.Find().SetSort(newestFirst)
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return m.find(ctx, filter, opts)
}

func (m *MongoRepo) Since(ctx context.Context, ownerID string, from time.Time) ([]*entry.Entry, error) {
	filter := owned(ownerID, bson.M{"createdAt": bson.M{"$gte": from}})
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "id", Value: 1}})
	return m.find(ctx, filter, opts)
}

func (m *MongoRepo) Update(ctx context.Context, ownerID, id string, c entry.Changes, now time.Time) error {
	set := bson.M{"title": c.Title, "content": c.Content, "mood": c.Mood, "updatedAt": now}
	if c.Template != nil {
		set["template"] = *c.Template
	}
	_, err := m.col.UpdateOne(ctx, owned(ownerID, bson.M{"id": id}), bson.M{"$set": set})
	return err
}

func (m *MongoRepo) Delete(ctx context.Context, ownerID, id string) error {
	_, err := m.col.DeleteOne(ctx, owned(ownerID, bson.M{"id": id}))
	return err
}
