package listings

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/campusconnect/campusconnect/internal/pricing"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore reads listings from a MongoDB collection.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoStore connects to MongoDB and ensures the category/createdAt index.
func NewMongoStore(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(20).
		SetMaxConnIdleTime(5 * time.Minute)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	if collection == "" {
		collection = defaultCollection
	}
	coll := client.Database(database).Collection(collection)

	indexModel := mongo.IndexModel{
		Keys: bson.D{{Key: "category", Value: 1}, {Key: "createdAt", Value: -1}},
	}
	if _, err := coll.Indexes().CreateOne(ctx, indexModel); err != nil {
		log.Warn().Err(err).Msg("failed to create listings index")
	}

	log.Info().Str("database", database).Str("collection", collection).Msg("connected to MongoDB")

	return &MongoStore{client: client, collection: coll}, nil
}

// RecentByCategory implements Store.
func (s *MongoStore) RecentByCategory(ctx context.Context, category string, limit int) ([]Listing, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit))

	filter := bson.M{}
	if category != "" {
		filter["category"] = category
	}

	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query listings: %w", err)
	}
	defer cursor.Close(ctx)

	var listings []Listing
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode listing: %w", err)
		}
		l, err := decodeMongoDocument(doc)
		if err != nil {
			log.Debug().Err(err).Interface("id", doc["_id"]).Msg("skipping malformed listing document")
			continue
		}
		listings = append(listings, l)
	}

	return listings, cursor.Err()
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func decodeMongoDocument(doc bson.M) (Listing, error) {
	l := Listing{
		ID:           bsonString(doc["_id"]),
		Title:        bsonString(doc["title"]),
		Description:  bsonString(doc["description"]),
		Category:     bsonString(doc["category"]),
		Condition:    pricing.Condition(bsonString(doc["condition"])),
		Price:        bsonNumber(doc["price"]),
		University:   bsonString(doc["university"]),
		SellerID:     bsonString(doc["sellerId"]),
		SellerRating: bsonNumber(doc["sellerRating"]),
		RatingCount:  int(bsonNumber(doc["ratingCount"])),
		Status:       bsonString(doc["status"]),
		CreatedAt:    bsonTime(doc["createdAt"]),
	}
	if err := l.Normalize(); err != nil {
		return Listing{}, err
	}
	return l, nil
}

func bsonString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case primitive.ObjectID:
		return t.Hex()
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}

func bsonNumber(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case primitive.Decimal128:
		f, err := strconv.ParseFloat(t.String(), 64)
		if err != nil {
			return 0
		}
		return f
	case string:
		f, err := strconv.ParseFloat(strings.TrimPrefix(strings.TrimSpace(t), "$"), 64)
		if err != nil {
			return 0
		}
		return f
	}
	return 0
}

func bsonTime(v any) time.Time {
	switch t := v.(type) {
	case primitive.DateTime:
		return t.Time().UTC()
	case time.Time:
		return t
	case int64:
		if t > 0 {
			return time.UnixMilli(t).UTC()
		}
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err == nil {
			return parsed
		}
	}
	return time.Time{}
}
