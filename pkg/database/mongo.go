package database

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	SessionsCollection = "chat_sessions"
	UsersCollection    = "users"

	defaultMongoDB = "tarikchat"
)

type MongoConfig struct {
	URI    string
	DBName string
}

// NewMongoDB connects, pings the primary and ensures the collection
// indexes. The caller owns the returned client.
func NewMongoDB(ctx context.Context, cfg MongoConfig) (*mongo.Client, *mongo.Database, error) {
	if cfg.DBName == "" {
		cfg.DBName = defaultMongoDB
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, err
	}

	db := client.Database(cfg.DBName)
	if err := ensureIndexes(ctx, db); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, err
	}
	return client, db, nil
}

func ensureIndexes(ctx context.Context, d *mongo.Database) error {
	// chat_sessions: list by owner, newest first
	{
		mi := mongo.IndexModel{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "updated_at", Value: -1}},
			Options: options.Index().SetName("idx_user_updated"),
		}
		if _, err := d.Collection(SessionsCollection).Indexes().CreateOne(ctx, mi); err != nil {
			return err
		}
	}
	// users: unique email
	{
		mi := mongo.IndexModel{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("uniq_email").SetUnique(true),
		}
		if _, err := d.Collection(UsersCollection).Indexes().CreateOne(ctx, mi); err != nil {
			return err
		}
	}
	return nil
}
