package bootstrap

import (
	"context"
	"fmt"
	"log"

	"tarik-chat-be/internal/config"
	"tarik-chat-be/internal/model"
	"tarik-chat-be/internal/repository/contract"
	"tarik-chat-be/internal/repository/implementation"
	"tarik-chat-be/internal/repository/memory"
	"tarik-chat-be/pkg/database"
)

// DataStores are the durable repositories selected by SESSION_STORE_DRIVER.
type DataStores struct {
	Driver    string
	Documents contract.SessionDocumentRepository
	Users     contract.UserRepository

	close func()
}

func (d *DataStores) Close() {
	if d.close != nil {
		d.close()
		d.close = nil
	}
}

// OpenDataStores connects the configured document store. Connecting also
// migrates it: Postgres tables are auto-migrated, Mongo indexes ensured.
func OpenDataStores(ctx context.Context, cfg *config.Config) (*DataStores, error) {
	d := &DataStores{Driver: cfg.Database.SessionDriver}

	switch cfg.Database.SessionDriver {
	case "mongo":
		client, db, err := database.NewMongoDB(ctx, database.MongoConfig{URI: cfg.Database.MongoURI, DBName: cfg.Database.MongoDBName})
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		d.close = func() { _ = client.Disconnect(context.Background()) }
		d.Documents = implementation.NewSessionDocumentMongoRepository(db)
		d.Users = implementation.NewUserMongoRepository(db)
	case "postgres":
		db, err := database.NewGormDB(database.GormConfig{
			DSN:   cfg.Database.Connection,
			Debug: !cfg.IsProduction(),
		}, &model.ChatSession{}, &model.User{})
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if sqlDB, err := db.DB(); err == nil {
			d.close = func() { _ = sqlDB.Close() }
		}
		d.Documents = implementation.NewSessionDocumentGormRepository(db)
		d.Users = implementation.NewUserGormRepository(db)
	case "memory":
		d.Documents = memory.NewSessionDocumentRepository()
		d.Users = memory.NewUserRepository()
	default:
		return nil, fmt.Errorf("unsupported SESSION_STORE_DRIVER: %s", cfg.Database.SessionDriver)
	}

	log.Printf("[INFO] Using session store: %s", cfg.Database.SessionDriver)
	return d, nil
}
