package main

import (
	"context"
	"log"
	"time"

	"tarik-chat-be/internal/bootstrap"
	"tarik-chat-be/internal/config"
)

// Opening the data stores is what migrates them: Postgres runs AutoMigrate
// for sessions and users, Mongo ensures its indexes.
func main() {
	cfg := config.Load()
	if cfg.Database.SessionDriver == "memory" {
		log.Println("Info: memory driver selected, nothing to migrate")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	log.Printf("Starting migration for %s...", cfg.Database.SessionDriver)
	stores, err := bootstrap.OpenDataStores(ctx, cfg)
	if err != nil {
		log.Fatal("Error: Migration failed:", err)
	}
	stores.Close()
	log.Println("Migration completed successfully.")
}
