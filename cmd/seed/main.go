package main

import (
	"context"
	"flag"
	"log"
	"time"

	"tarik-chat-be/internal/bootstrap"
	"tarik-chat-be/internal/config"
	"tarik-chat-be/internal/pkg/logger"
)

func main() {
	email := flag.String("email", "demo@tarik.et", "demo account email")
	password := flag.String("password", "demo1234", "demo account password")
	name := flag.String("name", "Tarik Demo", "demo account display name")
	country := flag.String("country", "Ethiopia", "demo account country")
	flag.Parse()

	cfg := config.Load()
	if cfg.Auth.JwtSecret == "" {
		log.Fatal("Error: JWT_SECRET is not set")
	}
	if cfg.Database.SessionDriver == "memory" {
		log.Fatal("Error: seeding the memory driver has no lasting effect; set SESSION_STORE_DRIVER")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stores, err := bootstrap.OpenDataStores(ctx, cfg)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}
	defer stores.Close()

	owner, err := bootstrap.SeedDemo(ctx, cfg, stores, logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction()), bootstrap.SeedAccount{
		Email:    *email,
		Password: *password,
		FullName: *name,
		Country:  *country,
	})
	if err != nil {
		log.Fatal("Error: Seeding failed:", err)
	}
	log.Printf("Seeding completed for %s (%s)", *email, owner)
}
