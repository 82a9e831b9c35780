package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tarik-chat-be/internal/bootstrap"
	"tarik-chat-be/internal/config"
	"tarik-chat-be/internal/server"
	"tarik-chat-be/internal/tracer"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	// 2. Tracer
	shutdownTracer := tracer.InitTracer(cfg.Otel)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracer(ctx)
	}()

	// 3. Bootstrap Dependencies (Container)
	connectCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	container, err := bootstrap.NewContainer(connectCtx, cfg)
	cancel()
	if err != nil {
		log.Panicf("Unable to bootstrap: %v", err)
	}
	defer container.Close()

	// 4. Initialize Server
	srv := server.New(cfg, container)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down...")
		if err := srv.Shutdown(); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}()

	// 5. Run Server; queued session writes are flushed by container.Close.
	if err := srv.Run(); err != nil {
		log.Printf("Server stopped: %v", err)
	}
}
