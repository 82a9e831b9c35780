package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log"

	"tarik-chat-be/internal/config"
	"tarik-chat-be/internal/controller"
	"tarik-chat-be/internal/handler"
	"tarik-chat-be/internal/pkg/logger"
	"tarik-chat-be/internal/repository/contract"
	"tarik-chat-be/internal/repository/implementation"
	"tarik-chat-be/internal/repository/memory"
	"tarik-chat-be/internal/service"
	"tarik-chat-be/internal/tracer"
	"tarik-chat-be/internal/websocket"
	"tarik-chat-be/pkg/chat/sanitize"
	"tarik-chat-be/pkg/events"
	"tarik-chat-be/pkg/llm/factory"
	pktNats "tarik-chat-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
)

type Container struct {
	// Controllers
	AuthController controller.IAuthController
	ChatController controller.IChatController

	// WebSockets & Notification
	NotificationHandler *handler.NotificationHandler
	WebSocketHub        *websocket.Hub
	NotificationService *service.NotificationService

	ChatService service.IChatService
	Logger      *logger.ZapLogger

	closers []func()
}

// NewContainer connects the configured backends and builds the services.
// Optional infrastructure (Redis, NATS) degrades to in-process fallbacks
// when unreachable; the session document store is required.
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	c := &Container{}
	if err := c.build(ctx, cfg); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Container) build(ctx context.Context, cfg *config.Config) error {
	if cfg.Auth.JwtSecret == "" {
		return errors.New("JWT_SECRET is required")
	}

	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	c.Logger = sysLogger
	c.onClose(func() { _ = sysLogger.Sync() })

	// 1. Document stores
	stores, err := OpenDataStores(ctx, cfg)
	if err != nil {
		return err
	}
	c.onClose(stores.Close)
	documents, users := stores.Documents, stores.Users

	// 2. Redis (optional)
	var rdb *redis.Client
	if cfg.App.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{Addr: cfg.App.RedisURL}
		}
		rdb = redis.NewClient(opt)
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v", err)
			_ = rdb.Close()
			rdb = nil
		} else {
			client := rdb
			c.onClose(func() { _ = client.Close() })
		}
	}

	// 3. Key-value store and token denylist
	var keyValues contract.KeyValueRepository
	switch cfg.Store.LocalDriver {
	case "redis":
		if rdb == nil {
			return errors.New("LOCAL_STORE_DRIVER=redis requires a reachable REDIS_URL")
		}
		keyValues = implementation.NewKeyValueRedisRepository(rdb, cfg.Store.LocalQuotaBytes)
	case "bolt":
		bolt, err := implementation.OpenKeyValueBoltRepository(cfg.Store.BoltPath, cfg.Store.LocalQuotaBytes)
		if err != nil {
			return fmt.Errorf("open bolt store: %w", err)
		}
		c.onClose(func() { _ = bolt.Close() })
		keyValues = bolt
	default:
		keyValues = memory.NewKeyValueRepository(cfg.Store.LocalQuotaBytes)
	}

	var denylist contract.TokenDenylistRepository = memory.NewTokenDenylistRepository()
	if rdb != nil {
		denylist = implementation.NewTokenDenylistRedisRepository(rdb)
	}

	// 4. Event streams
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		} else {
			publisher = natsPub
			c.onClose(natsPub.Close)
		}
	}

	// 5. Notifications
	wsLogger := logger.NewIsolatedLogger(cfg.App.NotifyLogFilePath)
	hubCtx, stopHub := context.WithCancel(context.Background())
	c.WebSocketHub = websocket.NewHub(rdb, wsLogger)
	go c.WebSocketHub.Run(hubCtx)
	c.onClose(stopHub)

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewStdLogger(false, false))
	c.onClose(func() { _ = pubSub.Close() })
	c.NotificationService = service.NewNotificationService(pubSub, c.WebSocketHub, publisher, wsLogger)
	if err := c.NotificationService.Start(hubCtx); err != nil {
		return fmt.Errorf("start notifications: %w", err)
	}

	// 6. LLM
	generator, err := factory.NewReplyGenerator(ctx, factory.Config{
		Provider:     cfg.Ai.LLMProvider,
		Model:        modelFor(cfg.Ai),
		GeminiAPIKey: cfg.Ai.GoogleGemini,
		OllamaURL:    cfg.Ai.OllamaBaseURL,
	})
	if err != nil {
		return fmt.Errorf("init LLM provider: %w", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, modelFor(cfg.Ai))

	// 7. Services
	c.ChatService = service.NewChatService(service.ChatOptions{
		KeyValues: keyValues,
		Documents: documents,
		Limits: sanitize.Limits{
			MaxMessages:   cfg.Store.MaxStoredMessages,
			MaxContentLen: cfg.Store.MaxContentLength,
		},
		Notifier:     c.NotificationService,
		Generator:    generator,
		Analyzer:     generator,
		Publisher:    publisher,
		Logger:       sysLogger,
		Tracer:       otel.Tracer(tracer.ServiceName),
		ReplyTimeout: cfg.Store.TurnReplyTimeout,
		IdleTTL:      cfg.Store.IdleTTL,
	})
	// Registered after the stores' backends so it runs before they close.
	c.onClose(c.ChatService.Close)

	authService := service.NewAuthService(users, denylist, publisher, sysLogger, service.AuthOptions{
		Secret:    cfg.Auth.JwtSecret,
		TokenTTL:  cfg.Auth.JwtTTL,
		OnSignOut: c.ChatService.Release,
	})

	// 8. Controllers
	c.AuthController = controller.NewAuthController(authService)
	c.ChatController = controller.NewChatController(c.ChatService, authService)
	c.NotificationHandler = handler.NewNotificationHandler(authService, c.WebSocketHub, wsLogger)
	return nil
}

func modelFor(cfg config.AIConfig) string {
	if cfg.LLMProvider == "ollama" {
		return cfg.LLMModel
	}
	return cfg.GeminiModel
}

func (c *Container) onClose(fn func()) {
	c.closers = append(c.closers, fn)
}

// Close releases resources in reverse order of acquisition.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}
