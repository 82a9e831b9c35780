package bootstrap

import (
	"context"
	"fmt"

	"tarik-chat-be/internal/config"
	"tarik-chat-be/internal/dto"
	"tarik-chat-be/internal/entity"
	"tarik-chat-be/internal/pkg/logger"
	"tarik-chat-be/internal/repository/memory"
	"tarik-chat-be/internal/service"
	"tarik-chat-be/pkg/chat/sanitize"
	"tarik-chat-be/pkg/chat/store"
	"tarik-chat-be/pkg/events"
)

const (
	WelcomeSessionName = "Welcome to Tarik"
	WelcomeMessage     = "Selam! I am Tarik. Ask me about Ethiopian history, or send a photo of a place or artifact and I will tell you what I know about it."
)

type SeedAccount struct {
	Email    string
	Password string
	FullName string
	Country  string
}

// SeedDemo creates the demo account when it is missing and gives it a
// welcome session. Running it twice leaves the data unchanged.
func SeedDemo(ctx context.Context, cfg *config.Config, stores *DataStores, log logger.ILogger, account SeedAccount) (string, error) {
	ownerID, err := ensureAccount(ctx, cfg, stores, log, account)
	if err != nil {
		return "", err
	}

	s := store.New(store.Options{
		KeyValues: memory.NewKeyValueRepository(cfg.Store.LocalQuotaBytes),
		Documents: stores.Documents,
		Limits: sanitize.Limits{
			MaxMessages:   cfg.Store.MaxStoredMessages,
			MaxContentLen: cfg.Store.MaxContentLength,
		},
		Logger: log,
	})
	defer s.Dispose()

	if err := s.Init(ctx, ownerID); err != nil {
		return "", fmt.Errorf("load sessions: %w", err)
	}
	for _, sess := range s.ListSessions() {
		if sess.Name == WelcomeSessionName {
			log.Info("SEED", "Welcome session already present", map[string]interface{}{"owner": ownerID})
			return ownerID, nil
		}
	}

	sess, ok := s.ActiveSession()
	if !ok || len(sess.Messages) > 0 {
		var p *store.Pending
		sess, p, err = s.CreateSession(ctx, WelcomeSessionName)
		if err != nil {
			return "", err
		}
		if err := p.Wait(ctx); err != nil {
			return "", err
		}
	} else {
		p, err := s.RenameSession(ctx, sess.Id, WelcomeSessionName)
		if err != nil {
			return "", err
		}
		if err := p.Wait(ctx); err != nil {
			return "", err
		}
	}

	p, err := s.AddMessage(ctx, sess.Id, entity.ChatMessage{Role: entity.RoleAssistant, Content: WelcomeMessage})
	if err != nil {
		return "", err
	}
	if err := p.Wait(ctx); err != nil {
		return "", err
	}
	if err := s.Flush(ctx); err != nil {
		return "", err
	}
	log.Info("SEED", "Welcome session seeded", map[string]interface{}{"owner": ownerID, "session": sess.Id})
	return ownerID, nil
}

func ensureAccount(ctx context.Context, cfg *config.Config, stores *DataStores, log logger.ILogger, account SeedAccount) (string, error) {
	existing, err := stores.Users.FindByEmail(ctx, account.Email)
	if err != nil {
		return "", fmt.Errorf("lookup demo account: %w", err)
	}
	if existing != nil {
		return existing.Id, nil
	}

	auth := service.NewAuthService(stores.Users, memory.NewTokenDenylistRepository(), events.NopPublisher{}, log, service.AuthOptions{
		Secret:   cfg.Auth.JwtSecret,
		TokenTTL: cfg.Auth.JwtTTL,
	})
	resp, err := auth.SignUp(ctx, &dto.SignUpRequest{
		FullName:        account.FullName,
		Email:           account.Email,
		Password:        account.Password,
		ConfirmPassword: account.Password,
		Country:         account.Country,
	})
	if err != nil {
		return "", fmt.Errorf("create demo account: %w", err)
	}
	log.Info("SEED", "Demo account created", map[string]interface{}{"email": account.Email})
	return resp.User.Id, nil
}
