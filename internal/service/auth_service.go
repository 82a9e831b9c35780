package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tarik-chat-be/internal/dto"
	"tarik-chat-be/internal/entity"
	"tarik-chat-be/internal/pkg/logger"
	"tarik-chat-be/internal/repository/contract"
	"tarik-chat-be/pkg/chat/chaterr"
	"tarik-chat-be/pkg/events"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const DefaultTokenTTL = 24 * time.Hour

var errInvalidCredentials = fmt.Errorf("invalid credentials: %w", chaterr.ErrUnauthorized)

type IAuthService interface {
	SignUp(ctx context.Context, req *dto.SignUpRequest) (*dto.AuthResponse, error)
	SignIn(ctx context.Context, req *dto.SignInRequest) (*dto.AuthResponse, error)
	SignOut(ctx context.Context, token string) error
	// Authenticate validates a bearer token and loads its user.
	Authenticate(ctx context.Context, token string) (*entity.User, error)
	Me(ctx context.Context, userID string) (*dto.UserDTO, error)
	UpdateProfile(ctx context.Context, userID string, req *dto.UpdateProfileRequest) (*dto.UserDTO, error)
}

// TokenClaims are the claims of an access token. ID (jti) is what sign-out
// revokes.
type TokenClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

type AuthOptions struct {
	Secret   string
	TokenTTL time.Duration
	// OnSignOut runs after a token is revoked, e.g. to release the owner's store.
	OnSignOut func(ctx context.Context, userID string)
}

type authService struct {
	users     contract.UserRepository
	denylist  contract.TokenDenylistRepository
	publisher events.Publisher
	logger    logger.ILogger
	opts      AuthOptions
	now       func() time.Time
}

func NewAuthService(users contract.UserRepository, denylist contract.TokenDenylistRepository, publisher events.Publisher, log logger.ILogger, opts AuthOptions) IAuthService {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = DefaultTokenTTL
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &authService{
		users:     users,
		denylist:  denylist,
		publisher: publisher,
		logger:    log,
		opts:      opts,
		now:       time.Now,
	}
}

func (s *authService) SignUp(ctx context.Context, req *dto.SignUpRequest) (*dto.AuthResponse, error) {
	if req.Password != req.ConfirmPassword {
		return nil, chaterr.Validation("passwords do not match")
	}
	existing, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, chaterr.Validation("email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &entity.User{
		Id:           uuid.NewString(),
		DisplayName:  strings.TrimSpace(req.FullName),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Country:      req.Country,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	if err := s.publisher.Publish(ctx, events.UserSignedUp(user.Id, user.Country)); err != nil {
		s.logger.Warn("AuthService", "Failed to publish sign-up event", map[string]interface{}{"error": err.Error()})
	}
	s.logger.Info("AuthService", "User signed up", map[string]interface{}{"user_id": user.Id})
	return s.issue(user)
}

func (s *authService) SignIn(ctx context.Context, req *dto.SignInRequest) (*dto.AuthResponse, error) {
	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, errInvalidCredentials
	}
	return s.issue(user)
}

func (s *authService) issue(user *entity.User) (*dto.AuthResponse, error) {
	now := s.now()
	expires := now.Add(s.opts.TokenTTL)
	claims := TokenClaims{
		UserID: user.Id,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.Id,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.opts.Secret))
	if err != nil {
		return nil, err
	}
	return &dto.AuthResponse{
		AccessToken: signed,
		ExpiresAt:   expires.UTC(),
		User:        toUserDTO(user),
	}, nil
}

func (s *authService) parse(token string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.opts.Secret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid || claims.UserID == "" {
		return nil, fmt.Errorf("invalid token: %w", chaterr.ErrUnauthorized)
	}
	return claims, nil
}

func (s *authService) Authenticate(ctx context.Context, token string) (*entity.User, error) {
	claims, err := s.parse(token)
	if err != nil {
		return nil, err
	}
	revoked, err := s.denylist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, fmt.Errorf("token revoked: %w", chaterr.ErrUnauthorized)
	}

	user, err := s.users.FindById(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("unknown user: %w", chaterr.ErrUnauthorized)
	}
	return user, nil
}

func (s *authService) SignOut(ctx context.Context, token string) error {
	claims, err := s.parse(token)
	if err != nil {
		return err
	}
	ttl := s.opts.TokenTTL
	if claims.ExpiresAt != nil {
		ttl = claims.ExpiresAt.Time.Sub(s.now())
	}
	if err := s.denylist.Revoke(ctx, claims.ID, ttl); err != nil {
		return err
	}
	if s.opts.OnSignOut != nil {
		s.opts.OnSignOut(ctx, claims.UserID)
	}
	s.logger.Info("AuthService", "User signed out", map[string]interface{}{"user_id": claims.UserID})
	return nil
}

func (s *authService) Me(ctx context.Context, userID string) (*dto.UserDTO, error) {
	user, err := s.users.FindById(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, chaterr.ErrNotFound
	}
	out := toUserDTO(user)
	return &out, nil
}

func (s *authService) UpdateProfile(ctx context.Context, userID string, req *dto.UpdateProfileRequest) (*dto.UserDTO, error) {
	if req.DisplayName != nil {
		name := strings.TrimSpace(*req.DisplayName)
		if name == "" {
			return nil, chaterr.Validation("display name cannot be empty")
		}
		req.DisplayName = &name
	}
	if req.DisplayName != nil || req.Country != nil {
		if err := s.users.UpdateProfile(ctx, userID, req.DisplayName, req.Country); err != nil {
			return nil, err
		}
	}

	if req.NewPassword != nil && *req.NewPassword != "" {
		if req.ConfirmNewPassword == nil || *req.ConfirmNewPassword != *req.NewPassword {
			return nil, chaterr.Validation("passwords do not match")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		if err := s.users.UpdatePassword(ctx, userID, string(hash)); err != nil {
			return nil, err
		}
	}
	return s.Me(ctx, userID)
}

func toUserDTO(u *entity.User) dto.UserDTO {
	return dto.UserDTO{
		Id:          u.Id,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Country:     u.Country,
		CreatedAt:   u.CreatedAt,
	}
}
