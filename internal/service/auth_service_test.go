package service

import (
	"context"
	"testing"
	"time"

	"tarik-chat-be/internal/dto"
	"tarik-chat-be/internal/pkg/logger"
	"tarik-chat-be/internal/repository/memory"
	"tarik-chat-be/pkg/chat/chaterr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuth(t *testing.T, onSignOut func(context.Context, string)) IAuthService {
	t.Helper()
	return NewAuthService(memory.NewUserRepository(), memory.NewTokenDenylistRepository(), nil, logger.NewNopLogger(), AuthOptions{
		Secret:    "test-secret",
		TokenTTL:  time.Hour,
		OnSignOut: onSignOut,
	})
}

func signUpAlice(t *testing.T, auth IAuthService) *dto.AuthResponse {
	t.Helper()
	res, err := auth.SignUp(context.Background(), &dto.SignUpRequest{
		FullName:        "Alice Abebe",
		Email:           "Alice@Example.com",
		Password:        "secret1",
		ConfirmPassword: "secret1",
		Country:         "ET",
	})
	require.NoError(t, err)
	return res
}

func TestAuth_SignUpSignInAuthenticate(t *testing.T) {
	ctx := context.Background()
	auth := newAuth(t, nil)

	up := signUpAlice(t, auth)
	assert.NotEmpty(t, up.AccessToken)
	assert.Equal(t, "alice@example.com", up.User.Email)
	assert.Equal(t, "Alice Abebe", up.User.DisplayName)

	in, err := auth.SignIn(ctx, &dto.SignInRequest{Email: "alice@example.com", Password: "secret1"})
	require.NoError(t, err)

	u, err := auth.Authenticate(ctx, in.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, up.User.Id, u.Id)

	_, err = auth.SignIn(ctx, &dto.SignInRequest{Email: "alice@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, chaterr.ErrUnauthorized)
	_, err = auth.SignIn(ctx, &dto.SignInRequest{Email: "nobody@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, chaterr.ErrUnauthorized)
}

func TestAuth_SignUpRejectsDuplicatesAndMismatch(t *testing.T) {
	ctx := context.Background()
	auth := newAuth(t, nil)
	signUpAlice(t, auth)

	_, err := auth.SignUp(ctx, &dto.SignUpRequest{FullName: "Alice", Email: "alice@example.com", Password: "secret1", ConfirmPassword: "secret1", Country: "ET"})
	assert.ErrorIs(t, err, chaterr.ErrValidationFailed)

	_, err = auth.SignUp(ctx, &dto.SignUpRequest{FullName: "Bob", Email: "bob@example.com", Password: "secret1", ConfirmPassword: "secret2", Country: "KE"})
	assert.ErrorIs(t, err, chaterr.ErrValidationFailed)
}

func TestAuth_SignOutRevokesToken(t *testing.T) {
	ctx := context.Background()
	var released string
	auth := newAuth(t, func(_ context.Context, userID string) { released = userID })
	up := signUpAlice(t, auth)

	require.NoError(t, auth.SignOut(ctx, up.AccessToken))
	assert.Equal(t, up.User.Id, released)

	_, err := auth.Authenticate(ctx, up.AccessToken)
	assert.ErrorIs(t, err, chaterr.ErrUnauthorized)
}

func TestAuth_RejectsForeignAndGarbageTokens(t *testing.T) {
	ctx := context.Background()
	other := NewAuthService(memory.NewUserRepository(), memory.NewTokenDenylistRepository(), nil, logger.NewNopLogger(), AuthOptions{Secret: "other"})
	foreign := signUpAlice(t, other)

	auth := newAuth(t, nil)
	_, err := auth.Authenticate(ctx, foreign.AccessToken)
	assert.ErrorIs(t, err, chaterr.ErrUnauthorized)
	_, err = auth.Authenticate(ctx, "not-a-jwt")
	assert.ErrorIs(t, err, chaterr.ErrUnauthorized)
}

func TestAuth_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	auth := newAuth(t, nil)
	up := signUpAlice(t, auth)

	name := "  Alice A.  "
	me, err := auth.UpdateProfile(ctx, up.User.Id, &dto.UpdateProfileRequest{DisplayName: &name})
	require.NoError(t, err)
	assert.Equal(t, "Alice A.", me.DisplayName)
	assert.Equal(t, "ET", me.Country)

	pw, confirm := "newsecret", "different"
	_, err = auth.UpdateProfile(ctx, up.User.Id, &dto.UpdateProfileRequest{NewPassword: &pw, ConfirmNewPassword: &confirm})
	assert.ErrorIs(t, err, chaterr.ErrValidationFailed)

	_, err = auth.UpdateProfile(ctx, up.User.Id, &dto.UpdateProfileRequest{NewPassword: &pw, ConfirmNewPassword: &pw})
	require.NoError(t, err)
	_, err = auth.SignIn(ctx, &dto.SignInRequest{Email: "alice@example.com", Password: "newsecret"})
	assert.NoError(t, err)
}

func TestContextAuthenticator(t *testing.T) {
	_, ok := ContextAuthenticator{}.CurrentUser(context.Background())
	assert.False(t, ok)
}
