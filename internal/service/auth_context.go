package service

import (
	"context"

	"tarik-chat-be/internal/entity"
)

type userCtxKey struct{}

// WithUser returns ctx carrying the authenticated user.
func WithUser(ctx context.Context, u *entity.User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

func UserFromContext(ctx context.Context) (*entity.User, bool) {
	u, ok := ctx.Value(userCtxKey{}).(*entity.User)
	return u, ok && u != nil
}

// ContextAuthenticator resolves the current user from the request context
// populated by the JWT middleware.
type ContextAuthenticator struct{}

func (ContextAuthenticator) CurrentUser(ctx context.Context) (*entity.User, bool) {
	return UserFromContext(ctx)
}
