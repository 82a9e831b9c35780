package serverutils

import (
	"context"
	"strings"

	"tarik-chat-be/internal/entity"
	"tarik-chat-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

const (
	LocalUserID = "user_id"
	LocalToken  = "token"
)

type TokenAuthenticator interface {
	Authenticate(ctx context.Context, token string) (*entity.User, error)
}

// BearerToken reads the token from the Authorization header, falling back to
// the token query parameter used by browser websocket clients.
func BearerToken(ctx *fiber.Ctx) string {
	authHeader := ctx.Get("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return authHeader[7:]
	}
	return ctx.Query("token")
}

// JwtMiddleware resolves the caller and stores it in the request's user
// context, where service.UserFromContext finds it.
func JwtMiddleware(auth TokenAuthenticator) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		tokenStr := BearerToken(ctx)
		if tokenStr == "" {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Missing token"))
		}

		user, err := auth.Authenticate(ctx.UserContext(), tokenStr)
		if err != nil {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Invalid token"))
		}

		ctx.Locals(LocalUserID, user.Id)
		ctx.Locals(LocalToken, tokenStr)
		ctx.SetUserContext(service.WithUser(ctx.UserContext(), user))
		return ctx.Next()
	}
}

// CurrentUser returns the user placed by JwtMiddleware.
func CurrentUser(ctx *fiber.Ctx) (*entity.User, bool) {
	return service.UserFromContext(ctx.UserContext())
}
