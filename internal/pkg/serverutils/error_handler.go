package serverutils

import (
	"errors"

	"tarik-chat-be/pkg/chat/chaterr"

	"github.com/gofiber/fiber/v2"
)

// StatusFor maps an error returned by a service to its HTTP status.
func StatusFor(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, chaterr.ErrValidationFailed):
		return fiber.StatusBadRequest
	case errors.Is(err, chaterr.ErrUnauthorized):
		return fiber.StatusUnauthorized
	case errors.Is(err, chaterr.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, chaterr.ErrStoreUnavailable):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, chaterr.ErrStorageQuotaExceeded):
		return fiber.StatusInsufficientStorage
	case errors.Is(err, chaterr.ErrGenerationFailed):
		return fiber.StatusBadGateway
	}
	return fiber.StatusInternalServerError
}

// ErrorHandlerMiddleware renders errors returned further down the chain in
// the response envelope.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		if err == nil {
			return nil
		}
		code := StatusFor(err)
		message := err.Error()
		if code == fiber.StatusInternalServerError {
			message = "Internal server error"
		}
		return c.Status(code).JSON(ErrorResponse(code, message))
	}
}
