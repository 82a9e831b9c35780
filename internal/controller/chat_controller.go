package controller

import (
	"tarik-chat-be/internal/dto"
	"tarik-chat-be/internal/entity"
	"tarik-chat-be/internal/pkg/serverutils"
	"tarik-chat-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	ListSessions(ctx *fiber.Ctx) error
	ActiveSession(ctx *fiber.Ctx) error
	CreateSession(ctx *fiber.Ctx) error
	RenameSession(ctx *fiber.Ctx) error
	DeleteSession(ctx *fiber.Ctx) error
	ActivateSession(ctx *fiber.Ctx) error
	ClearMessages(ctx *fiber.Ctx) error
	SubmitTurn(ctx *fiber.Ctx) error
	GetLanguage(ctx *fiber.Ctx) error
	SetLanguage(ctx *fiber.Ctx) error
}

type chatController struct {
	service service.IChatService
	auth    serverutils.TokenAuthenticator
}

func NewChatController(service service.IChatService, auth serverutils.TokenAuthenticator) IChatController {
	return &chatController{service: service, auth: auth}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat/v1", serverutils.JwtMiddleware(c.auth))
	h.Get("/sessions", c.ListSessions)
	h.Get("/sessions/active", c.ActiveSession)
	h.Post("/sessions", c.CreateSession)
	h.Put("/sessions/:id", c.RenameSession)
	h.Delete("/sessions/:id", c.DeleteSession)
	h.Post("/sessions/:id/activate", c.ActivateSession)
	h.Delete("/sessions/:id/messages", c.ClearMessages)
	h.Post("/sessions/:id/turns", c.SubmitTurn)
	h.Get("/language", c.GetLanguage)
	h.Put("/language", c.SetLanguage)
}

func ownerOf(ctx *fiber.Ctx) string {
	userID, _ := ctx.Locals(serverutils.LocalUserID).(string)
	return userID
}

func (c *chatController) ListSessions(ctx *fiber.Ctx) error {
	res, err := c.service.ListSessions(ctx.UserContext(), ownerOf(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Sessions", res))
}

func (c *chatController) ActiveSession(ctx *fiber.Ctx) error {
	res, err := c.service.ActiveSession(ctx.UserContext(), ownerOf(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Active session", res))
}

func (c *chatController) CreateSession(ctx *fiber.Ctx) error {
	var req dto.CreateSessionRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
		}
	}
	if err := serverutils.ValidateStruct(&req); err != nil {
		return err
	}

	res, err := c.service.CreateSession(ctx.UserContext(), ownerOf(ctx), &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Session created", res))
}

func (c *chatController) RenameSession(ctx *fiber.Ctx) error {
	var req dto.RenameSessionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
	}
	if err := serverutils.ValidateStruct(&req); err != nil {
		return err
	}

	if err := c.service.RenameSession(ctx.UserContext(), ownerOf(ctx), ctx.Params("id"), &req); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Session renamed", nil))
}

func (c *chatController) DeleteSession(ctx *fiber.Ctx) error {
	if err := c.service.DeleteSession(ctx.UserContext(), ownerOf(ctx), ctx.Params("id")); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Session deleted", nil))
}

func (c *chatController) ActivateSession(ctx *fiber.Ctx) error {
	if err := c.service.ActivateSession(ctx.UserContext(), ownerOf(ctx), ctx.Params("id")); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Session activated", nil))
}

func (c *chatController) ClearMessages(ctx *fiber.Ctx) error {
	if err := c.service.ClearMessages(ctx.UserContext(), ownerOf(ctx), ctx.Params("id")); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Messages cleared", nil))
}

func (c *chatController) SubmitTurn(ctx *fiber.Ctx) error {
	user, ok := serverutils.CurrentUser(ctx)
	if !ok {
		return fiber.ErrUnauthorized
	}

	var req dto.SubmitTurnRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
	}
	if err := serverutils.ValidateStruct(&req); err != nil {
		return err
	}

	res, err := c.service.SubmitTurn(ctx.UserContext(), user, ctx.Params("id"), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Turn "+res.State, res))
}

func (c *chatController) GetLanguage(ctx *fiber.Ctx) error {
	lang := c.service.GetLanguage(ctx.UserContext(), ownerOf(ctx))
	return ctx.JSON(serverutils.SuccessResponse("Language", dto.LanguageResponse{Language: lang}))
}

func (c *chatController) SetLanguage(ctx *fiber.Ctx) error {
	var req dto.SetLanguageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
	}
	if err := serverutils.ValidateStruct(&req); err != nil {
		return err
	}

	lang := entity.Language(req.Language)
	if err := c.service.SetLanguage(ctx.UserContext(), ownerOf(ctx), lang); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Language updated", dto.LanguageResponse{Language: lang}))
}
