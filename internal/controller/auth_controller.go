package controller

import (
	"tarik-chat-be/internal/dto"
	"tarik-chat-be/internal/pkg/serverutils"
	"tarik-chat-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IAuthController interface {
	RegisterRoutes(r fiber.Router)
	SignUp(ctx *fiber.Ctx) error
	SignIn(ctx *fiber.Ctx) error
	SignOut(ctx *fiber.Ctx) error
	Me(ctx *fiber.Ctx) error
	UpdateMe(ctx *fiber.Ctx) error
}

type authController struct {
	service service.IAuthService
}

func NewAuthController(service service.IAuthService) IAuthController {
	return &authController{service: service}
}

func (c *authController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/auth/v1")
	h.Post("/signup", c.SignUp)
	h.Post("/signin", c.SignIn)

	jwt := serverutils.JwtMiddleware(c.service)
	h.Post("/signout", jwt, c.SignOut)
	h.Get("/me", jwt, c.Me)
	h.Put("/me", jwt, c.UpdateMe)
}

func (c *authController) SignUp(ctx *fiber.Ctx) error {
	var req dto.SignUpRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
	}
	if err := serverutils.ValidateStruct(&req); err != nil {
		return err
	}

	res, err := c.service.SignUp(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Account created", res))
}

func (c *authController) SignIn(ctx *fiber.Ctx) error {
	var req dto.SignInRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
	}
	if err := serverutils.ValidateStruct(&req); err != nil {
		return err
	}

	res, err := c.service.SignIn(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Signed in", res))
}

func (c *authController) SignOut(ctx *fiber.Ctx) error {
	token, _ := ctx.Locals(serverutils.LocalToken).(string)
	if err := c.service.SignOut(ctx.UserContext(), token); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Signed out", nil))
}

func (c *authController) Me(ctx *fiber.Ctx) error {
	userID, _ := ctx.Locals(serverutils.LocalUserID).(string)
	res, err := c.service.Me(ctx.UserContext(), userID)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Current user", res))
}

func (c *authController) UpdateMe(ctx *fiber.Ctx) error {
	userID, _ := ctx.Locals(serverutils.LocalUserID).(string)

	var req dto.UpdateProfileRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
	}
	if err := serverutils.ValidateStruct(&req); err != nil {
		return err
	}

	res, err := c.service.UpdateProfile(ctx.UserContext(), userID, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Profile updated", res))
}
