package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/nobody-social/nobody-api/internal/dto"
	"github.com/nobody-social/nobody-api/internal/middleware"
	"github.com/nobody-social/nobody-api/internal/service"
	"github.com/nobody-social/nobody-api/internal/utils"
)

// AuthHandler wires signup, login, and the current-profile endpoint.
type AuthHandler struct {
	service service.AuthService
	logger  zerolog.Logger
}

// NewAuthHandler constructs an auth handler.
func NewAuthHandler(service service.AuthService, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  logger.With().Str("component", "auth_handler").Logger(),
	}
}

// Register wires auth routes under the provided router group. Signup and login
// stay open; the profile endpoint requires a session.
func (h *AuthHandler) Register(router fiber.Router, protect fiber.Handler) {
	router.Post("/signup", h.signUp)
	router.Post("/login", h.login)
	router.Get("/me", protect, h.me)
}

func (h *AuthHandler) signUp(c *fiber.Ctx) error {
	var payload dto.SignUpRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	response, err := h.service.SignUp(requestContext(c), payload)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailTaken):
			return utils.SendError(c, fiber.StatusConflict, "email already registered")
		case errors.Is(err, service.ErrInvalidCity), isValidationError(err):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		default:
			h.logger.Error().Err(err).Msg("failed to create account")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to create account")
		}
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "account created", response)
}

func (h *AuthHandler) login(c *fiber.Ctx) error {
	var payload dto.LoginRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	response, err := h.service.Login(requestContext(c), payload)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid email or password")
		case isValidationError(err):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		default:
			h.logger.Error().Err(err).Msg("failed to authenticate")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to authenticate")
		}
	}

	return utils.SendSuccess(c, "authenticated", response)
}

func (h *AuthHandler) me(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	profile, err := h.service.Profile(requestContext(c), userID)
	if err != nil {
		return utils.SendError(c, fiber.StatusNotFound, "profile not found")
	}

	return utils.SendSuccess(c, "profile", profile)
}
