package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/nobody-social/nobody-api/internal/dto"
	"github.com/nobody-social/nobody-api/internal/personas"
	"github.com/nobody-social/nobody-api/internal/utils"
	"github.com/nobody-social/nobody-api/pkg/ai"
)

// AIHandler exposes the persona completion endpoint. The persona is resolved
// from the catalog before any completion call is made.
type AIHandler struct {
	responder ai.Responder
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewAIHandler constructs the AI handler. A nil responder keeps the route
// registered but answering 503, so a missing API key never blocks boot.
func NewAIHandler(responder ai.Responder, validate *validator.Validate, logger zerolog.Logger) *AIHandler {
	return &AIHandler{
		responder: responder,
		validator: validate,
		logger:    logger.With().Str("component", "ai_handler").Logger(),
	}
}

// Register wires the AI routes under the provided router group.
func (h *AIHandler) Register(router fiber.Router) {
	router.Post("/generate-response", h.generate)
}

func (h *AIHandler) generate(c *fiber.Ctx) error {
	var payload dto.GenerateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	persona, ok := personas.FindByID(payload.PersonaID)
	if !ok {
		return utils.SendError(c, fiber.StatusNotFound, "persona not found")
	}

	if h.responder == nil {
		return utils.SendError(c, fiber.StatusServiceUnavailable, "ai generation is not configured")
	}

	profile := ai.PersonaProfile{
		Name:   persona.Name,
		City:   persona.City.DisplayName(),
		Bio:    persona.Bio,
		Traits: persona.Traits,
		Topics: persona.Topics,
	}

	reply, err := h.responder.GenerateReply(requestContext(c), profile, payload.Prompt, payload.Context)
	if err != nil {
		h.logger.Error().Err(err).Str("persona_id", payload.PersonaID).Msg("completion failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to generate response")
	}

	return utils.SendSuccess(c, "generated response", dto.GenerateResponse{Response: reply})
}
