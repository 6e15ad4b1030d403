package handler_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/nobody-social/nobody-api/internal/dto"
	"github.com/nobody-social/nobody-api/internal/handler"
	"github.com/nobody-social/nobody-api/pkg/ai"
)

type mockResponder struct {
	calls       int
	reply       string
	err         error
	lastPersona ai.PersonaProfile
	lastPrompt  string
}

func (m *mockResponder) GenerateReply(_ context.Context, persona ai.PersonaProfile, prompt, _ string) (string, error) {
	m.calls++
	m.lastPersona = persona
	m.lastPrompt = prompt
	return m.reply, m.err
}

func newAIApp(responder ai.Responder) *fiber.App {
	app := fiber.New()
	h := handler.NewAIHandler(responder, newTestValidator(), zerolog.New(io.Discard))
	h.Register(app.Group("/api/ai", fakeSession("user-1")))
	return app
}

func TestAIHandler_Generate(t *testing.T) {
	responder := &mockResponder{reply: "the fog is thick out here tonight"}
	app := newAIApp(responder)

	resp := postJSON(t, app, "/api/ai/generate-response", dto.GenerateRequest{
		Prompt:    "what's the weather like?",
		PersonaID: "sf-artist",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, 1, responder.calls)
	require.Equal(t, "Marina Artist", responder.lastPersona.Name)
	require.Equal(t, "what's the weather like?", responder.lastPrompt)

	var response struct {
		Data dto.GenerateResponse `json:"data"`
	}
	decodeResponse(t, resp, &response)
	require.Equal(t, responder.reply, response.Data.Response)
}

func TestAIHandler_UnknownPersonaSkipsCompletion(t *testing.T) {
	responder := &mockResponder{reply: "never sent"}
	app := newAIApp(responder)

	resp := postJSON(t, app, "/api/ai/generate-response", dto.GenerateRequest{
		Prompt:    "hello",
		PersonaID: "sf-ghost",
	})
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	require.Zero(t, responder.calls)
}

func TestAIHandler_MissingPromptRejected(t *testing.T) {
	responder := &mockResponder{}
	app := newAIApp(responder)

	resp := postJSON(t, app, "/api/ai/generate-response", dto.GenerateRequest{PersonaID: "sf-artist"})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Zero(t, responder.calls)
}

func TestAIHandler_CompletionFailure(t *testing.T) {
	responder := &mockResponder{err: errors.New("upstream timeout")}
	app := newAIApp(responder)

	resp := postJSON(t, app, "/api/ai/generate-response", dto.GenerateRequest{
		Prompt:    "hello",
		PersonaID: "nyc-foodie",
	})
	require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}

func TestAIHandler_DisabledWithoutResponder(t *testing.T) {
	app := newAIApp(nil)

	resp := postJSON(t, app, "/api/ai/generate-response", dto.GenerateRequest{
		Prompt:    "hello",
		PersonaID: "sf-artist",
	})
	require.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}
