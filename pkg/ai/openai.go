package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	aiDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "nobody",
		Subsystem: "ai",
		Name:      "generation_duration_seconds",
		Help:      "Duration of persona reply generation requests",
	}, []string{"model"})

	aiFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nobody",
		Subsystem: "ai",
		Name:      "generation_failures_total",
		Help:      "Number of persona reply generation failures",
	}, []string{"model"})
)

// OpenAIConfig defines configuration options for the OpenAI responder.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
	Logger      zerolog.Logger
}

// OpenAIResponder implements Responder against the OpenAI chat completion API.
type OpenAIResponder struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIResponder builds a new responder using the provided configuration.
func NewOpenAIResponder(cfg OpenAIConfig) (*OpenAIResponder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4-turbo-preview"
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 100
	}

	if cfg.Temperature == 0 {
		cfg.Temperature = 0.8
	}

	tracer := otel.Tracer("github.com/nobody-social/nobody-api/pkg/ai/openai")
	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	config := openai.DefaultConfig(cfg.APIKey)
	client := openai.NewClientWithConfig(config)

	return &OpenAIResponder{
		client: client,
		cfg:    cfg,
		tracer: tracer,
		logger: logger,
	}, nil
}

// GenerateReply sends one completion request and returns the first choice
// verbatim. There is no retry and no fallback; any failure propagates.
func (r *OpenAIResponder) GenerateReply(parent context.Context, persona PersonaProfile, prompt, conversationContext string) (string, error) {
	ctx, span := r.tracer.Start(parent, "openai.generate_reply", trace.WithAttributes(
		attribute.String("model", r.cfg.Model),
		attribute.String("persona", persona.Name),
	))
	defer span.End()

	userPrompt := prompt
	if conversationContext != "" {
		userPrompt = fmt.Sprintf("Conversation so far:\n%s\n\n%s", conversationContext, prompt)
	}

	start := time.Now()
	request := openai.ChatCompletionRequest{
		Model:       r.cfg.Model,
		MaxTokens:   r.cfg.MaxTokens,
		Temperature: r.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: personaSystemPrompt(persona),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: userPrompt,
			},
		},
	}

	resp, err := r.client.CreateChatCompletion(ctx, request)
	aiDuration.WithLabelValues(r.cfg.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		aiFailures.WithLabelValues(r.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("openai generate reply: %w", err)
	}

	if len(resp.Choices) == 0 {
		err := fmt.Errorf("no choices returned from openai")
		aiFailures.WithLabelValues(r.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	return resp.Choices[0].Message.Content, nil
}

func personaSystemPrompt(persona PersonaProfile) string {
	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("You are %s, an anonymous user in %s.\n\n", persona.Name, persona.City))
	builder.WriteString(fmt.Sprintf("Your personality traits: %s\n", strings.Join(persona.Traits, ", ")))
	builder.WriteString(fmt.Sprintf("Your bio: %s\n", persona.Bio))
	builder.WriteString(fmt.Sprintf("Topics you often discuss: %s\n\n", strings.Join(persona.Topics, ", ")))
	builder.WriteString("Respond in character with a casual, conversational tone. ")
	builder.WriteString("Keep responses concise (under 280 characters). ")
	builder.WriteString("Be authentic to your persona and city culture. Never reveal you're an AI.")
	return builder.String()
}
