package ai

import "context"

// PersonaProfile describes the identity the completion should speak as.
type PersonaProfile struct {
	Name   string
	City   string
	Bio    string
	Traits []string
	Topics []string
}

// Responder generates an in-character reply for a persona.
type Responder interface {
	GenerateReply(ctx context.Context, persona PersonaProfile, prompt, conversationContext string) (string, error)
}
