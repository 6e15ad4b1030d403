package dto

// GenerateRequest is the payload for the persona completion endpoint.
type GenerateRequest struct {
	Prompt    string `json:"prompt" validate:"required,max=2000"`
	PersonaID string `json:"persona_id" validate:"required,max=64"`
	Context   string `json:"context" validate:"omitempty,max=2000"`
}

// GenerateResponse carries the completion text verbatim.
type GenerateResponse struct {
	Response string `json:"response"`
}
