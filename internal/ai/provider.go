package ai

import "context"

// Generator is the single capability the client needs from a hosted model.
// Implementations make exactly one backend call per method invocation.
type Generator interface {
	// GenerateStructured sends an image plus instructions and returns the raw
	// JSON text the model produced under schema.
	GenerateStructured(ctx context.Context, req StructuredRequest) (string, error)
	// GenerateText sends a text prompt and returns the raw reply.
	GenerateText(ctx context.Context, req TextRequest) (string, error)
}

// InlineImage is an image payload carried alongside text instructions.
type InlineImage struct {
	Data     string // base64, not re-validated here
	MIMEType string
}

// StructuredRequest asks for a JSON reply constrained by Schema.
type StructuredRequest struct {
	Image       InlineImage
	Prompt      string
	Schema      *Schema
	SchemaName  string
	Temperature float32
}

// TextRequest asks for free-form text.
type TextRequest struct {
	Prompt      string
	Temperature float32
}
