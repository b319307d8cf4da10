package ai

import (
	"context"
)

// Request represents a single generateContent call for one page image.
type Request struct {
	Endpoint    Endpoint
	Model       string
	APIKey      string
	Temperature float64
	// Parts, in the order they are sent upstream
	Prompt      string // fixed instructional text
	ImageBase64 string // raw base64, no data-URL prefix
	ImageMIME   string
	Instruction string // dynamic page instruction
}

type Response struct {
	Text      string
	TokensIn  int
	TokensOut int
}

// Client interface for generative providers.
type Client interface {
	Name() string
	Do(ctx context.Context, req Request) (Response, error)
}
