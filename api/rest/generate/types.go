package generate

import (
	"context"

	"github.com/nxtgenia/miniaturia/miniaturia/generation"
)

// header clients send to make retries safe
const IdempotencyKeyHeader = "Idempotency-Key"

// runs one credit-metered generation job
type Generator interface {
	Generate(ctx context.Context, req generation.Request) (*generation.Result, error)
}

// Request represents the request body for thumbnail generation
type Request struct {
	FullPrompt string   `json:"fullPrompt" binding:"required,max=5000"`
	ImageURLs  []string `json:"imageUrls" binding:"max=10,dive,url"`
}

// Response is returned once the image is ready
type Response struct {
	URL     string `json:"url"`
	Credits int    `json:"credits"`
	TaskID  string `json:"taskId,omitempty"`
}
