// Package llm provides interfaces and implementations for LLM completion clients
package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
)

// LLMClient defines the interface for interacting with large language models.
// Implementations send exactly one request per call and do not retry; retry
// policy belongs to the caller.
type LLMClient interface {
	// Complete sends the request and returns the raw completion text.
	// Rate limiting, overload and server errors are reported as *TransientError.
	Complete(ctx context.Context, req Request) (string, error)
}

// Request is a single completion request.
type Request struct {
	// System carries the instructions for the model.
	System string

	// Prompt is the user content.
	Prompt string

	// SchemaName names the structured output schema (required by some providers).
	SchemaName string

	// Schema constrains the response shape. When nil the model is only asked
	// for a JSON object.
	Schema json.Marshaler

	// Image is an optional inline image sent alongside the prompt.
	Image *Image
}

// Image is an inline image attachment.
type Image struct {
	Data     []byte
	MIMEType string
}

// Base64 returns the image data base64-encoded.
func (i *Image) Base64() string {
	return base64.StdEncoding.EncodeToString(i.Data)
}

// DataURL returns the image as a data: URL.
func (i *Image) DataURL() string {
	return "data:" + i.MIMEType + ";base64," + i.Base64()
}
