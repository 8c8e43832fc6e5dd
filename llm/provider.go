package llm

import (
	"context"
	"errors"
)

var (
	ErrNotSupported = errors.New("operation not supported by provider")

	// ErrInvocationTimeout reports that the generation service did not
	// answer within the node's deadline.
	ErrInvocationTimeout = errors.New("llm: invocation timed out")

	// ErrInvocationRejected reports that the generation service refused
	// the request at its boundary (safety filter, validation failure).
	ErrInvocationRejected = errors.New("llm: invocation rejected")
)

type Capabilities struct {
	Streaming        bool
	StructuredOutput bool
}

// Provider is the generation-service collaborator consumed by prompt
// nodes. The protocol behind it is opaque to the engine.
type Provider interface {
	Name() string
	Capabilities() Capabilities
	Generate(ctx context.Context, req Request) (Response, error)
}

// StreamingProvider is implemented by providers that can emit
// incremental text chunks terminated by a final full result.
type StreamingProvider interface {
	Provider
	GenerateStream(ctx context.Context, req Request, onChunk func(StreamChunk) error) (Response, error)
}
