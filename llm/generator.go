// Package llm defines the contract with the external text-generation
// collaborator. The cache core only depends on this package's types; the
// concrete client (assistant API, request timeouts, rate limiting) lives
// behind the Generator interface.
package llm

import "context"

// Chunk is one increment of a streamed answer. A chunk with a non-nil Err is
// terminal: the stream failed and no further chunks follow. A stream that
// closes without an Err chunk completed successfully.
type Chunk struct {
	Data []byte
	Err  error
}

// Generator produces an answer for a query as a lazy, finite,
// non-restartable sequence of byte chunks. The returned channel is closed by
// the implementation when the stream ends, successfully or not.
//
// Request-level timeouts (typically 30-60s) are owned by the implementation,
// not by callers.
type Generator interface {
	Generate(ctx context.Context, namespaceID, query string) (<-chan Chunk, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, namespaceID, query string) (<-chan Chunk, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, namespaceID, query string) (<-chan Chunk, error) {
	return f(ctx, namespaceID, query)
}
