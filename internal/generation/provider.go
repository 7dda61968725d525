package generation

import "context"

// Request is what a provider receives for one generation.
type Request struct {
	Prompt   string
	ImageURL string
	// Image holds the input bytes for providers that take inline data.
	Image []byte
	// Input is the composed provider payload (prompt, image and extras).
	Input map[string]any
}

// Provider invokes an external image model and returns its raw response,
// to be classified by ResolveOutput.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req Request) (any, error)
}
