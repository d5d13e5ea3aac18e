package vector

import "context"

// Embedder is the external collaborator contract (§6.4): given text,
// deterministically produce a Vector of the configured dimension. The ML
// model behind it is out of scope for DANEEL; only this contract is.
type Embedder interface {
	Embed(ctx context.Context, text string) (Vector, error)
	Dimension() int
}

// NullEmbedder satisfies Embedder when no embedding backend is configured.
// It always returns the zero vector and never errors, so the engine keeps
// running (§6.4). It does not set thought.PreEmbedding, and no caller in
// this module sets that flag for its output.
type NullEmbedder struct {
	Dim int
}

func (n NullEmbedder) Embed(ctx context.Context, text string) (Vector, error) {
	return Zero(n.Dim), nil
}

func (n NullEmbedder) Dimension() int {
	return n.Dim
}
