// Package vectorindex defines the VectorIndex collaborator: a dense
// vector store for chunked document text, named only via its interface
// per the external-collaborator boundary — generalized from the
// FullTextSearch/VectorStore split in the pack's own persistence layer
// down to the single embedding-backed surface the core actually needs.
package vectorindex

import "context"

// Chunk is a single unit of vector-indexed text. Chunks belonging to the
// same ContractID share a stable ordering of (SectionName, ChunkIndex).
type Chunk struct {
	ChunkID     string
	ContractID  string
	SectionName string
	ChunkIndex  int
	Text        string
	Embedding   []float32
	Metadata    map[string]string
}

// Result is a single nearest-neighbour hit. Distance is in [0,2]; the
// core converts RelevanceScore = 1 - distance, clamped to [0,1].
type Result struct {
	ChunkID  string
	Text     string
	Distance float64
	Metadata map[string]string
}

// RelevanceScore converts r's distance into the core's [0,1] relevance
// convention.
func (r Result) RelevanceScore() float64 {
	s := 1 - r.Distance
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

// Index is the VectorIndex collaborator surface.
type Index interface {
	// Upsert writes or replaces chunks by ChunkID.
	Upsert(ctx context.Context, chunks []Chunk) error
	// Search returns up to n nearest neighbours to queryEmbedding,
	// optionally restricted by filter (exact metadata match on every key).
	Search(ctx context.Context, queryEmbedding []float32, n int, filter map[string]string) ([]Result, error)
	// Delete removes every chunk whose metadata matches every key in where,
	// returning the number removed.
	Delete(ctx context.Context, where map[string]string) (int, error)
}
