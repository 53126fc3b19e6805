package vectorindex

import (
	"context"
	"math"
	"sort"
	"sync"
)

// Memory is an in-memory Index, the collaborator fake tests and the
// demo entrypoint use in place of a real vector database — the same
// role the pack's own *_memory.go backends play behind databases.Manager.
type Memory struct {
	mu     sync.RWMutex
	chunks map[string]Chunk
}

// NewMemory constructs an empty in-memory index.
func NewMemory() *Memory {
	return &Memory{chunks: make(map[string]Chunk)}
}

func (m *Memory) Upsert(_ context.Context, chunks []Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range chunks {
		m.chunks[c.ChunkID] = c
	}
	return nil
}

func (m *Memory) Search(_ context.Context, queryEmbedding []float32, n int, filter map[string]string) ([]Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]Result, 0, len(m.chunks))
	for _, c := range m.chunks {
		if !matches(c.Metadata, filter) {
			continue
		}
		results = append(results, Result{
			ChunkID:  c.ChunkID,
			Text:     c.Text,
			Distance: cosineDistance(queryEmbedding, c.Embedding),
			Metadata: c.Metadata,
		})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].ChunkID < results[j].ChunkID
	})
	if n > 0 && len(results) > n {
		results = results[:n]
	}
	return results, nil
}

func (m *Memory) Delete(_ context.Context, where map[string]string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, c := range m.chunks {
		if matches(c.Metadata, where) {
			delete(m.chunks, id)
			removed++
		}
	}
	return removed, nil
}

func matches(metadata, filter map[string]string) bool {
	for k, v := range filter {
		if metadata[k] != v {
			return false
		}
	}
	return true
}

// cosineDistance returns 1 - cosine_similarity, clamped to [0,2].
func cosineDistance(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 2
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 2
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	d := 1 - sim
	if d < 0 {
		return 0
	}
	if d > 2 {
		return 2
	}
	return d
}
