package graphstore

import (
	"context"
	"sync"
)

// Memory is an in-memory Store used by tests and the demo entrypoint.
type Memory struct {
	mu    sync.RWMutex
	nodes map[string]Node
	edges map[string]map[string]map[string]map[string]any // srcID -> rel -> dstID -> props
	// inbound mirrors edges in reverse for every relationship type, so
	// Neighbors can answer the undirected single-hop query Neighbors
	// promises without a second traversal.
	inbound map[string]map[string]map[string]struct{} // dstID -> rel -> set(srcID)
}

// NewMemory constructs an empty in-memory graph.
func NewMemory() *Memory {
	return &Memory{
		nodes:   make(map[string]Node),
		edges:   make(map[string]map[string]map[string]map[string]any),
		inbound: make(map[string]map[string]map[string]struct{}),
	}
}

func (m *Memory) UpsertNode(_ context.Context, id string, labels []string, props map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.nodes[id]
	if !ok {
		m.nodes[id] = Node{ID: id, Labels: labels, Props: cloneProps(props)}
		return nil
	}
	merged := cloneProps(existing.Props)
	for k, v := range props {
		merged[k] = v
	}
	existing.Labels = mergeLabels(existing.Labels, labels)
	existing.Props = merged
	m.nodes[id] = existing
	return nil
}

func (m *Memory) UpsertEdge(_ context.Context, srcID, rel, dstID string, props map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putEdge(srcID, rel, dstID, props)

	byRel, ok := m.inbound[dstID]
	if !ok {
		byRel = make(map[string]map[string]struct{})
		m.inbound[dstID] = byRel
	}
	set, ok := byRel[rel]
	if !ok {
		set = make(map[string]struct{})
		byRel[rel] = set
	}
	set[srcID] = struct{}{}
	return nil
}

func (m *Memory) putEdge(srcID, rel, dstID string, props map[string]any) {
	byRel, ok := m.edges[srcID]
	if !ok {
		byRel = make(map[string]map[string]map[string]any)
		m.edges[srcID] = byRel
	}
	byDst, ok := byRel[rel]
	if !ok {
		byDst = make(map[string]map[string]any)
		byRel[rel] = byDst
	}
	byDst[dstID] = cloneProps(props)
}

func (m *Memory) removeEdge(srcID, rel, dstID string) {
	if byRel, ok := m.edges[srcID]; ok {
		if byDst, ok := byRel[rel]; ok {
			delete(byDst, dstID)
		}
	}
	if byRel, ok := m.inbound[dstID]; ok {
		if set, ok := byRel[rel]; ok {
			delete(set, srcID)
		}
	}
}

// Neighbors returns the union of outbound and inbound single-hop
// connections of id via rel, deduplicated.
func (m *Memory) Neighbors(_ context.Context, id, rel string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]struct{})
	for dst := range m.edges[id][rel] {
		seen[dst] = struct{}{}
	}
	for src := range m.inbound[id][rel] {
		seen[src] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	return out, nil
}

func (m *Memory) NeighborNodes(_ context.Context, id, rel string) ([]Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]struct{})
	for dst := range m.edges[id][rel] {
		seen[dst] = struct{}{}
	}
	for src := range m.inbound[id][rel] {
		seen[src] = struct{}{}
	}
	out := make([]Node, 0, len(seen))
	for nid := range seen {
		if n, ok := m.nodes[nid]; ok {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *Memory) GetNode(_ context.Context, id string) (Node, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.nodes[id]
	return n, ok, nil
}

func (m *Memory) DeleteContract(_ context.Context, contractID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if byRel, ok := m.edges[contractID]; ok {
		for _, rel := range []string{RelContains, RelHasRisk} {
			for dstID := range byRel[rel] {
				delete(m.nodes, dstID)
				m.removeEdge(contractID, rel, dstID)
			}
		}
	}
	delete(m.edges, contractID)

	for srcID := range m.inbound[contractID][RelPartyTo] {
		m.removeEdge(srcID, RelPartyTo, contractID)
	}
	delete(m.inbound, contractID)

	delete(m.nodes, contractID)
	return nil
}

func cloneProps(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func mergeLabels(existing, incoming []string) []string {
	set := make(map[string]struct{}, len(existing)+len(incoming))
	out := make([]string, 0, len(existing)+len(incoming))
	for _, l := range append(append([]string{}, existing...), incoming...) {
		if _, ok := set[l]; ok {
			continue
		}
		set[l] = struct{}{}
		out = append(out, l)
	}
	return out
}
