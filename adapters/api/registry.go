package api

import (
	"sync"

	"nullbench/domain/core"
	"nullbench/ports"
)

// ScorerRegistry resolves scorer names to implementations. A Go function
// cannot cross HTTP, so callers name a scorer registered in-process instead
// of injecting one.
type ScorerRegistry struct {
	mu      sync.RWMutex
	scorers map[string]ports.ScorerPort
}

// NewScorerRegistry creates an empty registry
func NewScorerRegistry() *ScorerRegistry {
	return &ScorerRegistry{scorers: make(map[string]ports.ScorerPort)}
}

// Register adds a scorer under its own name
func (r *ScorerRegistry) Register(scorer ports.ScorerPort) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scorers[scorer.Name()] = scorer
}

// Get resolves a scorer by name
func (r *ScorerRegistry) Get(name string) (ports.ScorerPort, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	scorer, ok := r.scorers[name]
	if !ok {
		return nil, core.ErrUnknownScorer
	}
	return scorer, nil
}

// Names lists registered scorer names
func (r *ScorerRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.scorers))
	for name := range r.scorers {
		names = append(names, name)
	}
	return names
}
