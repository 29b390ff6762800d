package sources

import (
	"jobpilot/internal/domain/model"
	"jobpilot/internal/domain/ports/adapter"
)

// Registry maps source ids to their adapters.
type Registry struct {
	adapters map[model.SourceID]adapter.SourceAdapter
}

func NewRegistry(adapters ...adapter.SourceAdapter) *Registry {
	r := &Registry{adapters: map[model.SourceID]adapter.SourceAdapter{}}
	for _, a := range adapters {
		r.adapters[a.ID()] = a
	}
	return r
}

func (r *Registry) Register(a adapter.SourceAdapter) {
	r.adapters[a.ID()] = a
}

func (r *Registry) Get(id model.SourceID) (adapter.SourceAdapter, bool) {
	a, ok := r.adapters[id]
	return a, ok
}

// IDs returns the registered source ids in declaration order of AllSources.
func (r *Registry) IDs() []model.SourceID {
	var out []model.SourceID
	for _, id := range model.AllSources {
		if _, ok := r.adapters[id]; ok {
			out = append(out, id)
		}
	}
	return out
}
