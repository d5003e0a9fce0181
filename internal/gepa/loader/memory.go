// Package loader provides the default data-loader implementation: an
// in-memory ordered list addressed by integer id.
package loader

import (
	"fmt"

	"github.com/gepa-run/gepa-engine/internal/domain"
)

// InMemory is the default DataLoader backing: an ordered slice of
// instances, ids are their positional index.
type InMemory[D any] struct {
	items []D
}

func NewInMemory[D any](items []D) *InMemory[D] {
	return &InMemory[D]{items: append([]D{}, items...)}
}

func (l *InMemory[D]) AllIDs() []int {
	ids := make([]int, len(l.items))
	for i := range l.items {
		ids[i] = i
	}
	return ids
}

func (l *InMemory[D]) Fetch(ids []int) ([]D, error) {
	out := make([]D, len(ids))
	for i, id := range ids {
		if id < 0 || id >= len(l.items) {
			return nil, domain.NewGEPAError(domain.ErrUnknownDataID, fmt.Sprintf("data id %d out of range", id))
		}
		out[i] = l.items[id]
	}
	return out, nil
}

func (l *InMemory[D]) Len() int {
	return len(l.items)
}
