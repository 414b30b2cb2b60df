// internal/board/registry.go
package board

// Registry holds the fixed set of boards, in configuration order.
// It is built once at startup and never mutated afterwards.
type Registry struct {
	boards []*Board
	byKey  map[string]*Board
}

func NewRegistry(boards ...*Board) *Registry {
	r := &Registry{
		boards: boards,
		byKey:  make(map[string]*Board, len(boards)),
	}
	for _, b := range boards {
		r.byKey[b.Key()] = b
	}
	return r
}

func (r *Registry) Get(key string) (*Board, bool) {
	b, ok := r.byKey[key]
	return b, ok
}

// All returns the boards in configuration order. The slice is shared;
// callers must not mutate it.
func (r *Registry) All() []*Board {
	return r.boards
}
