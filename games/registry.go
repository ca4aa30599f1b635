package games

import (
	"fmt"
	"sort"
	"strings"
)

// Registry maps a gameId to its Module. It is filled once at startup and only
// read afterwards.
type Registry struct {
	modules map[string]Module
}

func NewRegistry(modules ...Module) *Registry {
	r := &Registry{modules: make(map[string]Module)}
	for _, m := range modules {
		r.modules[m.GameID()] = m
	}
	return r
}

// Lookup returns the module for gameID, or false when none is registered.
func (r *Registry) Lookup(gameID string) (Module, bool) {
	m, ok := r.modules[gameID]
	return m, ok
}

// Validate checks a gameId given to the create-room entry point.
func (r *Registry) Validate(gameID string) error {
	if strings.TrimSpace(gameID) == "" {
		return fmt.Errorf("%w: gameId is required", ErrBadRequest)
	}
	if _, ok := r.modules[gameID]; !ok {
		return fmt.Errorf("%w: %q", ErrConfiguration, gameID)
	}
	return nil
}

// GameIDs lists the registered games in sorted order.
func (r *Registry) GameIDs() []string {
	ids := make([]string, 0, len(r.modules))
	for id := range r.modules {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
