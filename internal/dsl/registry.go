package dsl

import (
	"fmt"
	"sync"
)

// ParseFunc parses one clause body. The parser is positioned just inside
// the body's opening brace; the func consumes through its closing brace.
type ParseFunc func(p *Parser) (QueryBuilder, error)

// ReadFunc decodes one clause's variant payload from the wire stream.
// Shared boost/name metadata is handled by StreamInput.ReadQuery.
type ReadFunc func(in *StreamInput) (QueryBuilder, error)

// Registry maps clause names to their structured-parse and wire-decode
// functions. Generic tree-walking code dispatches through it without
// knowing concrete variants.
type Registry struct {
	mu      sync.RWMutex
	parsers map[string]ParseFunc
	readers map[string]ReadFunc
}

// NewRegistry creates a Registry with the built-in clauses registered.
func NewRegistry() *Registry {
	r := &Registry{
		parsers: make(map[string]ParseFunc),
		readers: make(map[string]ReadFunc),
	}
	r.mustRegister(TermName, parseTerm, readTerm)
	r.mustRegister(MatchName, parseMatch, readMatch)
	r.mustRegister(BoolName, parseBool, readBool)
	r.mustRegister(MatchAllName, parseMatchAll, readMatchAll)
	r.mustRegister(MatchNoneName, parseMatchNone, readMatchNone)
	r.mustRegister(ConstantScoreName, parseConstantScore, readConstantScore)
	return r
}

// Register adds a custom clause to the registry.
func (r *Registry) Register(name string, parse ParseFunc, read ReadFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.parsers[name]; exists {
		return fmt.Errorf("query clause already registered: %q", name)
	}
	r.parsers[name] = parse
	r.readers[name] = read
	return nil
}

func (r *Registry) mustRegister(name string, parse ParseFunc, read ReadFunc) {
	if err := r.Register(name, parse, read); err != nil {
		panic(err)
	}
}

func (r *Registry) parser(name string) ParseFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.parsers[name]
}

func (r *Registry) reader(name string) ReadFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.readers[name]
}

// Names returns the names of all registered clauses.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.parsers))
	for name := range r.parsers {
		names = append(names, name)
	}
	return names
}
