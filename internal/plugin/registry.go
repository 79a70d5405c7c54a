package plugin

import (
	"strings"
	"sync"

	"git.home.luguber.info/nixcloud/pankat/internal/article"
)

// Directive is a named transformation over (argument string, article record)
// that mutates rec and returns the text that replaces the matched
// [[!name args]] token in the output body.
type Directive func(arg string, rec *article.Record) (string, error)

// Registry maps directive names to their implementation. Name matching is
// case-insensitive: Register and Get both normalize to lower-case.
type Registry struct {
	mu         sync.RWMutex
	directives map[string]Directive
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{directives: make(map[string]Directive)}
}

// Register adds or replaces the implementation for name.
func (r *Registry) Register(name string, d Directive) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.directives[strings.ToLower(name)] = d
}

// Get retrieves the implementation registered for name.
func (r *Registry) Get(name string) (Directive, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.directives[strings.ToLower(name)]
	return d, ok
}

// DefaultRegistry returns a new registry pre-populated with the eight
// directives the compile pipeline understands out of the box.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("title", Title)
	r.Register("summary", Summary)
	r.Register("series", Series)
	r.Register("tag", Tag)
	r.Register("draft", Draft)
	r.Register("specialpage", SpecialPage)
	r.Register("meta", Meta)
	r.Register("img", Img)
	return r
}
