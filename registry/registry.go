// Package registry holds the ordered collection of registered tests,
// scopes and suite-level diagnostics for one suite, and enforces the
// structural rules (uniqueness, tag validity, nesting grammar and the
// registration phase) at registration time.
package registry

import (
	"sync"
	"sync/atomic"

	"github.com/specforge/specforge/events"
	"github.com/specforge/specforge/fixture"
	"github.com/specforge/specforge/style"
	"github.com/specforge/specforge/types"
)

// Phase is the suite-lifetime registration state. It transitions from
// Open to Closed exactly once, when the first test body starts executing,
// and is never reopened.
type Phase int32

const (
	PhaseOpen Phase = iota
	PhaseClosed
)

// Entry is one registered test, immutable once created.
type Entry struct {
	Name     string // style-formatted leaf name
	FullName string // scope-prefixed fully qualified name
	Tags     []string
	Ignored  bool
	Body     *fixture.Bound
	Location *types.Location

	// ScopeTokens is the name contribution of each enclosing scope,
	// outermost first.
	ScopeTokens []string
}

// Diagnostic is a suite-level info/note/alert/markup call made during
// declaration; it replays as a top-level event at its declaration
// position.
type Diagnostic struct {
	Kind    events.Kind
	Message string
}

// Child is one ordered member of a scope: exactly one field is set.
type Child struct {
	Scope      *ScopeNode
	Test       *Entry
	Diagnostic *Diagnostic
}

// ScopeNode is a named grouping contributing a textual prefix to nested
// test names. The registry root is an anonymous scope.
type ScopeNode struct {
	Clause   style.Clause
	Name     string // style-formatted token, e.g. "Feature: Login"
	FullName string
	Children []Child
}

// Registry owns the suite's registration state. Mutation happens on the
// single constructing call stack while the phase is open; after the phase
// closes the tree is read-only and safe to share across concurrent
// executors.
type Registry struct {
	mu      sync.RWMutex
	style   *style.Style
	catalog types.TagCatalog
	phase   atomic.Int32

	root    ScopeNode
	stack   []*ScopeNode
	clauses []style.Clause
	tokens  []string
	names   map[string]struct{}
	entries []*Entry
}

// New creates an open registry using the given style grammar.
func New(st *style.Style, catalog types.TagCatalog) *Registry {
	if st == nil {
		st = style.FlatStyle()
	}
	r := &Registry{
		style:   st,
		catalog: catalog,
		names:   make(map[string]struct{}),
	}
	r.stack = []*ScopeNode{&r.root}
	return r
}

// Style returns the style grammar the registry enforces.
func (r *Registry) Style() *style.Style { return r.style }

// Phase returns the current registration phase.
func (r *Registry) Phase() Phase {
	return Phase(r.phase.Load())
}

// CloseRegistration flips the phase to Closed. The transition is one-way;
// calling it again is a no-op.
func (r *Registry) CloseRegistration() {
	r.phase.Store(int32(PhaseClosed))
}

// RegisterTest appends a test entry in declaration order. The returned
// error is one of the registration taxonomy: RegistrationClosedError,
// NullTagError, DuplicateNameError, or a body-shape error.
func (r *Registry) RegisterTest(name string, body any, ignored bool, loc *types.Location, tags ...string) error {
	if r.Phase() == PhaseClosed {
		return &types.RegistrationClosedError{Name: name}
	}
	if err := types.ValidateTags(tags); err != nil {
		return err
	}

	bound, err := fixture.Bind(body)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	leaf := r.style.FormatTestName(name)
	full := r.style.ComposeName(r.tokens, leaf)
	if _, dup := r.names[full]; dup {
		return &types.DuplicateNameError{Name: full}
	}
	r.names[full] = struct{}{}

	if ignored && !types.NewTagSet(tags).Has(r.catalog.Ignore) {
		tags = append(append([]string{}, tags...), r.catalog.Ignore)
	}

	entry := &Entry{
		Name:        leaf,
		FullName:    full,
		Tags:        tags,
		Ignored:     ignored,
		Body:        bound,
		Location:    loc,
		ScopeTokens: append([]string{}, r.tokens...),
	}
	parent := r.stack[len(r.stack)-1]
	parent.Children = append(parent.Children, Child{Test: entry})
	r.entries = append(r.entries, entry)
	return nil
}

// OpenScope opens a named scope, runs body to collect its registrations,
// and closes the scope again. Grammar violations and duplicate scope
// names surface before body runs.
func (r *Registry) OpenScope(clause style.Clause, name string, body func()) error {
	if r.Phase() == PhaseClosed {
		return &types.RegistrationClosedError{Name: name}
	}

	token, err := r.style.ScopeToken(clause, name)
	if err != nil {
		return err
	}
	if outer, ok := r.style.CheckNesting(r.clauses, clause); !ok {
		return &types.InvalidNestingError{Outer: string(outer), Inner: string(clause)}
	}

	r.mu.Lock()
	full := r.style.ComposeName(r.tokens, token)
	if _, dup := r.names[full]; dup {
		r.mu.Unlock()
		return &types.DuplicateNameError{Name: full}
	}
	r.names[full] = struct{}{}

	node := &ScopeNode{Clause: clause, Name: token, FullName: full}
	parent := r.stack[len(r.stack)-1]
	parent.Children = append(parent.Children, Child{Scope: node})

	r.stack = append(r.stack, node)
	r.clauses = append(r.clauses, clause)
	r.tokens = append(r.tokens, token)
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.stack = r.stack[:len(r.stack)-1]
		r.clauses = r.clauses[:len(r.clauses)-1]
		r.tokens = r.tokens[:len(r.tokens)-1]
		r.mu.Unlock()
	}()

	body()
	return nil
}

// AddDiagnostic records a suite-level diagnostic at the current position.
func (r *Registry) AddDiagnostic(kind events.Kind, message string) error {
	if r.Phase() == PhaseClosed {
		return &types.RegistrationClosedError{Name: message}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	parent := r.stack[len(r.stack)-1]
	parent.Children = append(parent.Children, Child{
		Diagnostic: &Diagnostic{Kind: kind, Message: message},
	})
	return nil
}

// Entries returns every registered test in declaration order.
func (r *Registry) Entries() []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Root returns the registration tree. Callers must not mutate it.
func (r *Registry) Root() *ScopeNode {
	return &r.root
}

// TestNames returns the fully qualified names in declaration order,
// never sorted.
func (r *Registry) TestNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.entries))
	for i, e := range r.entries {
		names[i] = e.FullName
	}
	return names
}
