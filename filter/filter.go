// Package filter decides which registered tests run, which report as
// ignored, and which disappear from the run entirely.
package filter

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/specforge/specforge/registry"
	"github.com/specforge/specforge/types"
)

// Filter selects tests by tag membership, a compiled tag expression and
// name globs. The zero value runs everything except explicitly excluded
// tags; the reserved ignore tag is always part of the exclude set.
type Filter struct {
	// Include, when non-nil, is a whitelist: a test must carry at least
	// one included tag to be considered at all. A nil include set admits
	// every test; an empty non-nil set admits none.
	Include types.TagSet

	// Exclude drops tests carrying any excluded tag. Exclusion by the
	// reserved ignore tag reports the test as ignored; every other
	// exclusion is silent.
	Exclude types.TagSet

	// Expression is an optional predicate over the test's name and tags,
	// e.g. `"slow" not in Tags or Name matches "cache"`. Tests failing
	// the predicate are dropped silently.
	Expression *vm.Program

	// NameGlobs match against the slash-joined scope path of the fully
	// qualified name. Empty means no name restriction.
	NameGlobs []string

	Catalog types.TagCatalog
}

// exprEnv is the environment a filter expression evaluates against.
type exprEnv struct {
	Name string   `expr:"Name"`
	Tags []string `expr:"Tags"`
}

// New builds a filter from raw tag lists and an optional expression
// source. The reserved ignore tag is appended to the exclude set
// unconditionally.
func New(catalog types.TagCatalog, include, exclude []string, expression string, nameGlobs []string) (*Filter, error) {
	f := &Filter{
		Include:   types.NewTagSet(include),
		Catalog:   catalog,
		NameGlobs: nameGlobs,
	}

	excluded := append(append([]string{}, exclude...), catalog.Ignore)
	f.Exclude = types.NewTagSet(excluded)

	if expression != "" {
		prog, err := expr.Compile(expression, expr.Env(exprEnv{}), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("invalid filter expression %q: %w", expression, err)
		}
		f.Expression = prog
	}

	for _, g := range nameGlobs {
		if !doublestar.ValidatePattern(g) {
			return nil, fmt.Errorf("invalid name glob %q", g)
		}
	}
	return f, nil
}

// Default is the filter applied when the caller supplies none: no
// includes, no globs, no expression, only the reserved ignore tag
// excluded.
func Default(catalog types.TagCatalog) *Filter {
	f, _ := New(catalog, nil, nil, "", nil)
	return f
}

// Decision is the filter's verdict for one test.
type Decision int

const (
	// DecisionRun schedules the test for execution.
	DecisionRun Decision = iota
	// DecisionIgnore keeps the test visible as a TestIgnored event.
	DecisionIgnore
	// DecisionDrop removes the test from the run without a trace.
	DecisionDrop
)

// Selection partitions a registry's entries. Both slices preserve
// declaration order.
type Selection struct {
	Run     []*registry.Entry
	Ignored []*registry.Entry
}

// Decide applies the filter stages to one entry. Order matters: the
// include gate runs first, then silent excludes, then the name and
// expression predicates, and only tests that survive all of those are
// checked for the ignore tag.
func (f *Filter) Decide(e *registry.Entry) (Decision, error) {
	tags := types.NewTagSet(e.Tags)

	if f.Include != nil && !f.Include.Intersects(e.Tags) {
		return DecisionDrop, nil
	}
	for tag := range f.Exclude {
		if tag == f.Catalog.Ignore {
			continue
		}
		if tags.Has(tag) {
			return DecisionDrop, nil
		}
	}
	if ok, err := f.matchesName(e); err != nil {
		return DecisionDrop, err
	} else if !ok {
		return DecisionDrop, nil
	}
	if f.Expression != nil {
		out, err := expr.Run(f.Expression, exprEnv{Name: e.FullName, Tags: e.Tags})
		if err != nil {
			return DecisionDrop, fmt.Errorf("filter expression failed on %q: %w", e.FullName, err)
		}
		if !out.(bool) {
			return DecisionDrop, nil
		}
	}
	if e.Ignored || (f.Exclude.Has(f.Catalog.Ignore) && tags.Has(f.Catalog.Ignore)) {
		return DecisionIgnore, nil
	}
	return DecisionRun, nil
}

func (f *Filter) matchesName(e *registry.Entry) (bool, error) {
	if len(f.NameGlobs) == 0 {
		return true, nil
	}
	path := strings.Join(append(append([]string{}, e.ScopeTokens...), e.Name), "/")
	for _, g := range f.NameGlobs {
		ok, err := doublestar.Match(g, path)
		if err != nil {
			return false, fmt.Errorf("name glob %q: %w", g, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// Select partitions entries into tests to run and tests to report as
// ignored, in declaration order.
func (f *Filter) Select(entries []*registry.Entry) (Selection, error) {
	var sel Selection
	for _, e := range entries {
		d, err := f.Decide(e)
		if err != nil {
			return Selection{}, err
		}
		switch d {
		case DecisionRun:
			sel.Run = append(sel.Run, e)
		case DecisionIgnore:
			sel.Ignored = append(sel.Ignored, e)
		}
	}
	return sel, nil
}
