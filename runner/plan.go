package runner

import (
	"github.com/specforge/specforge/filter"
	"github.com/specforge/specforge/registry"
)

type actionKind int

const (
	actionScopeOpen actionKind = iota
	actionScopeClose
	actionTest
	actionIgnored
	actionDiagnostic
)

// action is one step of a run plan: open or close a scope, execute a
// test, report an ignored test, or replay a suite-level diagnostic.
type action struct {
	kind  actionKind
	scope *registry.ScopeNode
	entry *registry.Entry
	diag  *registry.Diagnostic
}

// buildPlan flattens the registration tree into an ordered action list,
// applying the filter as it walks. Scopes whose entire subtree filtered
// away are pruned so no empty open/close pair reaches the event stream.
func buildPlan(root *registry.ScopeNode, f *filter.Filter) ([]action, error) {
	var walk func(node *registry.ScopeNode) ([]action, error)
	walk = func(node *registry.ScopeNode) ([]action, error) {
		var out []action
		for _, child := range node.Children {
			switch {
			case child.Test != nil:
				d, err := f.Decide(child.Test)
				if err != nil {
					return nil, err
				}
				switch d {
				case filter.DecisionRun:
					out = append(out, action{kind: actionTest, entry: child.Test})
				case filter.DecisionIgnore:
					out = append(out, action{kind: actionIgnored, entry: child.Test})
				}
			case child.Scope != nil:
				inner, err := walk(child.Scope)
				if err != nil {
					return nil, err
				}
				if len(inner) == 0 {
					continue
				}
				out = append(out, action{kind: actionScopeOpen, scope: child.Scope})
				out = append(out, inner...)
				out = append(out, action{kind: actionScopeClose, scope: child.Scope})
			case child.Diagnostic != nil:
				out = append(out, action{kind: actionDiagnostic, diag: child.Diagnostic})
			}
		}
		return out, nil
	}
	return walk(root)
}

// testCount reports how many executable tests the plan contains.
func testCount(plan []action) int {
	n := 0
	for _, a := range plan {
		if a.kind == actionTest {
			n++
		}
	}
	return n
}
