package reporting

import (
	"fmt"
	"strings"

	"github.com/specforge/specforge/registry"
	"github.com/specforge/specforge/types"
	"github.com/specforge/specforge/ui"
)

// Outline renders the registration tree of one suite as a box-drawn
// hierarchy: scopes as interior nodes, tests as leaves annotated with
// their tags, ignored tests marked. Suite-level diagnostics are omitted;
// the outline shows what would run, not what would be said.
func Outline(suiteName string, root *registry.ScopeNode, catalog types.TagCatalog) string {
	var sb strings.Builder
	sb.WriteString(suiteName)
	sb.WriteString("\n")
	writeScope(&sb, root, catalog, 1, nil)
	return sb.String()
}

func writeScope(sb *strings.Builder, scope *registry.ScopeNode, catalog types.TagCatalog, depth int, parentIsLast []bool) {
	members := runnableChildren(scope)
	for i, child := range members {
		isLast := i == len(members)-1
		sb.WriteString(ui.BuildTreePrefix(depth, isLast, parentIsLast))

		switch {
		case child.Scope != nil:
			sb.WriteString(child.Scope.Name)
			sb.WriteString("\n")
			writeScope(sb, child.Scope, catalog, depth+1, append(parentIsLast, isLast))
		case child.Test != nil:
			sb.WriteString(testLabel(child.Test, catalog))
			sb.WriteString("\n")
		}
	}
}

// runnableChildren filters out diagnostic children, which have no place
// in an outline.
func runnableChildren(scope *registry.ScopeNode) []registry.Child {
	var out []registry.Child
	for _, child := range scope.Children {
		if child.Scope != nil || child.Test != nil {
			out = append(out, child)
		}
	}
	return out
}

func testLabel(e *registry.Entry, catalog types.TagCatalog) string {
	label := e.Name
	if tags := displayTags(e, catalog); len(tags) > 0 {
		label += fmt.Sprintf(" [%s]", strings.Join(tags, ", "))
	}
	if e.Ignored {
		label += " (ignored)"
	}
	return label
}

// displayTags hides the ignore marker tag; the "(ignored)" suffix already
// says it.
func displayTags(e *registry.Entry, catalog types.TagCatalog) []string {
	var out []string
	for _, tag := range e.Tags {
		if e.Ignored && tag == catalog.Ignore {
			continue
		}
		out = append(out, tag)
	}
	return out
}
