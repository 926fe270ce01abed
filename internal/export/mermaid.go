package export

import (
	"fmt"
	"strings"

	"github.com/dusk-indust/systrav/internal/graph"
)

// MermaidOptions controls diagram output.
type MermaidOptions struct {
	// VisibleOnly limits the diagram to nodes and edges visible under the
	// graph's current focus.
	VisibleOnly bool
}

// GenerateMermaid produces a Mermaid graph TD diagram. Hierarchy links are
// dotted, interfaces are solid and labeled with their connection type;
// undirected interfaces have no arrowhead. Each node is filled with its
// derived color.
func GenerateMermaid(g graph.Graph, opts MermaidOptions) string {
	// Mermaid ids must be alphanumeric; system names are not.
	nodeIDs := make(map[string]string, len(g.Nodes))
	for i, n := range g.Nodes {
		if opts.VisibleOnly && !n.Visible {
			continue
		}
		nodeIDs[n.ID] = fmt.Sprintf("N%d", i)
	}

	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, n := range g.Nodes {
		id, ok := nodeIDs[n.ID]
		if !ok {
			continue
		}
		label := escapeLabel(n.Label)
		if n.Category != "" {
			label += "<br/><i>" + escapeLabel(n.Category) + "</i>"
		}
		sb.WriteString(fmt.Sprintf("  %s[\"%s\"]\n", id, label))
	}

	for _, n := range g.Nodes {
		child, ok := nodeIDs[n.ID]
		if !ok || n.ParentID == "" {
			continue
		}
		if parent, ok := nodeIDs[n.ParentID]; ok {
			sb.WriteString(fmt.Sprintf("  %s -.-> %s\n", parent, child))
		}
	}

	for _, e := range g.Edges {
		if opts.VisibleOnly && !e.Visible {
			continue
		}
		src, ok1 := nodeIDs[e.Source]
		tgt, ok2 := nodeIDs[e.Target]
		if !ok1 || !ok2 {
			continue
		}
		link := "---"
		if e.Directional {
			link = "-->"
		}
		if e.Label != "" {
			sb.WriteString(fmt.Sprintf("  %s %s|\"%s\"| %s\n", src, link, escapeLabel(e.Label), tgt))
		} else {
			sb.WriteString(fmt.Sprintf("  %s %s %s\n", src, link, tgt))
		}
	}

	for _, n := range g.Nodes {
		if id, ok := nodeIDs[n.ID]; ok && n.Color != "" {
			sb.WriteString(fmt.Sprintf("  style %s fill:%s\n", id, n.Color))
		}
	}

	return sb.String()
}

// escapeLabel replaces characters that end a quoted Mermaid label.
func escapeLabel(s string) string {
	return strings.NewReplacer(`"`, "#quot;", "\n", " ").Replace(s)
}
