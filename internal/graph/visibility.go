package graph

// ApplyFocus derives node and edge visibility for the given focus. An empty
// focusID is the unfocused state.
//
// Root-level nodes are always visible. With a focus, the focused node and
// all of its descendants are visible and every other parented node is
// hidden. An edge is visible only when it touches the focused node, so no
// edge shows while unfocused. Edges among descendants are not revealed.
//
// The result depends only on (focusID, g); applying the same focus twice
// yields the same graph.
func ApplyFocus(g Graph, focusID string) Graph {
	shown := make(Set)
	if focusID != "" {
		shown.Add(focusID)
		// A cyclic chain still reveals what was reachable.
		desc, _ := DescendantsOf(focusID, g.Nodes)
		for id := range desc {
			shown.Add(id)
		}
	}

	nodes := make([]Node, len(g.Nodes))
	for i, n := range g.Nodes {
		n.Visible = n.IsRoot() || shown.Has(n.ID)
		nodes[i] = n
	}

	edges := make([]Edge, len(g.Edges))
	for i, e := range g.Edges {
		e.Visible = focusID != "" && e.Touches(focusID)
		edges[i] = e
	}

	return Graph{Nodes: nodes, Edges: edges}
}

// VisibleIDs returns the ids of visible nodes in graph order.
func (g Graph) VisibleIDs() []string {
	var out []string
	for _, n := range g.Nodes {
		if n.Visible {
			out = append(out, n.ID)
		}
	}
	return out
}

// Visible returns the subgraph a rendering surface draws: visible nodes and
// visible edges, in graph order.
func (g Graph) Visible() Graph {
	out := Graph{Nodes: []Node{}, Edges: []Edge{}}
	for _, n := range g.Nodes {
		if n.Visible {
			out.Nodes = append(out.Nodes, n)
		}
	}
	for _, e := range g.Edges {
		if e.Visible {
			out.Edges = append(out.Edges, e)
		}
	}
	return out
}
