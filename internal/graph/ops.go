package graph

import "fmt"

// Node returns the node with the given id.
func (g Graph) Node(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// HasNode reports whether a node with the given id exists.
func (g Graph) HasNode(id string) bool {
	_, ok := g.Node(id)
	return ok
}

// Edge returns the edge with the given id.
func (g Graph) Edge(id string) (Edge, bool) {
	for _, e := range g.Edges {
		if e.ID == id {
			return e, true
		}
	}
	return Edge{}, false
}

// NodeIDs returns all node ids in graph order.
func (g Graph) NodeIDs() []string {
	out := make([]string, len(g.Nodes))
	for i, n := range g.Nodes {
		out[i] = n.ID
	}
	return out
}

// Stats counts nodes and edges.
func (g Graph) Stats() Stats {
	var s Stats
	s.NodeCount = len(g.Nodes)
	s.EdgeCount = len(g.Edges)
	for _, n := range g.Nodes {
		if n.IsRoot() {
			s.RootCount++
		}
		if n.Visible {
			s.VisibleNodes++
		}
	}
	for _, e := range g.Edges {
		if e.Visible {
			s.VisibleEdges++
		}
	}
	return s
}

// WithSystem appends a node for a newly created system. The parent, when
// given, already precedes the new node, so parent-first order holds.
func (g Graph) WithSystem(s SystemRecord, parentID string) Graph {
	nodes := make([]Node, len(g.Nodes), len(g.Nodes)+1)
	copy(nodes, g.Nodes)
	nodes = append(nodes, newNode(s, parentID))
	return Graph{Nodes: nodes, Edges: g.Edges}
}

// Rename changes a node's key from oldID to newID and rewrites every
// reference to it: the node's own id and label, the ParentID of each child,
// and the Source/Target of each incident edge. The category is replaced.
// Renaming to the same id only updates the category.
func (g Graph) Rename(oldID, newID, category string) (Graph, error) {
	if !g.HasNode(oldID) {
		return g, fmt.Errorf("rename %q: no such node", oldID)
	}
	if newID != oldID && g.HasNode(newID) {
		return g, fmt.Errorf("rename %q: %q already exists", oldID, newID)
	}

	nodes := make([]Node, len(g.Nodes))
	for i, n := range g.Nodes {
		if n.ID == oldID {
			n.ID = newID
			n.Label = newID
			n.Category = category
		}
		if n.ParentID == oldID {
			n.ParentID = newID
		}
		nodes[i] = n
	}

	edges := make([]Edge, len(g.Edges))
	for i, e := range g.Edges {
		if e.Source == oldID {
			e.Source = newID
		}
		if e.Target == oldID {
			e.Target = newID
		}
		edges[i] = e
	}
	return Graph{Nodes: nodes, Edges: edges}, nil
}

// DeletePolicy decides what happens to the descendants of a deleted system.
type DeletePolicy string

const (
	// DeleteReparent moves the children of the deleted system to its
	// parent, or makes them root-level when it had none.
	DeleteReparent DeletePolicy = "reparent"
	// DeleteCascade removes the whole subtree.
	DeleteCascade DeletePolicy = "cascade"
)

// Valid reports whether p is a known policy.
func (p DeletePolicy) Valid() bool {
	return p == DeleteReparent || p == DeleteCascade
}

// Removal describes the effect of deleting a system, computed before any
// write so the store and the graph can be changed the same way.
type Removal struct {
	Root       string       `json:"root"`
	Policy     DeletePolicy `json:"policy"`
	Nodes      []string     `json:"nodes"`                // removed node ids, graph order
	Edges      []string     `json:"edges"`                // removed edge ids
	Reparented []string     `json:"reparented,omitempty"` // children moved to NewParent
	NewParent  string       `json:"newParent,omitempty"`  // "" means the children became roots
}

// PlanRemoval computes which nodes and edges a delete removes under policy.
// Incident edges of every removed node are always removed.
func (g Graph) PlanRemoval(id string, policy DeletePolicy) (Removal, error) {
	target, ok := g.Node(id)
	if !ok {
		return Removal{}, fmt.Errorf("delete %q: no such node", id)
	}
	if !policy.Valid() {
		return Removal{}, fmt.Errorf("delete %q: unknown policy %q", id, policy)
	}

	r := Removal{Root: id, Policy: policy}
	removed := Set{id: {}}
	switch policy {
	case DeleteCascade:
		desc, err := DescendantsOf(id, g.Nodes)
		if err != nil {
			return Removal{}, fmt.Errorf("delete %q: %w", id, err)
		}
		for d := range desc {
			removed.Add(d)
		}
	case DeleteReparent:
		r.NewParent = target.ParentID
		for _, n := range g.Nodes {
			if n.ParentID == id {
				r.Reparented = append(r.Reparented, n.ID)
			}
		}
	}

	for _, n := range g.Nodes {
		if removed.Has(n.ID) {
			r.Nodes = append(r.Nodes, n.ID)
		}
	}
	for _, e := range g.Edges {
		if removed.Has(e.Source) || removed.Has(e.Target) {
			r.Edges = append(r.Edges, e.ID)
		}
	}
	return r, nil
}

// ApplyRemoval returns the graph with r applied.
func (g Graph) ApplyRemoval(r Removal) Graph {
	gone := make(Set, len(r.Nodes))
	for _, id := range r.Nodes {
		gone.Add(id)
	}
	moved := make(Set, len(r.Reparented))
	for _, id := range r.Reparented {
		moved.Add(id)
	}
	goneEdges := make(Set, len(r.Edges))
	for _, id := range r.Edges {
		goneEdges.Add(id)
	}

	nodes := make([]Node, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		if gone.Has(n.ID) {
			continue
		}
		if moved.Has(n.ID) {
			n.ParentID = r.NewParent
		}
		nodes = append(nodes, n)
	}

	edges := make([]Edge, 0, len(g.Edges))
	for _, e := range g.Edges {
		if !goneEdges.Has(e.ID) {
			edges = append(edges, e)
		}
	}
	return Graph{Nodes: nodes, Edges: edges}
}

// WithInterface appends an edge for a newly created interface.
func (g Graph) WithInterface(iface InterfaceEdge) Graph {
	edges := make([]Edge, len(g.Edges), len(g.Edges)+1)
	copy(edges, g.Edges)
	edges = append(edges, newEdge(iface))
	return Graph{Nodes: g.Nodes, Edges: edges}
}

// ReplaceInterface swaps the edge with iface.ID for one built from iface,
// keeping its position in the edge list.
func (g Graph) ReplaceInterface(iface InterfaceEdge) Graph {
	edges := make([]Edge, len(g.Edges))
	for i, e := range g.Edges {
		if e.ID == iface.ID {
			e = newEdge(iface)
		}
		edges[i] = e
	}
	return Graph{Nodes: g.Nodes, Edges: edges}
}

// WithoutInterface drops the edge with the given id.
func (g Graph) WithoutInterface(id string) Graph {
	edges := make([]Edge, 0, len(g.Edges))
	for _, e := range g.Edges {
		if e.ID != id {
			edges = append(edges, e)
		}
	}
	return Graph{Nodes: g.Nodes, Edges: edges}
}
