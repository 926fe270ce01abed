package graph

import "fmt"

// Graph is an immutable snapshot of nodes and edges. Operations on a Graph
// return a new value and leave the receiver's slices untouched, so a reader
// holding a snapshot never observes a half-applied change.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Build converts raw records into a graph. Nodes are ordered so every
// parent precedes all of its descendants: a pre-order walk from each root
// in input order, visiting children in input order.
//
// Inconsistent input never fails the batch. Each problem is reported as a
// Warning and the affected records are kept so the inconsistency stays
// visible to Check.
func Build(systems []SystemRecord, interfaces []InterfaceEdge, hierarchy []HierarchyEdge) (Graph, []Warning) {
	var warnings []Warning

	parentOf := make(map[string]string, len(hierarchy))
	for _, h := range hierarchy {
		if prev, ok := parentOf[h.ChildID]; ok && prev != h.ParentID {
			warnings = append(warnings, Warning{
				Kind:    WarnDuplicateChild,
				Subject: h.ChildID,
				Detail:  fmt.Sprintf("parent %q replaced by %q", prev, h.ParentID),
			})
		}
		parentOf[h.ChildID] = h.ParentID
	}

	nodes := make([]Node, 0, len(systems))
	known := make(Set, len(systems))
	for _, s := range systems {
		if !known.Add(s.Name) {
			warnings = append(warnings, Warning{
				Kind:    WarnDuplicateSystem,
				Subject: s.Name,
				Detail:  fmt.Sprintf("record %q ignored", s.ID),
			})
			continue
		}
		nodes = append(nodes, newNode(s, parentOf[s.Name]))
	}

	ordered, orderWarnings := orderByHierarchy(nodes, known)
	warnings = append(warnings, orderWarnings...)

	edges := make([]Edge, 0, len(interfaces))
	for _, iface := range interfaces {
		e := newEdge(iface)
		for _, end := range []string{e.Source, e.Target} {
			if !known.Has(end) {
				warnings = append(warnings, Warning{
					Kind:    WarnDanglingEdge,
					Subject: e.ID,
					Detail:  fmt.Sprintf("endpoint %q is not a system", end),
				})
			}
		}
		edges = append(edges, e)
	}

	return Graph{Nodes: ordered, Edges: edges}, warnings
}

// newNode derives a graph node from a record. Nodes with a parent start
// hidden; only root-level systems are visible before any navigation.
func newNode(s SystemRecord, parentID string) Node {
	key := attributeKey(s.ID, s.Name)
	return Node{
		ID:       s.Name,
		Label:    s.Name,
		Category: s.Category,
		ParentID: parentID,
		RecordID: s.ID,
		Color:    ColorOf(key),
		Position: PositionOf(key),
		Visible:  parentID == "",
	}
}

func newEdge(iface InterfaceEdge) Edge {
	return Edge{
		ID:          iface.ID,
		Source:      iface.SystemAID,
		Target:      iface.SystemBID,
		Label:       iface.ConnectionType,
		Directional: iface.Directional,
	}
}

// orderByHierarchy returns nodes in parent-first pre-order. Walks start at
// roots and at nodes whose parent is not a known system; anything left over
// sits on a cycle and is appended in input order.
func orderByHierarchy(nodes []Node, known Set) ([]Node, []Warning) {
	var warnings []Warning
	children := make(map[string][]int)
	for i, n := range nodes {
		if n.ParentID != "" && known.Has(n.ParentID) {
			children[n.ParentID] = append(children[n.ParentID], i)
		}
	}

	ordered := make([]Node, 0, len(nodes))
	placed := make([]bool, len(nodes))

	var walk func(i int)
	walk = func(i int) {
		if placed[i] {
			return
		}
		placed[i] = true
		ordered = append(ordered, nodes[i])
		for _, c := range children[nodes[i].ID] {
			walk(c)
		}
	}

	for i, n := range nodes {
		switch {
		case n.ParentID == "":
			walk(i)
		case !known.Has(n.ParentID):
			warnings = append(warnings, Warning{
				Kind:    WarnDanglingParent,
				Subject: n.ID,
				Detail:  fmt.Sprintf("parent %q is not a system", n.ParentID),
			})
			walk(i)
		}
	}

	for i, n := range nodes {
		if !placed[i] {
			warnings = append(warnings, Warning{
				Kind:    WarnCycle,
				Subject: n.ID,
				Detail:  "unreachable from any root",
			})
			placed[i] = true
			ordered = append(ordered, n)
		}
	}
	return ordered, warnings
}
