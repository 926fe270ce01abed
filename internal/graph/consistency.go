package graph

import "fmt"

// Check scans a graph for dangling references, duplicate ids and parent
// cycles. It reports, it never repairs.
func Check(g Graph) []Warning {
	var warnings []Warning

	known := make(Set, len(g.Nodes))
	for _, n := range g.Nodes {
		if !known.Add(n.ID) {
			warnings = append(warnings, Warning{
				Kind:    WarnDuplicateSystem,
				Subject: n.ID,
				Detail:  "node id appears more than once",
			})
		}
	}

	parent := make(map[string]string, len(g.Nodes))
	for _, n := range g.Nodes {
		if n.ParentID == "" {
			continue
		}
		parent[n.ID] = n.ParentID
		if !known.Has(n.ParentID) {
			warnings = append(warnings, Warning{
				Kind:    WarnDanglingParent,
				Subject: n.ID,
				Detail:  fmt.Sprintf("parent %q is not a system", n.ParentID),
			})
		}
	}

	// Walk up from every node; a chain that returns to a node already on
	// the current path is a cycle. Each cycle is reported once.
	reported := make(Set)
	done := make(Set)
	for _, n := range g.Nodes {
		path := make(Set)
		for id := n.ID; id != "" && !done.Has(id); id = parent[id] {
			if !path.Add(id) {
				if reported.Add(id) {
					warnings = append(warnings, Warning{
						Kind:    WarnCycle,
						Subject: id,
						Detail:  "parent chain loops back to this system",
					})
				}
				break
			}
		}
		for id := range path {
			done.Add(id)
		}
	}

	for _, e := range g.Edges {
		for _, end := range []string{e.Source, e.Target} {
			if !known.Has(end) {
				warnings = append(warnings, Warning{
					Kind:    WarnDanglingEdge,
					Subject: e.ID,
					Detail:  fmt.Sprintf("endpoint %q is not a system", end),
				})
			}
		}
	}
	return warnings
}
