package graph

// DescendantsOf returns the ids of every node whose parent chain passes
// through rootID, excluding rootID itself.
//
// The walk tracks visited ids and never revisits one. If a parent chain
// loops back, the finite set collected so far is returned together with
// ErrCycle; callers must not treat that result as complete.
func DescendantsOf(rootID string, nodes []Node) (Set, error) {
	children := childIndex(nodes)
	out := make(Set)
	visited := Set{rootID: {}}
	var cyclic bool

	stack := []string{rootID}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, child := range children[id] {
			if !visited.Add(child) {
				cyclic = true
				continue
			}
			out.Add(child)
			stack = append(stack, child)
		}
	}

	if cyclic {
		return out, ErrCycle
	}
	return out, nil
}

// childIndex maps a parent id to its children in node order.
func childIndex(nodes []Node) map[string][]string {
	idx := make(map[string][]string)
	for _, n := range nodes {
		if n.ParentID != "" {
			idx[n.ParentID] = append(idx[n.ParentID], n.ID)
		}
	}
	return idx
}
