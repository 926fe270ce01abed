package graph

// Attachment is an interface seen from a group of systems: the edge and the
// system at its far end. When the far end is not a known system, Other
// carries only its name.
type Attachment struct {
	Edge  Edge `json:"edge"`
	Other Node `json:"other"`
}

// InterfacesOf returns, in edge order, every edge with at least one endpoint
// in ids. The far end is the target unless only the target is in ids.
func (g Graph) InterfacesOf(ids Set) []Attachment {
	out := []Attachment{}
	for _, e := range g.Edges {
		if !ids.Has(e.Source) && !ids.Has(e.Target) {
			continue
		}
		far := e.Target
		if ids.Has(e.Target) && !ids.Has(e.Source) {
			far = e.Source
		}
		other, ok := g.Node(far)
		if !ok {
			other = Node{ID: far, Label: far}
		}
		out = append(out, Attachment{Edge: e, Other: other})
	}
	return out
}
