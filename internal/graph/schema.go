package graph

// --- Records ---
// Records mirror the three flat tables of the record store. Names are the
// keys that hierarchy and interface rows use to reference systems.

// SystemRecord is a row of the systems collection.
type SystemRecord struct {
	ID       string `json:"id" db:"id"`
	Name     string `json:"name" db:"name"`
	Category string `json:"category" db:"category"`
}

// HierarchyEdge is a row of the system_hierarchy collection. ParentID and
// ChildID hold system names, not record ids.
type HierarchyEdge struct {
	ParentID string `json:"parent_id" db:"parent_id"`
	ChildID  string `json:"child_id" db:"child_id"`
}

// InterfaceEdge is a row of the interfaces_with collection.
type InterfaceEdge struct {
	ID             string `json:"id" db:"id"`
	SystemAID      string `json:"system_a_id" db:"system_a_id"`
	SystemBID      string `json:"system_b_id" db:"system_b_id"`
	ConnectionType string `json:"connection_type" db:"connection_type"`
	Directional    bool   `json:"directional" db:"directional"`
}

// --- Derived graph ---

// Color is a CSS hex color, e.g. "#1a2b3c".
type Color string

// Position is a 2-D canvas coordinate.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is a system as seen by the rendering surface. ID is the system name.
type Node struct {
	ID       string   `json:"id"`
	Label    string   `json:"label"`
	Category string   `json:"category"`
	ParentID string   `json:"parentId,omitempty"` // "" when the system is root-level
	RecordID string   `json:"recordId,omitempty"`
	Color    Color    `json:"color"`
	Position Position `json:"position"`
	Visible  bool     `json:"visible"`
}

// IsRoot reports whether the node has no parent.
func (n Node) IsRoot() bool {
	return n.ParentID == ""
}

// Edge is an interface between two systems. Directional is a rendering
// hint only; traversal never follows edges.
type Edge struct {
	ID          string `json:"id"`
	Source      string `json:"source"`
	Target      string `json:"target"`
	Label       string `json:"label"`
	Directional bool   `json:"directional"`
	Visible     bool   `json:"visible"`
}

// Touches reports whether id is one of the edge's endpoints.
func (e Edge) Touches(id string) bool {
	return e.Source == id || e.Target == id
}

// Stats summarizes a graph.
type Stats struct {
	NodeCount    int `json:"nodeCount"`
	RootCount    int `json:"rootCount"`
	EdgeCount    int `json:"edgeCount"`
	VisibleNodes int `json:"visibleNodes"`
	VisibleEdges int `json:"visibleEdges"`
}

// Set is a set of node ids.
type Set map[string]struct{}

// Has reports whether id is in the set.
func (s Set) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Add inserts id and reports whether it was newly added.
func (s Set) Add(id string) bool {
	if _, ok := s[id]; ok {
		return false
	}
	s[id] = struct{}{}
	return true
}
