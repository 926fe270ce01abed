package store

import (
	"github.com/dusk-indust/systrav/internal/graph"
	"github.com/huandu/go-sqlbuilder"
)

// Row types map collections to SQL tables. The seq column that orders rows
// is database-assigned and never written.

type systemRow struct {
	ID       string `db:"id"`
	Name     string `db:"name"`
	Category string `db:"category"`
}

type hierarchyRow struct {
	ParentID string `db:"parent_id"`
	ChildID  string `db:"child_id"`
}

type interfaceRow struct {
	ID             string `db:"id"`
	SystemAID      string `db:"system_a_id"`
	SystemBID      string `db:"system_b_id"`
	ConnectionType string `db:"connection_type"`
	Directional    bool   `db:"directional"`
}

var (
	systemStruct    = sqlbuilder.NewStruct(new(systemRow))
	hierarchyStruct = sqlbuilder.NewStruct(new(hierarchyRow))
	interfaceStruct = sqlbuilder.NewStruct(new(interfaceRow))
)

func fromSystem(s graph.SystemRecord) *systemRow {
	return &systemRow{ID: s.ID, Name: s.Name, Category: s.Category}
}

func (r systemRow) record() graph.SystemRecord {
	return graph.SystemRecord{ID: r.ID, Name: r.Name, Category: r.Category}
}

func fromHierarchy(h graph.HierarchyEdge) *hierarchyRow {
	return &hierarchyRow{ParentID: h.ParentID, ChildID: h.ChildID}
}

func (r hierarchyRow) record() graph.HierarchyEdge {
	return graph.HierarchyEdge{ParentID: r.ParentID, ChildID: r.ChildID}
}

func fromInterface(i graph.InterfaceEdge) *interfaceRow {
	return &interfaceRow{
		ID:             i.ID,
		SystemAID:      i.SystemAID,
		SystemBID:      i.SystemBID,
		ConnectionType: i.ConnectionType,
		Directional:    i.Directional,
	}
}

func (r interfaceRow) record() graph.InterfaceEdge {
	return graph.InterfaceEdge{
		ID:             r.ID,
		SystemAID:      r.SystemAID,
		SystemBID:      r.SystemBID,
		ConnectionType: r.ConnectionType,
		Directional:    r.Directional,
	}
}
