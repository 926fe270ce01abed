package mcptools

import (
	"github.com/dusk-indust/systrav/internal/export"
	"github.com/dusk-indust/systrav/internal/graph"
)

// --- MCP Tool Input/Output Types ---
// The MCP Go SDK derives each tool's JSON schema from these struct tags.

// GetGraphInput is the input for the get_graph tool.
type GetGraphInput struct {
	VisibleOnly bool `json:"visibleOnly,omitempty" jsonschema:"return only the nodes and edges visible under the current focus"`
}

// GraphOutput carries a graph snapshot. Returned by get_graph, set_focus
// and clear_focus.
type GraphOutput struct {
	Graph export.GraphExport `json:"graph"`
}

// SetFocusInput is the input for the set_focus tool.
type SetFocusInput struct {
	ID string `json:"id" jsonschema:"name of the system to focus; its subtree becomes visible"`
}

// ClearFocusInput is the input for the clear_focus tool.
type ClearFocusInput struct{}

// GetDescendantsInput is the input for the get_descendants tool.
type GetDescendantsInput struct {
	ID string `json:"id" jsonschema:"name of the system whose transitive children are wanted"`
}

// GetDescendantsOutput is the result of the get_descendants tool.
type GetDescendantsOutput struct {
	ID          string       `json:"id"`
	Descendants []graph.Node `json:"descendants"`
}

// GetInterfacesInput is the input for the get_interfaces tool.
type GetInterfacesInput struct {
	ID string `json:"id" jsonschema:"name of the system whose interfaces, and those of its descendants, are wanted"`
}

// GetInterfacesOutput is the result of the get_interfaces tool.
type GetInterfacesOutput struct {
	ID         string             `json:"id"`
	Interfaces []graph.Attachment `json:"interfaces"`
}

// CreateSystemInput is the input for the create_system tool.
type CreateSystemInput struct {
	Name     string `json:"name" jsonschema:"unique system name"`
	Category string `json:"category,omitempty" jsonschema:"free-form category, e.g. Backend or Database"`
	ParentID string `json:"parentId,omitempty" jsonschema:"name of an existing parent system; omit for a root-level system"`
}

// UpdateSystemInput is the input for the update_system tool.
type UpdateSystemInput struct {
	ID       string `json:"id" jsonschema:"current system name"`
	Name     string `json:"name" jsonschema:"new system name; equal to id to keep the name"`
	Category string `json:"category,omitempty" jsonschema:"new category"`
}

// SystemOutput is the result of create_system and update_system.
type SystemOutput struct {
	System graph.Node `json:"system"`
}

// DeleteSystemInput is the input for the delete_system tool.
type DeleteSystemInput struct {
	ID string `json:"id" jsonschema:"name of the system to delete"`
}

// DeleteSystemOutput is the result of the delete_system tool.
type DeleteSystemOutput struct {
	Removal graph.Removal `json:"removal"`
}

// CreateInterfaceInput is the input for the create_interface tool.
type CreateInterfaceInput struct {
	SystemA        string `json:"systemA" jsonschema:"name of the first endpoint system"`
	SystemB        string `json:"systemB" jsonschema:"name of the second endpoint system"`
	ConnectionType string `json:"connectionType,omitempty" jsonschema:"edge label, e.g. API or Internal"`
	Directional    bool   `json:"directional,omitempty" jsonschema:"draw an arrow from systemA to systemB"`
}

// UpdateInterfaceInput is the input for the update_interface tool.
type UpdateInterfaceInput struct {
	ID             string `json:"id" jsonschema:"interface id"`
	SystemA        string `json:"systemA" jsonschema:"name of the first endpoint system"`
	SystemB        string `json:"systemB" jsonschema:"name of the second endpoint system"`
	ConnectionType string `json:"connectionType,omitempty" jsonschema:"edge label"`
	Directional    bool   `json:"directional,omitempty" jsonschema:"draw an arrow from systemA to systemB"`
}

// InterfaceOutput is the result of create_interface and update_interface.
type InterfaceOutput struct {
	Interface graph.Edge `json:"interface"`
}

// DeleteInterfaceInput is the input for the delete_interface tool.
type DeleteInterfaceInput struct {
	ID string `json:"id" jsonschema:"interface id"`
}

// DeleteInterfaceOutput is the result of the delete_interface tool.
type DeleteInterfaceOutput struct {
	Deleted string `json:"deleted"`
}

// CheckConsistencyInput is the input for the check_consistency tool.
type CheckConsistencyInput struct{}

// CheckConsistencyOutput is the result of the check_consistency tool.
type CheckConsistencyOutput struct {
	Warnings []graph.Warning `json:"warnings"`
	Count    int             `json:"count"`
}

// GetDiagramInput is the input for the get_diagram tool.
type GetDiagramInput struct {
	VisibleOnly bool `json:"visibleOnly,omitempty" jsonschema:"draw only what is visible under the current focus"`
}

// GetDiagramOutput is the result of the get_diagram tool.
type GetDiagramOutput struct {
	Mermaid string `json:"mermaid"`
}

// ReloadInput is the input for the reload_graph tool.
type ReloadInput struct{}

// ReloadOutput is the result of the reload_graph tool.
type ReloadOutput struct {
	Stats    graph.Stats     `json:"stats"`
	Warnings []graph.Warning `json:"warnings"`
}
