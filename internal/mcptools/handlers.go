package mcptools

import (
	"context"
	"fmt"

	"github.com/dusk-indust/systrav/internal/engine"
	"github.com/dusk-indust/systrav/internal/export"
	"github.com/dusk-indust/systrav/internal/graph"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// GraphService adapts the engine to MCP tool handlers. It is the rendering
// surface: every handler returns the state a client needs to redraw.
type GraphService struct {
	engine *engine.Engine
}

// NewGraphService creates a GraphService over eng.
func NewGraphService(eng *engine.Engine) *GraphService {
	return &GraphService{engine: eng}
}

func (s *GraphService) graphOutput(g graph.Graph, focus string, visibleOnly bool) GraphOutput {
	if visibleOnly {
		g = g.Visible()
	}
	return GraphOutput{Graph: *export.ExportGraph(g, focus, nil)}
}

// GetGraph returns the current snapshot.
func (s *GraphService) GetGraph(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input GetGraphInput,
) (*mcp.CallToolResult, GraphOutput, error) {
	g, focus := s.engine.View()
	return nil, s.graphOutput(g, focus, input.VisibleOnly), nil
}

// SetFocus focuses a system and returns the recomputed graph.
func (s *GraphService) SetFocus(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input SetFocusInput,
) (*mcp.CallToolResult, GraphOutput, error) {
	g, err := s.engine.SetFocus(input.ID)
	if err != nil {
		return nil, GraphOutput{}, err
	}
	return nil, s.graphOutput(g, input.ID, false), nil
}

// ClearFocus returns the graph to its unfocused state.
func (s *GraphService) ClearFocus(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ ClearFocusInput,
) (*mcp.CallToolResult, GraphOutput, error) {
	return nil, s.graphOutput(s.engine.ClearFocus(), "", false), nil
}

// GetDescendants lists every transitive child of a system.
func (s *GraphService) GetDescendants(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input GetDescendantsInput,
) (*mcp.CallToolResult, GetDescendantsOutput, error) {
	nodes, err := s.engine.Descendants(input.ID)
	if err != nil {
		return nil, GetDescendantsOutput{}, err
	}
	return nil, GetDescendantsOutput{ID: input.ID, Descendants: nodes}, nil
}

// GetInterfaces lists the interfaces of a system and its descendants.
func (s *GraphService) GetInterfaces(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input GetInterfacesInput,
) (*mcp.CallToolResult, GetInterfacesOutput, error) {
	attached, err := s.engine.Interfaces(input.ID)
	if err != nil {
		return nil, GetInterfacesOutput{}, err
	}
	return nil, GetInterfacesOutput{ID: input.ID, Interfaces: attached}, nil
}

// CreateSystem adds a system, optionally under a parent.
func (s *GraphService) CreateSystem(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input CreateSystemInput,
) (*mcp.CallToolResult, SystemOutput, error) {
	node, err := s.engine.CreateSystem(ctx, engine.CreateSystemInput{
		Name:     input.Name,
		Category: input.Category,
		ParentID: input.ParentID,
	})
	if err != nil {
		return nil, SystemOutput{}, fmt.Errorf("create system: %w", err)
	}
	return nil, SystemOutput{System: node}, nil
}

// UpdateSystem renames a system and/or changes its category.
func (s *GraphService) UpdateSystem(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input UpdateSystemInput,
) (*mcp.CallToolResult, SystemOutput, error) {
	node, err := s.engine.UpdateSystem(ctx, engine.UpdateSystemInput{
		ID:       input.ID,
		Name:     input.Name,
		Category: input.Category,
	})
	if err != nil {
		return nil, SystemOutput{}, fmt.Errorf("update system: %w", err)
	}
	return nil, SystemOutput{System: node}, nil
}

// DeleteSystem removes a system under the engine's delete policy.
func (s *GraphService) DeleteSystem(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DeleteSystemInput,
) (*mcp.CallToolResult, DeleteSystemOutput, error) {
	removal, err := s.engine.DeleteSystem(ctx, input.ID)
	if err != nil {
		return nil, DeleteSystemOutput{}, fmt.Errorf("delete system: %w", err)
	}
	if removal.Edges == nil {
		removal.Edges = []string{}
	}
	return nil, DeleteSystemOutput{Removal: removal}, nil
}

// CreateInterface connects two systems.
func (s *GraphService) CreateInterface(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input CreateInterfaceInput,
) (*mcp.CallToolResult, InterfaceOutput, error) {
	edge, err := s.engine.CreateInterface(ctx, engine.CreateInterfaceInput{
		SystemAID:      input.SystemA,
		SystemBID:      input.SystemB,
		ConnectionType: input.ConnectionType,
		Directional:    input.Directional,
	})
	if err != nil {
		return nil, InterfaceOutput{}, fmt.Errorf("create interface: %w", err)
	}
	return nil, InterfaceOutput{Interface: edge}, nil
}

// UpdateInterface replaces an interface's endpoints, type and direction.
func (s *GraphService) UpdateInterface(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input UpdateInterfaceInput,
) (*mcp.CallToolResult, InterfaceOutput, error) {
	edge, err := s.engine.UpdateInterface(ctx, engine.UpdateInterfaceInput{
		ID:             input.ID,
		SystemAID:      input.SystemA,
		SystemBID:      input.SystemB,
		ConnectionType: input.ConnectionType,
		Directional:    input.Directional,
	})
	if err != nil {
		return nil, InterfaceOutput{}, fmt.Errorf("update interface: %w", err)
	}
	return nil, InterfaceOutput{Interface: edge}, nil
}

// DeleteInterface removes an interface by id.
func (s *GraphService) DeleteInterface(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DeleteInterfaceInput,
) (*mcp.CallToolResult, DeleteInterfaceOutput, error) {
	if err := s.engine.DeleteInterface(ctx, input.ID); err != nil {
		return nil, DeleteInterfaceOutput{}, fmt.Errorf("delete interface: %w", err)
	}
	return nil, DeleteInterfaceOutput{Deleted: input.ID}, nil
}

// CheckConsistency reports referential problems in the live graph.
func (s *GraphService) CheckConsistency(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ CheckConsistencyInput,
) (*mcp.CallToolResult, CheckConsistencyOutput, error) {
	warnings := s.engine.Check()
	if warnings == nil {
		warnings = []graph.Warning{}
	}
	return nil, CheckConsistencyOutput{Warnings: warnings, Count: len(warnings)}, nil
}

// GetDiagram renders the graph as Mermaid.
func (s *GraphService) GetDiagram(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input GetDiagramInput,
) (*mcp.CallToolResult, GetDiagramOutput, error) {
	diagram := export.GenerateMermaid(s.engine.Snapshot(), export.MermaidOptions{VisibleOnly: input.VisibleOnly})
	return nil, GetDiagramOutput{Mermaid: diagram}, nil
}

// Reload refetches every record from the store.
func (s *GraphService) Reload(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ReloadInput,
) (*mcp.CallToolResult, ReloadOutput, error) {
	warnings, err := s.engine.Reload(ctx)
	if err != nil {
		return nil, ReloadOutput{}, fmt.Errorf("reload: %w", err)
	}
	if warnings == nil {
		warnings = []graph.Warning{}
	}
	return nil, ReloadOutput{Stats: s.engine.Snapshot().Stats(), Warnings: warnings}, nil
}
