package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dusk-indust/systrav/internal/graph"
)

// GraphExport is the top-level JSON export structure: the graph as the
// rendering surface sees it, plus what the consistency check found.
type GraphExport struct {
	ExportedAt string          `json:"exportedAt"`
	Focus      string          `json:"focus,omitempty"`
	Stats      graph.Stats     `json:"stats"`
	Nodes      []graph.Node    `json:"nodes"`
	Edges      []graph.Edge    `json:"edges"`
	Warnings   []graph.Warning `json:"warnings,omitempty"`
}

// ExportGraph builds a GraphExport from a snapshot.
func ExportGraph(g graph.Graph, focus string, warnings []graph.Warning) *GraphExport {
	nodes := g.Nodes
	if nodes == nil {
		nodes = []graph.Node{}
	}
	edges := g.Edges
	if edges == nil {
		edges = []graph.Edge{}
	}
	return &GraphExport{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Focus:      focus,
		Stats:      g.Stats(),
		Nodes:      nodes,
		Edges:      edges,
		Warnings:   warnings,
	}
}

// WriteJSON writes x as indented JSON.
func WriteJSON(w io.Writer, x *GraphExport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(x); err != nil {
		return fmt.Errorf("encode export: %w", err)
	}
	return nil
}
