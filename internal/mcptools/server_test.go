package mcptools

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/dusk-indust/systrav/internal/engine"
	"github.com/dusk-indust/systrav/internal/events"
	"github.com/dusk-indust/systrav/internal/graph"
	"github.com/dusk-indust/systrav/internal/seed"
	"github.com/dusk-indust/systrav/internal/store"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	database = "Supabase Database"
	api      = "Next.js API Routes"
	react    = "React Components"
	ui       = "User Interface"
)

// newSeededService returns a GraphService over a MemStore holding the
// default seed: database -> api -> react -> ui, with one interface per link.
func newSeededService(t *testing.T, reg prometheus.Registerer) (*GraphService, *store.MemStore) {
	t.Helper()
	ctx := context.Background()

	st := store.NewMemStore()
	t.Cleanup(func() { _ = st.Close() })
	f, err := seed.Default()
	require.NoError(t, err)
	_, err = seed.Apply(ctx, st, f, seed.Options{})
	require.NoError(t, err)

	eng := engine.New(st, engine.Options{Registerer: reg})
	_, err = eng.Reload(ctx)
	require.NoError(t, err)
	return NewGraphService(eng), st
}

// setupServerClient wires an MCP server and client together using in-memory
// transports.
func setupServerClient(t *testing.T) (*mcp.ClientSession, *GraphService, *store.MemStore) {
	t.Helper()

	svc, st := newSeededService(t, nil)
	server := NewMCPServer(svc)

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	ctx := context.Background()

	_, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)

	client := mcp.NewClient(&mcp.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}, nil)

	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		session.Close()
	})

	return session, svc, st
}

// callTool invokes a tool and decodes its structured result into T.
func callTool[T any](t *testing.T, session *mcp.ClientSession, name string, args any) T {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	require.NoError(t, err)
	require.False(t, result.IsError, "%s failed: %s", name, toolText(result))
	require.NotNil(t, result.StructuredContent, "expected structured content from %s", name)

	raw, err := json.Marshal(result.StructuredContent)
	require.NoError(t, err)
	var out T
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

// requireToolError asserts that a tool call failed, either at the protocol
// level or as a tool result with IsError set.
func requireToolError(t *testing.T, session *mcp.ClientSession, name string, args any) string {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		return err.Error()
	}
	require.NotNil(t, result)
	require.True(t, result.IsError, "%s should fail", name)
	return toolText(result)
}

func toolText(result *mcp.CallToolResult) string {
	var sb strings.Builder
	for _, c := range result.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			sb.WriteString(tc.Text)
		}
	}
	return sb.String()
}

func TestMCPListTools(t *testing.T) {
	session, _, _ := setupServerClient(t)

	result, err := session.ListTools(context.Background(), &mcp.ListToolsParams{})
	require.NoError(t, err)

	names := make([]string, len(result.Tools))
	for i, tool := range result.Tools {
		names[i] = tool.Name
	}
	sort.Strings(names)

	assert.Equal(t, []string{
		"check_consistency",
		"clear_focus",
		"create_interface",
		"create_system",
		"delete_interface",
		"delete_system",
		"get_descendants",
		"get_diagram",
		"get_graph",
		"get_interfaces",
		"reload_graph",
		"set_focus",
		"update_interface",
		"update_system",
	}, names)
}

func TestMCPGetGraph(t *testing.T) {
	session, _, _ := setupServerClient(t)

	out := callTool[GraphOutput](t, session, "get_graph", GetGraphInput{})
	assert.Equal(t, 4, out.Graph.Stats.NodeCount)
	assert.Equal(t, 3, out.Graph.Stats.EdgeCount)
	assert.Equal(t, 1, out.Graph.Stats.VisibleNodes)
	require.Len(t, out.Graph.Nodes, 4)
	assert.Equal(t, database, out.Graph.Nodes[0].ID)
	assert.Equal(t, graph.ColorOf(out.Graph.Nodes[0].RecordID), out.Graph.Nodes[0].Color)

	visible := callTool[GraphOutput](t, session, "get_graph", GetGraphInput{VisibleOnly: true})
	require.Len(t, visible.Graph.Nodes, 1)
	assert.Equal(t, database, visible.Graph.Nodes[0].ID)
	assert.Empty(t, visible.Graph.Edges)
}

func TestMCPFocus(t *testing.T) {
	session, svc, _ := setupServerClient(t)

	out := callTool[GraphOutput](t, session, "set_focus", SetFocusInput{ID: react})
	assert.Equal(t, react, out.Graph.Focus)
	assert.Equal(t, 3, out.Graph.Stats.VisibleNodes, "root, focus and its child")
	assert.Equal(t, react, svc.engine.Focus())

	out = callTool[GraphOutput](t, session, "clear_focus", ClearFocusInput{})
	assert.Empty(t, out.Graph.Focus)
	assert.Equal(t, 1, out.Graph.Stats.VisibleNodes)

	requireToolError(t, session, "set_focus", SetFocusInput{ID: "Mainframe"})
	assert.Empty(t, svc.engine.Focus())
}

func TestMCPGetDescendants(t *testing.T) {
	session, _, _ := setupServerClient(t)

	out := callTool[GetDescendantsOutput](t, session, "get_descendants", GetDescendantsInput{ID: database})
	require.Len(t, out.Descendants, 3)
	assert.Equal(t, []string{api, react, ui}, graph.Graph{Nodes: out.Descendants}.NodeIDs())
	assert.Equal(t, database, out.Descendants[0].ParentID)
	assert.NotEmpty(t, out.Descendants[0].Category)

	leaf := callTool[GetDescendantsOutput](t, session, "get_descendants", GetDescendantsInput{ID: ui})
	assert.NotNil(t, leaf.Descendants)
	assert.Empty(t, leaf.Descendants)

	requireToolError(t, session, "get_descendants", GetDescendantsInput{ID: "nope"})
}

func TestMCPGetInterfaces(t *testing.T) {
	session, _, _ := setupServerClient(t)

	out := callTool[GetInterfacesOutput](t, session, "get_interfaces", GetInterfacesInput{ID: api})
	assert.Equal(t, api, out.ID)
	require.Len(t, out.Interfaces, 3, "api and its descendants touch every seeded link")
	assert.Equal(t, database, out.Interfaces[0].Other.ID)
	assert.NotEmpty(t, out.Interfaces[0].Other.Category)

	leaf := callTool[GetInterfacesOutput](t, session, "get_interfaces", GetInterfacesInput{ID: ui})
	require.Len(t, leaf.Interfaces, 1)
	assert.Equal(t, react, leaf.Interfaces[0].Other.ID)

	requireToolError(t, session, "get_interfaces", GetInterfacesInput{ID: "nope"})
}

func TestMCPCreateAndRenameSystem(t *testing.T) {
	session, _, st := setupServerClient(t)

	created := callTool[SystemOutput](t, session, "create_system", CreateSystemInput{
		Name:     "Cache",
		Category: "Database",
		ParentID: api,
	})
	assert.Equal(t, "Cache", created.System.ID)
	assert.Equal(t, api, created.System.ParentID)
	assert.False(t, created.System.Visible)

	renamed := callTool[SystemOutput](t, session, "update_system", UpdateSystemInput{
		ID:       "Cache",
		Name:     "Redis",
		Category: "Database",
	})
	assert.Equal(t, "Redis", renamed.System.ID)
	assert.Equal(t, created.System.RecordID, renamed.System.RecordID)
	assert.Equal(t, created.System.Color, renamed.System.Color, "attributes follow the record, not the name")

	desc := callTool[GetDescendantsOutput](t, session, "get_descendants", GetDescendantsInput{ID: api})
	assert.ElementsMatch(t, []string{react, ui, "Redis"}, graph.Graph{Nodes: desc.Descendants}.NodeIDs())

	rows, err := st.SelectHierarchy(context.Background())
	require.NoError(t, err)
	assert.Contains(t, rows, graph.HierarchyEdge{ParentID: api, ChildID: "Redis"})
}

func TestMCPCreateSystem_Rejected(t *testing.T) {
	session, svc, _ := setupServerClient(t)

	msg := requireToolError(t, session, "create_system", CreateSystemInput{Name: ui})
	assert.Contains(t, msg, "create system")
	requireToolError(t, session, "create_system", CreateSystemInput{Name: "Cache", ParentID: "Supabase Databse"})
	assert.Len(t, svc.engine.Snapshot().Nodes, 4, "rejected creates leave the graph unchanged")
}

func TestMCPDeleteSystem(t *testing.T) {
	session, _, _ := setupServerClient(t)

	out := callTool[DeleteSystemOutput](t, session, "delete_system", DeleteSystemInput{ID: api})
	assert.Equal(t, graph.DeleteReparent, out.Removal.Policy)
	assert.Equal(t, []string{api}, out.Removal.Nodes)
	assert.Equal(t, []string{react}, out.Removal.Reparented)
	assert.Equal(t, database, out.Removal.NewParent)
	assert.Len(t, out.Removal.Edges, 2)

	g := callTool[GraphOutput](t, session, "get_graph", GetGraphInput{})
	assert.Equal(t, 3, g.Graph.Stats.NodeCount)
	assert.Equal(t, 1, g.Graph.Stats.EdgeCount)
}

func TestMCPInterfaceLifecycle(t *testing.T) {
	session, _, _ := setupServerClient(t)

	created := callTool[InterfaceOutput](t, session, "create_interface", CreateInterfaceInput{
		SystemA:        ui,
		SystemB:        database,
		ConnectionType: "Query",
		Directional:    true,
	})
	require.NotEmpty(t, created.Interface.ID)
	assert.Equal(t, ui, created.Interface.Source)
	assert.Equal(t, "Query", created.Interface.Label)

	updated := callTool[InterfaceOutput](t, session, "update_interface", UpdateInterfaceInput{
		ID:             created.Interface.ID,
		SystemA:        database,
		SystemB:        ui,
		ConnectionType: "Push",
	})
	assert.Equal(t, created.Interface.ID, updated.Interface.ID)
	assert.Equal(t, database, updated.Interface.Source)
	assert.False(t, updated.Interface.Directional)

	deleted := callTool[DeleteInterfaceOutput](t, session, "delete_interface", DeleteInterfaceInput{ID: created.Interface.ID})
	assert.Equal(t, created.Interface.ID, deleted.Deleted)

	g := callTool[GraphOutput](t, session, "get_graph", GetGraphInput{})
	assert.Equal(t, 3, g.Graph.Stats.EdgeCount)

	requireToolError(t, session, "create_interface", CreateInterfaceInput{SystemA: ui, SystemB: "Mainframe"})
	requireToolError(t, session, "delete_interface", DeleteInterfaceInput{ID: created.Interface.ID})
}

func TestMCPCheckConsistency(t *testing.T) {
	session, _, _ := setupServerClient(t)

	out := callTool[CheckConsistencyOutput](t, session, "check_consistency", CheckConsistencyInput{})
	assert.Zero(t, out.Count)
	assert.NotNil(t, out.Warnings)
}

func TestMCPGetDiagram(t *testing.T) {
	session, _, _ := setupServerClient(t)

	out := callTool[GetDiagramOutput](t, session, "get_diagram", GetDiagramInput{})
	assert.True(t, strings.HasPrefix(out.Mermaid, "graph TD\n"))
	assert.Contains(t, out.Mermaid, database)
	assert.Contains(t, out.Mermaid, ui)

	visible := callTool[GetDiagramOutput](t, session, "get_diagram", GetDiagramInput{VisibleOnly: true})
	assert.Contains(t, visible.Mermaid, database)
	assert.NotContains(t, visible.Mermaid, ui)
}

func TestMCPReload(t *testing.T) {
	session, _, st := setupServerClient(t)

	_, err := st.InsertSystem(context.Background(), graph.SystemRecord{Name: "Queue", Category: "Infra"})
	require.NoError(t, err)

	out := callTool[ReloadOutput](t, session, "reload_graph", ReloadInput{})
	assert.Equal(t, 5, out.Stats.NodeCount)
	assert.Equal(t, 2, out.Stats.RootCount)
	assert.Empty(t, out.Warnings)
}

func TestMCPCallUnknownTool(t *testing.T) {
	session, _, _ := setupServerClient(t)
	requireToolError(t, session, "nonexistent_tool", map[string]any{})
}

func TestNewHandler_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	svc, _ := newSeededService(t, reg)

	srv := httptest.NewServer(NewHandler(NewMCPServer(svc), HandlerOptions{Gatherer: reg}))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "systrav_engine_loads_total")
	assert.Contains(t, string(body), "systrav_graph_nodes 4")
}

func TestNewHandler_NoMetricsWithoutGatherer(t *testing.T) {
	svc, _ := newSeededService(t, nil)

	srv := httptest.NewServer(NewHandler(NewMCPServer(svc), HandlerOptions{}))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestNewHandler_Events(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st := store.NewMemStore()
	t.Cleanup(func() { _ = st.Close() })
	feed := events.NewBroadcaster(8, nil)
	eng := engine.New(st, engine.Options{Publisher: feed})
	_, err := eng.Reload(ctx)
	require.NoError(t, err)
	svc := NewGraphService(eng)

	srv := httptest.NewServer(NewHandler(NewMCPServer(svc), HandlerOptions{Events: feed}))
	t.Cleanup(srv.Close)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	require.Eventually(t, func() bool { return feed.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)

	_, _, err = svc.CreateSystem(ctx, nil, CreateSystemInput{Name: "Gateway", Category: "API"})
	require.NoError(t, err)

	frames := events.ReadEvents(ctx, resp.Body)
	f := <-frames
	require.NoError(t, f.Err)
	assert.Equal(t, events.SystemCreated, f.Event.Kind)
	assert.Equal(t, "Gateway", f.Event.Subject)
}

func TestNewHandler_NoEventsWithoutBroadcaster(t *testing.T) {
	svc, _ := newSeededService(t, nil)

	srv := httptest.NewServer(NewHandler(NewMCPServer(svc), HandlerOptions{}))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/events")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRunMCPServer_StopsOnCancel(t *testing.T) {
	svc, _ := newSeededService(t, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- RunMCPServer(ctx, svc, "127.0.0.1:0", HandlerOptions{}, nil) }()
	cancel()

	assert.NoError(t, <-done)
}
