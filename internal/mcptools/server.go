package mcptools

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dusk-indust/systrav/internal/events"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// version is set by the linker at build time.
var version = "dev"

// NewMCPServer creates an MCP server with every graph tool registered.
func NewMCPServer(svc *GraphService) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "systrav",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_graph",
		Description: "Return the system graph: nodes with derived color, position and visibility, interface edges, and counts.",
	}, svc.GetGraph)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "set_focus",
		Description: "Focus a system. Its whole subtree becomes visible along with every root-level system; the rest of the hierarchy is hidden. Only interfaces touching the focused system are visible.",
	}, svc.SetFocus)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "clear_focus",
		Description: "Clear the focus so only root-level systems are visible and every interface is hidden.",
	}, svc.ClearFocus)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_descendants",
		Description: "List every transitive child of a system, excluding the system itself, with category and parent.",
	}, svc.GetDescendants)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_interfaces",
		Description: "List every interface touching a system or one of its descendants, with the name and category of the system at the other end.",
	}, svc.GetInterfaces)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_system",
		Description: "Create a system with a unique name, optionally under an existing parent.",
	}, svc.CreateSystem)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_system",
		Description: "Rename a system and/or change its category. A rename is carried to its children, its hierarchy row and every interface that references it.",
	}, svc.UpdateSystem)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_system",
		Description: "Delete a system and its interfaces. Its children are reparented or removed depending on the configured delete policy.",
	}, svc.DeleteSystem)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_interface",
		Description: "Connect two existing systems with a labeled, optionally directional interface.",
	}, svc.CreateInterface)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_interface",
		Description: "Replace an interface's endpoints, connection type and direction.",
	}, svc.UpdateInterface)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_interface",
		Description: "Delete an interface by id.",
	}, svc.DeleteInterface)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "check_consistency",
		Description: "Report dangling parents, dangling interface endpoints, hierarchy cycles and duplicates in the live graph.",
	}, svc.CheckConsistency)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_diagram",
		Description: "Render the graph as a Mermaid flowchart.",
	}, svc.GetDiagram)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "reload_graph",
		Description: "Refetch systems, hierarchy and interfaces from the store and rebuild the graph.",
	}, svc.Reload)

	return server
}

// HandlerOptions selects the routes served next to /mcp.
type HandlerOptions struct {
	// Gatherer serves Prometheus metrics on /metrics when non-nil.
	Gatherer prometheus.Gatherer
	// Events streams graph changes as Server-Sent Events on /events when
	// non-nil.
	Events *events.Broadcaster
}

// NewHandler routes MCP traffic to /mcp plus the optional routes in opts.
func NewHandler(server *mcp.Server, opts HandlerOptions) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/mcp", mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	))
	if opts.Gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}
	if opts.Events != nil {
		mux.Handle("GET /events", events.StreamHandler(opts.Events))
	}
	return mux
}

// RunMCPServer serves the graph tools over streamable HTTP until ctx is
// cancelled.
func RunMCPServer(ctx context.Context, svc *GraphService, addr string, opts HandlerOptions, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           NewHandler(NewMCPServer(svc), opts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Shutdown gracefully when context is cancelled.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown", zap.Error(err))
		}
	}()

	logger.Info("serving MCP", zap.String("addr", addr))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// RunMCPServerStdio serves the graph tools on stdin/stdout, blocking until
// stdin is closed or ctx is cancelled.
func RunMCPServerStdio(ctx context.Context, svc *GraphService) error {
	return NewMCPServer(svc).Run(ctx, &mcp.StdioTransport{})
}
