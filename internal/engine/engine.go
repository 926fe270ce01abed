// Package engine keeps the live system graph in step with the record store.
//
// Reads are served from an immutable snapshot swapped atomically after each
// confirmed write. Mutations validate against the current snapshot, write to
// the store without holding any lock, and only then install a new snapshot.
package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dusk-indust/systrav/internal/events"
	"github.com/dusk-indust/systrav/internal/graph"
	"github.com/dusk-indust/systrav/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Options configures an Engine. The zero value is usable.
type Options struct {
	Logger *zap.Logger
	// DeletePolicy applies to DeleteSystem. Defaults to graph.DeleteReparent.
	DeletePolicy graph.DeletePolicy
	// StoreTimeout bounds each store call. Zero means no timeout.
	StoreTimeout time.Duration
	Publisher    events.Publisher
	// Registerer receives the engine's metrics. Nil leaves them unregistered.
	Registerer prometheus.Registerer
}

// state is one installed snapshot. graph already carries the visibility
// derived from focus.
type state struct {
	graph graph.Graph
	focus string
}

// Engine owns the live graph.
type Engine struct {
	store     store.Store
	logger    *zap.Logger
	policy    graph.DeletePolicy
	timeout   time.Duration
	publisher events.Publisher
	metrics   *metrics
	tokens    *tokens

	mu  sync.Mutex // serializes installs
	cur atomic.Pointer[state]

	// collapsed holds the last load's warnings about records Build merged
	// away. The snapshot no longer shows them, so Check reports them from
	// here until the next Reload.
	collapsedMu sync.Mutex
	collapsed   []graph.Warning
}

// New returns an Engine over st with an empty graph. Call Reload to fetch
// the store's records.
func New(st store.Store, opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.DeletePolicy == "" {
		opts.DeletePolicy = graph.DeleteReparent
	}
	if opts.Publisher == nil {
		opts.Publisher = events.Nop{}
	}
	e := &Engine{
		store:     st,
		logger:    opts.Logger.Named("engine"),
		policy:    opts.DeletePolicy,
		timeout:   opts.StoreTimeout,
		publisher: opts.Publisher,
		metrics:   newMetrics(opts.Registerer),
		tokens:    newTokens(),
	}
	e.cur.Store(&state{})
	return e
}

// Snapshot returns the current graph with visibility applied. The value is
// never modified after it is returned.
func (e *Engine) Snapshot() graph.Graph {
	return e.cur.Load().graph
}

// Focus returns the focused system, or "" when unfocused.
func (e *Engine) Focus() string {
	return e.cur.Load().focus
}

// View returns the current graph together with the focus it was derived
// from.
func (e *Engine) View() (graph.Graph, string) {
	st := e.cur.Load()
	return st.graph, st.focus
}

// DeletePolicy returns the policy DeleteSystem applies.
func (e *Engine) DeletePolicy() graph.DeletePolicy {
	return e.policy
}

// install swaps in a new snapshot built by fn from the current one. fn runs
// under the install lock and must not block.
func (e *Engine) install(fn func(cur *state) (*state, error)) (*state, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	next, err := fn(e.cur.Load())
	if err != nil {
		return nil, err
	}
	next.graph = graph.ApplyFocus(next.graph, next.focus)
	e.cur.Store(next)
	e.metrics.nodes.Set(float64(len(next.graph.Nodes)))
	e.metrics.edges.Set(float64(len(next.graph.Edges)))
	return next, nil
}

// Reload fetches all three collections concurrently and replaces the graph.
// If any fetch fails nothing is installed. The focus survives when its
// system still exists. Consistency warnings are logged and returned; they
// never fail the load.
func (e *Engine) Reload(ctx context.Context) ([]graph.Warning, error) {
	var (
		systems    []graph.SystemRecord
		interfaces []graph.InterfaceEdge
		hierarchy  []graph.HierarchyEdge
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return e.call(gctx, "select_systems", func(ctx context.Context) (err error) {
			systems, err = e.store.SelectSystems(ctx)
			return err
		})
	})
	g.Go(func() error {
		return e.call(gctx, "select_interfaces", func(ctx context.Context) (err error) {
			interfaces, err = e.store.SelectInterfaces(ctx)
			return err
		})
	})
	g.Go(func() error {
		return e.call(gctx, "select_hierarchy", func(ctx context.Context) (err error) {
			hierarchy, err = e.store.SelectHierarchy(ctx)
			return err
		})
	})
	if err := g.Wait(); err != nil {
		e.metrics.loads.WithLabelValues(resultStore).Inc()
		e.logger.Error("load failed", zap.Error(err))
		return nil, &StoreError{Op: "load", Err: err}
	}

	built, warnings := graph.Build(systems, interfaces, hierarchy)
	e.setCollapsed(warnings)
	next, _ := e.install(func(cur *state) (*state, error) {
		focus := cur.focus
		if !built.HasNode(focus) {
			focus = ""
		}
		return &state{graph: built, focus: focus}, nil
	})

	e.recordWarnings(warnings)
	e.metrics.loads.WithLabelValues(resultOK).Inc()
	e.logger.Info("graph loaded",
		zap.Int("systems", len(next.graph.Nodes)),
		zap.Int("interfaces", len(next.graph.Edges)),
		zap.Int("warnings", len(warnings)))
	e.publish(ctx, events.New(events.GraphLoaded, "", next.graph.Stats()))
	return warnings, nil
}

// Check runs the consistency check over the live graph. Duplicate records
// found by the last load come first; they stay reported while their subject
// is still in the graph.
func (e *Engine) Check() []graph.Warning {
	g := e.Snapshot()

	e.collapsedMu.Lock()
	var warnings []graph.Warning
	for _, w := range e.collapsed {
		if g.HasNode(w.Subject) {
			warnings = append(warnings, w)
		}
	}
	e.collapsedMu.Unlock()

	warnings = append(warnings, graph.Check(g)...)
	e.recordWarnings(warnings)
	return warnings
}

func (e *Engine) setCollapsed(warnings []graph.Warning) {
	var collapsed []graph.Warning
	for _, w := range warnings {
		if w.Kind == graph.WarnDuplicateSystem || w.Kind == graph.WarnDuplicateChild {
			collapsed = append(collapsed, w)
		}
	}
	e.collapsedMu.Lock()
	e.collapsed = collapsed
	e.collapsedMu.Unlock()
}

func (e *Engine) recordWarnings(warnings []graph.Warning) {
	e.metrics.warnings.Reset()
	for _, w := range warnings {
		e.metrics.warnings.WithLabelValues(string(w.Kind)).Inc()
		e.logger.Warn("consistency warning",
			zap.String("kind", string(w.Kind)),
			zap.String("subject", w.Subject),
			zap.String("detail", w.Detail))
	}
}

// SetFocus focuses the graph on id: the system and its descendants become
// visible alongside every root-level system.
func (e *Engine) SetFocus(id string) (graph.Graph, error) {
	next, err := e.install(func(cur *state) (*state, error) {
		if !cur.graph.HasNode(id) {
			return nil, unknownSystem("id", id, cur.graph)
		}
		return &state{graph: cur.graph, focus: id}, nil
	})
	if err != nil {
		return graph.Graph{}, err
	}
	return next.graph, nil
}

// ClearFocus returns to the unfocused view where only root-level systems
// are visible.
func (e *Engine) ClearFocus() graph.Graph {
	next, _ := e.install(func(cur *state) (*state, error) {
		return &state{graph: cur.graph}, nil
	})
	return next.graph
}

// Descendants returns the descendant nodes of id in graph order. On a
// cyclic parent chain the reachable part is returned with graph.ErrCycle.
func (e *Engine) Descendants(id string) ([]graph.Node, error) {
	g := e.Snapshot()
	if !g.HasNode(id) {
		return nil, unknownSystem("id", id, g)
	}
	set, err := graph.DescendantsOf(id, g.Nodes)
	out := make([]graph.Node, 0, len(set))
	for _, n := range g.Nodes {
		if set.Has(n.ID) {
			out = append(out, n)
		}
	}
	return out, err
}

// Interfaces returns every interface touching id or one of its descendants,
// each with the system at its far end. On a cyclic parent chain the
// interfaces of the reachable part are returned with graph.ErrCycle.
func (e *Engine) Interfaces(id string) ([]graph.Attachment, error) {
	g := e.Snapshot()
	if !g.HasNode(id) {
		return nil, unknownSystem("id", id, g)
	}
	scope, err := graph.DescendantsOf(id, g.Nodes)
	scope.Add(id)
	return g.InterfacesOf(scope), err
}

// call runs one store call under the configured timeout and records its
// duration.
func (e *Engine) call(ctx context.Context, name string, fn func(context.Context) error) error {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	start := time.Now()
	err := fn(ctx)
	e.metrics.storeDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	return err
}

// step is one store write of a mutation.
type step struct {
	name string
	run  func(ctx context.Context) error
}

// write runs steps in order, stopping at the first failure. A context that
// was cancelled because a newer mutation took over is reported as
// ErrSuperseded.
func (e *Engine) write(ctx context.Context, op string, intent any, steps []step) error {
	applied := make([]string, 0, len(steps))
	for _, s := range steps {
		err := ctx.Err()
		if err == nil {
			err = e.call(ctx, s.name, s.run)
		}
		if err != nil {
			if cause := context.Cause(ctx); errors.Is(cause, ErrSuperseded) {
				err = ErrSuperseded
			}
			result := resultStore
			if errors.Is(err, ErrSuperseded) {
				result = resultSuperseded
			}
			e.metrics.mutations.WithLabelValues(op, result).Inc()
			e.logger.Warn("store write failed",
				zap.String("op", op),
				zap.String("step", s.name),
				zap.Strings("applied", applied),
				zap.Error(err))
			return &StoreError{Op: op, Intent: intent, Applied: applied, Err: err}
		}
		applied = append(applied, s.name)
	}
	return nil
}

// rejected counts and returns a validation failure.
func (e *Engine) rejected(op string, err error) error {
	e.metrics.mutations.WithLabelValues(op, resultValidation).Inc()
	e.logger.Debug("mutation rejected", zap.String("op", op), zap.Error(err))
	return err
}

func (e *Engine) publish(ctx context.Context, ev events.Event) {
	if err := e.publisher.Publish(context.WithoutCancel(ctx), ev); err != nil {
		e.logger.Warn("event not published",
			zap.String("kind", string(ev.Kind)),
			zap.String("subject", ev.Subject),
			zap.Error(err))
	}
}
