package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/dusk-indust/systrav/internal/events"
	"github.com/dusk-indust/systrav/internal/graph"
	"github.com/dusk-indust/systrav/internal/store"
)

// CreateInterface inserts an interface between two existing systems. The
// store assigns its id.
func (e *Engine) CreateInterface(ctx context.Context, in CreateInterfaceInput) (graph.Edge, error) {
	const op = "create_interface"
	in.SystemAID = strings.TrimSpace(in.SystemAID)
	in.SystemBID = strings.TrimSpace(in.SystemBID)
	if err := validateStruct(in); err != nil {
		return graph.Edge{}, e.rejected(op, err)
	}
	if err := checkEndpoints(e.Snapshot(), in.SystemAID, in.SystemBID); err != nil {
		return graph.Edge{}, e.rejected(op, err)
	}

	ctx, release := e.tokens.begin(ctx, "interface:"+in.SystemAID+"->"+in.SystemBID)
	defer release()

	var rec graph.InterfaceEdge
	err := e.write(ctx, op, in, []step{{
		name: "insert interfaces_with",
		run: func(ctx context.Context) (err error) {
			rec, err = e.store.InsertInterface(ctx, graph.InterfaceEdge{
				SystemAID:      in.SystemAID,
				SystemBID:      in.SystemBID,
				ConnectionType: in.ConnectionType,
				Directional:    in.Directional,
			})
			return err
		},
	}})
	if err != nil {
		return graph.Edge{}, err
	}

	next, err := e.install(func(cur *state) (*state, error) {
		if err := endpointsPresent(cur.graph, rec.SystemAID, rec.SystemBID); err != nil {
			return nil, err
		}
		return &state{graph: cur.graph.WithInterface(rec), focus: cur.focus}, nil
	})
	if err != nil {
		return graph.Edge{}, e.diverged(op, err)
	}
	edge, _ := next.graph.Edge(rec.ID)
	e.done(ctx, op, events.New(events.InterfaceCreated, edge.ID, edge))
	return edge, nil
}

// UpdateInterface replaces an interface's endpoints, type and direction.
// The edge keeps its id and its place in the edge list.
func (e *Engine) UpdateInterface(ctx context.Context, in UpdateInterfaceInput) (graph.Edge, error) {
	const op = "update_interface"
	in.ID = strings.TrimSpace(in.ID)
	in.SystemAID = strings.TrimSpace(in.SystemAID)
	in.SystemBID = strings.TrimSpace(in.SystemBID)
	if err := validateStruct(in); err != nil {
		return graph.Edge{}, e.rejected(op, err)
	}
	g := e.Snapshot()
	if _, ok := g.Edge(in.ID); !ok {
		return graph.Edge{}, e.rejected(op, &graph.ValidationError{Field: "id", Value: in.ID, Reason: "no such interface"})
	}
	if err := checkEndpoints(g, in.SystemAID, in.SystemBID); err != nil {
		return graph.Edge{}, e.rejected(op, err)
	}

	ctx, release := e.tokens.begin(ctx, "interface:"+in.ID)
	defer release()

	rec := graph.InterfaceEdge{
		ID:             in.ID,
		SystemAID:      in.SystemAID,
		SystemBID:      in.SystemBID,
		ConnectionType: in.ConnectionType,
		Directional:    in.Directional,
	}
	err := e.write(ctx, op, in, []step{{
		name: "update interfaces_with",
		run: func(ctx context.Context) error {
			_, err := e.store.UpdateWhere(ctx, store.Interfaces, store.ColID, in.ID, store.Patch{
				store.ColSystemAID:      rec.SystemAID,
				store.ColSystemBID:      rec.SystemBID,
				store.ColConnectionType: rec.ConnectionType,
				store.ColDirectional:    rec.Directional,
			})
			return err
		},
	}})
	if err != nil {
		return graph.Edge{}, err
	}

	next, err := e.install(func(cur *state) (*state, error) {
		if _, ok := cur.graph.Edge(in.ID); !ok {
			return nil, fmt.Errorf("interface %q removed while the write was in flight", in.ID)
		}
		if err := endpointsPresent(cur.graph, rec.SystemAID, rec.SystemBID); err != nil {
			return nil, err
		}
		return &state{graph: cur.graph.ReplaceInterface(rec), focus: cur.focus}, nil
	})
	if err != nil {
		return graph.Edge{}, e.diverged(op, err)
	}
	edge, _ := next.graph.Edge(in.ID)
	e.done(ctx, op, events.New(events.InterfaceUpdated, edge.ID, edge))
	return edge, nil
}

// DeleteInterface removes an interface by id.
func (e *Engine) DeleteInterface(ctx context.Context, id string) error {
	const op = "delete_interface"
	id = strings.TrimSpace(id)
	if id == "" {
		return e.rejected(op, &graph.ValidationError{Field: "id", Reason: "must not be empty"})
	}
	edge, ok := e.Snapshot().Edge(id)
	if !ok {
		return e.rejected(op, &graph.ValidationError{Field: "id", Value: id, Reason: "no such interface"})
	}

	ctx, release := e.tokens.begin(ctx, "interface:"+id)
	defer release()

	err := e.write(ctx, op, id, []step{{
		name: "delete interfaces_with",
		run: func(ctx context.Context) error {
			_, err := e.store.DeleteWhere(ctx, store.Interfaces, store.ColID, id)
			return err
		},
	}})
	if err != nil {
		return err
	}

	_, _ = e.install(func(cur *state) (*state, error) {
		return &state{graph: cur.graph.WithoutInterface(id), focus: cur.focus}, nil
	})
	e.done(ctx, op, events.New(events.InterfaceDeleted, id, edge))
	return nil
}

func checkEndpoints(g graph.Graph, a, b string) error {
	if !g.HasNode(a) {
		return unknownSystem("systemA", a, g)
	}
	if !g.HasNode(b) {
		return unknownSystem("systemB", b, g)
	}
	return nil
}

// endpointsPresent rechecks endpoints validated before a write that may have
// been deleted while it was in flight.
func endpointsPresent(g graph.Graph, a, b string) error {
	for _, id := range []string{a, b} {
		if !g.HasNode(id) {
			return fmt.Errorf("endpoint %q removed while the write was in flight", id)
		}
	}
	return nil
}
