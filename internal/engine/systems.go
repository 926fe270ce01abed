package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/dusk-indust/systrav/internal/events"
	"github.com/dusk-indust/systrav/internal/graph"
	"github.com/dusk-indust/systrav/internal/store"
	"go.uber.org/zap"
)

// CreateSystem inserts a system and, when a parent is given, its hierarchy
// row. The new node is appended after its parent, so parent-first order
// holds.
func (e *Engine) CreateSystem(ctx context.Context, in CreateSystemInput) (graph.Node, error) {
	const op = "create_system"
	in.Name = strings.TrimSpace(in.Name)
	in.ParentID = strings.TrimSpace(in.ParentID)
	if err := validateStruct(in); err != nil {
		return graph.Node{}, e.rejected(op, err)
	}
	g := e.Snapshot()
	if g.HasNode(in.Name) {
		return graph.Node{}, e.rejected(op, &graph.ValidationError{
			Field: "name", Value: in.Name, Reason: "a system with this name already exists",
		})
	}
	if in.ParentID != "" && !g.HasNode(in.ParentID) {
		return graph.Node{}, e.rejected(op, unknownSystem("parentId", in.ParentID, g))
	}

	ctx, release := e.tokens.begin(ctx, in.Name)
	defer release()

	var rec graph.SystemRecord
	steps := []step{{
		name: "insert systems",
		run: func(ctx context.Context) (err error) {
			rec, err = e.store.InsertSystem(ctx, graph.SystemRecord{Name: in.Name, Category: in.Category})
			return err
		},
	}}
	if in.ParentID != "" {
		steps = append(steps, step{
			name: "insert system_hierarchy",
			run: func(ctx context.Context) error {
				_, err := e.store.InsertHierarchy(ctx, graph.HierarchyEdge{ParentID: in.ParentID, ChildID: in.Name})
				return err
			},
		})
	}
	if err := e.write(ctx, op, in, steps); err != nil {
		return graph.Node{}, err
	}

	next, err := e.install(func(cur *state) (*state, error) {
		if cur.graph.HasNode(rec.Name) {
			return nil, fmt.Errorf("%s: %q appeared while the write was in flight", op, rec.Name)
		}
		if in.ParentID != "" && !cur.graph.HasNode(in.ParentID) {
			return nil, fmt.Errorf("%s: parent %q removed while the write was in flight", op, in.ParentID)
		}
		return &state{graph: cur.graph.WithSystem(rec, in.ParentID), focus: cur.focus}, nil
	})
	if err != nil {
		return graph.Node{}, e.diverged(op, err)
	}
	node, _ := next.graph.Node(rec.Name)
	e.done(ctx, op, events.New(events.SystemCreated, node.ID, node))
	return node, nil
}

// UpdateSystem renames a system and replaces its category. The name is the
// key every hierarchy and interface row refers to, so a rename migrates the
// store's references after the systems row, then rewrites the graph in one
// step. A focus on the old name follows the rename.
func (e *Engine) UpdateSystem(ctx context.Context, in UpdateSystemInput) (graph.Node, error) {
	const op = "update_system"
	in.ID = strings.TrimSpace(in.ID)
	in.Name = strings.TrimSpace(in.Name)
	if err := validateStruct(in); err != nil {
		return graph.Node{}, e.rejected(op, err)
	}
	g := e.Snapshot()
	if !g.HasNode(in.ID) {
		return graph.Node{}, e.rejected(op, unknownSystem("id", in.ID, g))
	}
	renamed := in.Name != in.ID
	if renamed && g.HasNode(in.Name) {
		return graph.Node{}, e.rejected(op, &graph.ValidationError{
			Field: "name", Value: in.Name, Reason: "a different system already has this name",
		})
	}

	ctx, release := e.tokens.begin(ctx, in.ID, in.Name)
	defer release()

	steps := []step{{
		name: "update systems",
		run: func(ctx context.Context) error {
			_, err := e.store.UpdateWhere(ctx, store.Systems, store.ColName, in.ID,
				store.Patch{store.ColName: in.Name, store.ColCategory: in.Category})
			return err
		},
	}}
	if renamed {
		for _, ref := range []struct {
			c     store.Collection
			field string
		}{
			{store.Hierarchy, store.ColParentID},
			{store.Hierarchy, store.ColChildID},
			{store.Interfaces, store.ColSystemAID},
			{store.Interfaces, store.ColSystemBID},
		} {
			steps = append(steps, step{
				name: fmt.Sprintf("update %s.%s", ref.c, ref.field),
				run: func(ctx context.Context) error {
					_, err := e.store.UpdateWhere(ctx, ref.c, ref.field, in.ID, store.Patch{ref.field: in.Name})
					return err
				},
			})
		}
	}
	if err := e.write(ctx, op, in, steps); err != nil {
		return graph.Node{}, err
	}

	next, err := e.install(func(cur *state) (*state, error) {
		ng, err := cur.graph.Rename(in.ID, in.Name, in.Category)
		if err != nil {
			return nil, err
		}
		focus := cur.focus
		if focus == in.ID {
			focus = in.Name
		}
		return &state{graph: ng, focus: focus}, nil
	})
	if err != nil {
		return graph.Node{}, e.diverged(op, err)
	}
	node, _ := next.graph.Node(in.Name)
	e.done(ctx, op, events.New(events.SystemUpdated, in.ID, node))
	return node, nil
}

// DeleteSystem removes a system under the engine's delete policy. Incident
// interfaces of every removed system are deleted too. A focus on a removed
// system moves to the deleted system's parent, or clears.
func (e *Engine) DeleteSystem(ctx context.Context, id string) (graph.Removal, error) {
	const op = "delete_system"
	id = strings.TrimSpace(id)
	g := e.Snapshot()
	if id == "" {
		return graph.Removal{}, e.rejected(op, &graph.ValidationError{Field: "id", Reason: "must not be empty"})
	}
	if !g.HasNode(id) {
		return graph.Removal{}, e.rejected(op, unknownSystem("id", id, g))
	}
	plan, err := g.PlanRemoval(id, e.policy)
	if err != nil {
		return graph.Removal{}, e.rejected(op, &graph.ValidationError{
			Field: "id", Value: id, Reason: err.Error(),
		})
	}
	target, _ := g.Node(id)

	ctx, release := e.tokens.begin(ctx, plan.Nodes...)
	defer release()

	if err := e.write(ctx, op, id, removalSteps(e.store, plan)); err != nil {
		return graph.Removal{}, err
	}

	_, err = e.install(func(cur *state) (*state, error) {
		focus := cur.focus
		for _, n := range plan.Nodes {
			if n == focus {
				focus = target.ParentID
				break
			}
		}
		return &state{graph: cur.graph.ApplyRemoval(plan), focus: focus}, nil
	})
	if err != nil {
		return graph.Removal{}, e.diverged(op, err)
	}
	e.done(ctx, op, events.New(events.SystemDeleted, id, plan))
	return plan, nil
}

// removalSteps lists the store writes for plan: incident interfaces first,
// then the hierarchy rows that point at removed systems, then the removed
// systems leaves first.
func removalSteps(st store.Store, plan graph.Removal) []step {
	var steps []step
	for _, edgeID := range plan.Edges {
		steps = append(steps, step{
			name: "delete interfaces_with " + edgeID,
			run: func(ctx context.Context) error {
				_, err := st.DeleteWhere(ctx, store.Interfaces, store.ColID, edgeID)
				return err
			},
		})
	}
	if len(plan.Reparented) > 0 {
		if plan.NewParent != "" {
			steps = append(steps, step{
				name: "reparent system_hierarchy",
				run: func(ctx context.Context) error {
					_, err := st.UpdateWhere(ctx, store.Hierarchy, store.ColParentID, plan.Root,
						store.Patch{store.ColParentID: plan.NewParent})
					return err
				},
			})
		} else {
			steps = append(steps, step{
				name: "detach system_hierarchy",
				run: func(ctx context.Context) error {
					_, err := st.DeleteWhere(ctx, store.Hierarchy, store.ColParentID, plan.Root)
					return err
				},
			})
		}
	}
	for i := len(plan.Nodes) - 1; i >= 0; i-- {
		name := plan.Nodes[i]
		steps = append(steps,
			step{
				name: "delete system_hierarchy " + name,
				run: func(ctx context.Context) error {
					_, err := st.DeleteWhere(ctx, store.Hierarchy, store.ColChildID, name)
					return err
				},
			},
			step{
				name: "delete systems " + name,
				run: func(ctx context.Context) error {
					_, err := st.DeleteWhere(ctx, store.Systems, store.ColName, name)
					return err
				},
			},
		)
	}
	return steps
}

// diverged reports a confirmed write that could not be applied because the
// graph changed underneath it. The store is ahead of the graph until the
// next Reload.
func (e *Engine) diverged(op string, err error) error {
	e.metrics.mutations.WithLabelValues(op, resultStore).Inc()
	e.logger.Error("graph diverged from store; reload required", zap.String("op", op), zap.Error(err))
	return fmt.Errorf("%s: graph diverged from store, reload required: %w", op, err)
}

func (e *Engine) done(ctx context.Context, op string, ev events.Event) {
	e.metrics.mutations.WithLabelValues(op, resultOK).Inc()
	e.logger.Info("mutation applied", zap.String("op", op), zap.String("subject", ev.Subject))
	e.publish(ctx, ev)
}
