package seed

import (
	"context"
	"fmt"

	"github.com/dusk-indust/systrav/internal/graph"
	"github.com/dusk-indust/systrav/internal/store"
	"go.uber.org/zap"
)

// Options controls Apply.
type Options struct {
	// Reset deletes every existing row before seeding.
	Reset  bool
	Logger *zap.Logger
}

// Result counts what Apply wrote.
type Result struct {
	Removed    int `json:"removed"`
	Systems    int `json:"systems"`
	Hierarchy  int `json:"hierarchy"`
	Interfaces int `json:"interfaces"`
}

// Apply writes f into st: systems first, then hierarchy rows, then
// interfaces. Without Reset, a system that already exists fails the seed
// with store.ErrDuplicateKey. Apply stops at the first failed write. f is
// expected to have passed Validate, which Parse and Load guarantee.
func Apply(ctx context.Context, st store.Store, f *File, opts Options) (Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	var res Result

	if opts.Reset {
		n, err := reset(ctx, st)
		res.Removed = n
		if err != nil {
			return res, err
		}
		logger.Info("cleared store", zap.Int("rows", n))
	}

	for _, s := range f.Systems {
		_, err := st.InsertSystem(ctx, graph.SystemRecord{
			Name:     s.Name,
			Category: s.Category,
		})
		if err != nil {
			return res, fmt.Errorf("seed system %q: %w", s.Name, err)
		}
		res.Systems++
	}
	for _, s := range f.Systems {
		if s.Parent == "" {
			continue
		}
		_, err := st.InsertHierarchy(ctx, graph.HierarchyEdge{ParentID: s.Parent, ChildID: s.Name})
		if err != nil {
			return res, fmt.Errorf("seed hierarchy %q -> %q: %w", s.Parent, s.Name, err)
		}
		res.Hierarchy++
	}
	for _, i := range f.Interfaces {
		_, err := st.InsertInterface(ctx, graph.InterfaceEdge{
			SystemAID:      i.From,
			SystemBID:      i.To,
			ConnectionType: i.Type,
			Directional:    i.IsDirectional(),
		})
		if err != nil {
			return res, fmt.Errorf("seed interface %q -> %q: %w", i.From, i.To, err)
		}
		res.Interfaces++
	}

	logger.Info("seeded store",
		zap.Int("systems", res.Systems),
		zap.Int("hierarchy", res.Hierarchy),
		zap.Int("interfaces", res.Interfaces))
	return res, nil
}

// reset deletes every row of the three collections by key.
func reset(ctx context.Context, st store.Store) (int, error) {
	var n int64

	ifaces, err := st.SelectInterfaces(ctx)
	if err != nil {
		return 0, fmt.Errorf("reset: %w", err)
	}
	for _, i := range ifaces {
		k, err := st.DeleteWhere(ctx, store.Interfaces, store.ColID, i.ID)
		if err != nil {
			return int(n), fmt.Errorf("reset interfaces: %w", err)
		}
		n += k
	}

	rows, err := st.SelectHierarchy(ctx)
	if err != nil {
		return int(n), fmt.Errorf("reset: %w", err)
	}
	for _, h := range rows {
		k, err := st.DeleteWhere(ctx, store.Hierarchy, store.ColChildID, h.ChildID)
		if err != nil {
			return int(n), fmt.Errorf("reset hierarchy: %w", err)
		}
		n += k
	}

	systems, err := st.SelectSystems(ctx)
	if err != nil {
		return int(n), fmt.Errorf("reset: %w", err)
	}
	for _, s := range systems {
		k, err := st.DeleteWhere(ctx, store.Systems, store.ColName, s.Name)
		if err != nil {
			return int(n), fmt.Errorf("reset systems: %w", err)
		}
		n += k
	}
	return int(n), nil
}
