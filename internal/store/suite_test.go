package store

import (
	"context"
	"testing"

	"github.com/dusk-indust/systrav/internal/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStoreSuite exercises the Store contract against one backend. newStore
// must return an empty store with an initialized schema.
func runStoreSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Helper()

	t.Run("SelectEmpty", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		systems, err := s.SelectSystems(ctx)
		require.NoError(t, err)
		assert.Empty(t, systems)

		ifaces, err := s.SelectInterfaces(ctx)
		require.NoError(t, err)
		assert.Empty(t, ifaces)

		rows, err := s.SelectHierarchy(ctx)
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("InsertSystemAssignsID", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		got, err := s.InsertSystem(ctx, graph.SystemRecord{Name: "Gateway", Category: "Backend"})
		require.NoError(t, err)
		assert.NotEmpty(t, got.ID)

		kept, err := s.InsertSystem(ctx, graph.SystemRecord{ID: "fixed", Name: "Cache"})
		require.NoError(t, err)
		assert.Equal(t, "fixed", kept.ID)

		systems, err := s.SelectSystems(ctx)
		require.NoError(t, err)
		require.Len(t, systems, 2)
		assert.Equal(t, got, systems[0])
		assert.Equal(t, "Cache", systems[1].Name)
	})

	t.Run("InsertSystemDuplicateName", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.InsertSystem(ctx, graph.SystemRecord{Name: "A"})
		require.NoError(t, err)
		_, err = s.InsertSystem(ctx, graph.SystemRecord{Name: "A"})
		assert.ErrorIs(t, err, ErrDuplicateKey)
	})

	t.Run("InsertOrderPreserved", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		for _, name := range []string{"C", "A", "B"} {
			_, err := s.InsertSystem(ctx, graph.SystemRecord{Name: name})
			require.NoError(t, err)
		}
		systems, err := s.SelectSystems(ctx)
		require.NoError(t, err)
		names := make([]string, 0, len(systems))
		for _, sys := range systems {
			names = append(names, sys.Name)
		}
		assert.Equal(t, []string{"C", "A", "B"}, names)
	})

	t.Run("HierarchyOneParentPerChild", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.InsertHierarchy(ctx, graph.HierarchyEdge{ParentID: "A", ChildID: "B"})
		require.NoError(t, err)
		_, err = s.InsertHierarchy(ctx, graph.HierarchyEdge{ParentID: "C", ChildID: "B"})
		assert.ErrorIs(t, err, ErrDuplicateKey)

		rows, err := s.SelectHierarchy(ctx)
		require.NoError(t, err)
		assert.Equal(t, []graph.HierarchyEdge{{ParentID: "A", ChildID: "B"}}, rows)
	})

	t.Run("InterfaceRoundTrip", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		in := graph.InterfaceEdge{SystemAID: "A", SystemBID: "B", ConnectionType: "API", Directional: true}
		got, err := s.InsertInterface(ctx, in)
		require.NoError(t, err)
		require.NotEmpty(t, got.ID)

		undirected, err := s.InsertInterface(ctx, graph.InterfaceEdge{ID: "i2", SystemAID: "B", SystemBID: "C"})
		require.NoError(t, err)

		ifaces, err := s.SelectInterfaces(ctx)
		require.NoError(t, err)
		require.Len(t, ifaces, 2)
		assert.Equal(t, got, ifaces[0])
		assert.Equal(t, undirected, ifaces[1])
		assert.False(t, ifaces[1].Directional)
	})

	t.Run("UpdateWhere", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.InsertHierarchy(ctx, graph.HierarchyEdge{ParentID: "A", ChildID: "B"})
		require.NoError(t, err)
		_, err = s.InsertHierarchy(ctx, graph.HierarchyEdge{ParentID: "A", ChildID: "C"})
		require.NoError(t, err)
		_, err = s.InsertHierarchy(ctx, graph.HierarchyEdge{ParentID: "X", ChildID: "D"})
		require.NoError(t, err)

		n, err := s.UpdateWhere(ctx, Hierarchy, ColParentID, "A", Patch{ColParentID: "Z"})
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		rows, err := s.SelectHierarchy(ctx)
		require.NoError(t, err)
		assert.Equal(t, []graph.HierarchyEdge{
			{ParentID: "Z", ChildID: "B"},
			{ParentID: "Z", ChildID: "C"},
			{ParentID: "X", ChildID: "D"},
		}, rows)
	})

	t.Run("UpdateWhereNoMatch", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		n, err := s.UpdateWhere(ctx, Systems, ColName, "missing", Patch{ColCategory: "x"})
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("UpdateWhereRenameCollision", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.InsertSystem(ctx, graph.SystemRecord{Name: "A"})
		require.NoError(t, err)
		_, err = s.InsertSystem(ctx, graph.SystemRecord{Name: "B"})
		require.NoError(t, err)

		_, err = s.UpdateWhere(ctx, Systems, ColName, "A", Patch{ColName: "B"})
		assert.ErrorIs(t, err, ErrDuplicateKey)
	})

	t.Run("UpdateWhereUnknownColumn", func(t *testing.T) {
		s := newStore(t)
		_, err := s.UpdateWhere(context.Background(), Systems, "password", "x", Patch{ColName: "y"})
		assert.ErrorIs(t, err, ErrUnknownColumn)
	})

	t.Run("DeleteWhere", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		for _, iface := range []graph.InterfaceEdge{
			{ID: "1", SystemAID: "A", SystemBID: "B"},
			{ID: "2", SystemAID: "B", SystemBID: "C"},
			{ID: "3", SystemAID: "A", SystemBID: "C"},
		} {
			_, err := s.InsertInterface(ctx, iface)
			require.NoError(t, err)
		}

		n, err := s.DeleteWhere(ctx, Interfaces, ColSystemAID, "A")
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		ifaces, err := s.SelectInterfaces(ctx)
		require.NoError(t, err)
		require.Len(t, ifaces, 1)
		assert.Equal(t, "2", ifaces[0].ID)

		n, err = s.DeleteWhere(ctx, Interfaces, ColID, "missing")
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}
