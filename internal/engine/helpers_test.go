package engine

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dusk-indust/systrav/internal/events"
	"github.com/dusk-indust/systrav/internal/graph"
	"github.com/dusk-indust/systrav/internal/store"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

// seedStore fills a MemStore with:
//
//	A -> B -> D
//	A -> C
//	E
//
// and interfaces A-B ("ab"), B-C ("bc"), A-E ("ae").
func seedStore(t *testing.T) *store.MemStore {
	t.Helper()
	ctx := context.Background()
	s := store.NewMemStore()
	for _, name := range []string{"A", "B", "C", "D", "E"} {
		_, err := s.InsertSystem(ctx, graph.SystemRecord{ID: "id-" + name, Name: name, Category: "Backend"})
		require.NoError(t, err)
	}
	for _, h := range []graph.HierarchyEdge{
		{ParentID: "A", ChildID: "B"},
		{ParentID: "A", ChildID: "C"},
		{ParentID: "B", ChildID: "D"},
	} {
		_, err := s.InsertHierarchy(ctx, h)
		require.NoError(t, err)
	}
	for _, i := range []graph.InterfaceEdge{
		{ID: "ab", SystemAID: "A", SystemBID: "B", ConnectionType: "API", Directional: true},
		{ID: "bc", SystemAID: "B", SystemBID: "C", ConnectionType: "Internal"},
		{ID: "ae", SystemAID: "A", SystemBID: "E", ConnectionType: "Render", Directional: true},
	} {
		_, err := s.InsertInterface(ctx, i)
		require.NoError(t, err)
	}
	return s
}

// newTestEngine returns a loaded engine over st.
func newTestEngine(t *testing.T, st store.Store, opts Options) *Engine {
	t.Helper()
	e := New(st, opts)
	_, err := e.Reload(context.Background())
	require.NoError(t, err)
	return e
}

// faultyStore wraps a Store and fails selected calls. fail is keyed by
// "Method" or "Method:collection.field" and holds the error to return.
type faultyStore struct {
	store.Store
	mu    sync.Mutex
	fail  map[string]error
	calls []string
}

func newFaultyStore(inner store.Store) *faultyStore {
	return &faultyStore{Store: inner, fail: make(map[string]error)}
}

func (f *faultyStore) hit(keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, keys[len(keys)-1])
	for _, k := range keys {
		if err, ok := f.fail[k]; ok {
			return err
		}
	}
	return nil
}

func (f *faultyStore) SelectSystems(ctx context.Context) ([]graph.SystemRecord, error) {
	if err := f.hit("SelectSystems"); err != nil {
		return nil, err
	}
	return f.Store.SelectSystems(ctx)
}

func (f *faultyStore) SelectHierarchy(ctx context.Context) ([]graph.HierarchyEdge, error) {
	if err := f.hit("SelectHierarchy"); err != nil {
		return nil, err
	}
	return f.Store.SelectHierarchy(ctx)
}

func (f *faultyStore) InsertSystem(ctx context.Context, rec graph.SystemRecord) (graph.SystemRecord, error) {
	if err := f.hit("InsertSystem"); err != nil {
		return graph.SystemRecord{}, err
	}
	return f.Store.InsertSystem(ctx, rec)
}

func (f *faultyStore) InsertHierarchy(ctx context.Context, rec graph.HierarchyEdge) (graph.HierarchyEdge, error) {
	if err := f.hit("InsertHierarchy"); err != nil {
		return graph.HierarchyEdge{}, err
	}
	return f.Store.InsertHierarchy(ctx, rec)
}

func (f *faultyStore) UpdateWhere(ctx context.Context, c store.Collection, keyField string, keyValue any, patch store.Patch) (int64, error) {
	if err := f.hit("UpdateWhere", "UpdateWhere:"+string(c)+"."+keyField); err != nil {
		return 0, err
	}
	return f.Store.UpdateWhere(ctx, c, keyField, keyValue, patch)
}

func (f *faultyStore) DeleteWhere(ctx context.Context, c store.Collection, keyField string, keyValue any) (int64, error) {
	if err := f.hit("DeleteWhere", "DeleteWhere:"+string(c)+"."+keyField); err != nil {
		return 0, err
	}
	return f.Store.DeleteWhere(ctx, c, keyField, keyValue)
}

// blockingStore parks calls to the named methods (UpdateWhere when none are
// given) until their context ends or release is closed. entered receives
// once per parked call.
type blockingStore struct {
	store.Store
	park    map[string]bool
	entered chan struct{}
	release chan struct{}
}

func newBlockingStore(inner store.Store, methods ...string) *blockingStore {
	if len(methods) == 0 {
		methods = []string{"UpdateWhere"}
	}
	park := make(map[string]bool, len(methods))
	for _, m := range methods {
		park[m] = true
	}
	return &blockingStore{Store: inner, park: park, entered: make(chan struct{}, 8), release: make(chan struct{})}
}

func (b *blockingStore) wait(ctx context.Context, method string) error {
	if !b.park[method] {
		return nil
	}
	b.entered <- struct{}{}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-b.release:
		return nil
	}
}

func (b *blockingStore) UpdateWhere(ctx context.Context, c store.Collection, keyField string, keyValue any, patch store.Patch) (int64, error) {
	if err := b.wait(ctx, "UpdateWhere"); err != nil {
		return 0, err
	}
	return b.Store.UpdateWhere(ctx, c, keyField, keyValue, patch)
}

func (b *blockingStore) InsertHierarchy(ctx context.Context, rec graph.HierarchyEdge) (graph.HierarchyEdge, error) {
	if err := b.wait(ctx, "InsertHierarchy"); err != nil {
		return graph.HierarchyEdge{}, err
	}
	return b.Store.InsertHierarchy(ctx, rec)
}

func (b *blockingStore) InsertInterface(ctx context.Context, rec graph.InterfaceEdge) (graph.InterfaceEdge, error) {
	if err := b.wait(ctx, "InsertInterface"); err != nil {
		return graph.InterfaceEdge{}, err
	}
	return b.Store.InsertInterface(ctx, rec)
}

// extraRowsStore appends fixed rows to what the wrapped store returns, for
// data a well-behaved store would refuse to hold.
type extraRowsStore struct {
	store.Store
	systems   []graph.SystemRecord
	hierarchy []graph.HierarchyEdge
}

func (x *extraRowsStore) SelectSystems(ctx context.Context) ([]graph.SystemRecord, error) {
	rows, err := x.Store.SelectSystems(ctx)
	if err != nil {
		return nil, err
	}
	return append(rows, x.systems...), nil
}

func (x *extraRowsStore) SelectHierarchy(ctx context.Context) ([]graph.HierarchyEdge, error) {
	rows, err := x.Store.SelectHierarchy(ctx)
	if err != nil {
		return nil, err
	}
	return append(rows, x.hierarchy...), nil
}

// recorder collects published events.
type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(_ context.Context, ev events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) Close() error { return nil }

func (r *recorder) kinds() []events.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Kind, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Kind)
	}
	return out
}
