package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dusk-indust/systrav/internal/graph"
	"github.com/google/uuid"
)

// Compile-time assertion: *MemStore satisfies Store.
var _ Store = (*MemStore)(nil)

// ErrDuplicateKey is returned when an insert or update would break a
// collection's unique key.
var ErrDuplicateKey = errors.New("store: duplicate key")

// row is one record as column -> value.
type row map[string]any

// MemStore implements Store with in-memory tables. Thread-safe via
// sync.RWMutex. Rows keep insertion order so selects are deterministic.
type MemStore struct {
	mu     sync.RWMutex
	tables map[Collection][]row
}

// NewMemStore returns an initialized MemStore ready for use.
func NewMemStore() *MemStore {
	return &MemStore{
		tables: map[Collection][]row{
			Systems:    nil,
			Interfaces: nil,
			Hierarchy:  nil,
		},
	}
}

// InitSchema is a no-op for the in-memory store.
func (m *MemStore) InitSchema(_ context.Context) error {
	return nil
}

// SelectSystems returns every system row in insertion order.
func (m *MemStore) SelectSystems(_ context.Context) ([]graph.SystemRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]graph.SystemRecord, 0, len(m.tables[Systems]))
	for _, r := range m.tables[Systems] {
		out = append(out, systemFromRow(r))
	}
	return out, nil
}

// SelectInterfaces returns every interface row in insertion order.
func (m *MemStore) SelectInterfaces(_ context.Context) ([]graph.InterfaceEdge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]graph.InterfaceEdge, 0, len(m.tables[Interfaces]))
	for _, r := range m.tables[Interfaces] {
		out = append(out, interfaceFromRow(r))
	}
	return out, nil
}

// SelectHierarchy returns every hierarchy row in insertion order.
func (m *MemStore) SelectHierarchy(_ context.Context) ([]graph.HierarchyEdge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]graph.HierarchyEdge, 0, len(m.tables[Hierarchy]))
	for _, r := range m.tables[Hierarchy] {
		out = append(out, hierarchyFromRow(r))
	}
	return out, nil
}

// InsertSystem stores a system, assigning an id when missing. Names are unique.
func (m *MemStore) InsertSystem(_ context.Context, rec graph.SystemRecord) (graph.SystemRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if err := m.insert(Systems, systemToRow(rec), ColName); err != nil {
		return graph.SystemRecord{}, err
	}
	return rec, nil
}

// InsertInterface stores an interface, assigning an id when missing.
func (m *MemStore) InsertInterface(_ context.Context, rec graph.InterfaceEdge) (graph.InterfaceEdge, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if err := m.insert(Interfaces, interfaceToRow(rec), ColID); err != nil {
		return graph.InterfaceEdge{}, err
	}
	return rec, nil
}

// InsertHierarchy stores a parent/child row. A child has at most one parent.
func (m *MemStore) InsertHierarchy(_ context.Context, rec graph.HierarchyEdge) (graph.HierarchyEdge, error) {
	if err := m.insert(Hierarchy, hierarchyToRow(rec), ColChildID); err != nil {
		return graph.HierarchyEdge{}, err
	}
	return rec, nil
}

func (m *MemStore) insert(c Collection, r row, unique string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.tables[c] {
		if existing[unique] == r[unique] {
			return fmt.Errorf("%w: %s.%s = %v", ErrDuplicateKey, c, unique, r[unique])
		}
	}
	m.tables[c] = append(m.tables[c], r)
	return nil
}

// UpdateWhere applies patch to every row whose keyField equals keyValue.
func (m *MemStore) UpdateWhere(_ context.Context, c Collection, keyField string, keyValue any, patch Patch) (int64, error) {
	if err := CheckColumns(c, keyField, patch); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := m.tables[c]
	next := make([]row, len(rows))
	var n int64
	for i, r := range rows {
		if r[keyField] == keyValue {
			updated := make(row, len(r))
			for k, v := range r {
				updated[k] = v
			}
			for k, v := range patch {
				updated[k] = v
			}
			r = updated
			n++
		}
		next[i] = r
	}

	// Keep the collection's key unique, as a database constraint would.
	unique := PrimaryKey(c)
	seen := make(map[any]bool, len(next))
	for _, r := range next {
		if seen[r[unique]] {
			return 0, fmt.Errorf("%w: %s.%s = %v", ErrDuplicateKey, c, unique, r[unique])
		}
		seen[r[unique]] = true
	}

	m.tables[c] = next
	return n, nil
}

// DeleteWhere removes every row whose keyField equals keyValue.
func (m *MemStore) DeleteWhere(_ context.Context, c Collection, keyField string, keyValue any) (int64, error) {
	if err := CheckColumns(c, keyField, nil); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := m.tables[c]
	kept := make([]row, 0, len(rows))
	var n int64
	for _, r := range rows {
		if r[keyField] == keyValue {
			n++
			continue
		}
		kept = append(kept, r)
	}
	m.tables[c] = kept
	return n, nil
}

// Close is a no-op for the in-memory store.
func (m *MemStore) Close() error {
	return nil
}

// --- row conversion ---

func systemToRow(s graph.SystemRecord) row {
	return row{ColID: s.ID, ColName: s.Name, ColCategory: s.Category}
}

func systemFromRow(r row) graph.SystemRecord {
	return graph.SystemRecord{
		ID:       toString(r[ColID]),
		Name:     toString(r[ColName]),
		Category: toString(r[ColCategory]),
	}
}

func interfaceToRow(i graph.InterfaceEdge) row {
	return row{
		ColID:             i.ID,
		ColSystemAID:      i.SystemAID,
		ColSystemBID:      i.SystemBID,
		ColConnectionType: i.ConnectionType,
		ColDirectional:    i.Directional,
	}
}

func interfaceFromRow(r row) graph.InterfaceEdge {
	return graph.InterfaceEdge{
		ID:             toString(r[ColID]),
		SystemAID:      toString(r[ColSystemAID]),
		SystemBID:      toString(r[ColSystemBID]),
		ConnectionType: toString(r[ColConnectionType]),
		Directional:    toBool(r[ColDirectional]),
	}
}

func hierarchyToRow(h graph.HierarchyEdge) row {
	return row{ColParentID: h.ParentID, ColChildID: h.ChildID}
}

func hierarchyFromRow(r row) graph.HierarchyEdge {
	return graph.HierarchyEdge{
		ParentID: toString(r[ColParentID]),
		ChildID:  toString(r[ColChildID]),
	}
}
