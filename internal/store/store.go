// Package store defines the record store the graph engine reads from and
// writes to, and its backends.
package store

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dusk-indust/systrav/internal/graph"
)

// Store is the record store behind the graph. It holds three flat
// collections: systems, system_hierarchy and interfaces_with.
// Implementations: MemStore (testing, default), SQLStore (postgres/mysql),
// KuzuStore (embedded, cgo).
type Store interface {
	io.Closer

	// Schema setup, called once before use.
	InitSchema(ctx context.Context) error

	// Reads.
	SelectSystems(ctx context.Context) ([]graph.SystemRecord, error)
	SelectInterfaces(ctx context.Context) ([]graph.InterfaceEdge, error)
	SelectHierarchy(ctx context.Context) ([]graph.HierarchyEdge, error)

	// Inserts. The store assigns an id when the record has none and returns
	// the stored record.
	InsertSystem(ctx context.Context, rec graph.SystemRecord) (graph.SystemRecord, error)
	InsertInterface(ctx context.Context, rec graph.InterfaceEdge) (graph.InterfaceEdge, error)
	InsertHierarchy(ctx context.Context, rec graph.HierarchyEdge) (graph.HierarchyEdge, error)

	// Keyed writes. They return the number of affected rows.
	UpdateWhere(ctx context.Context, c Collection, keyField string, keyValue any, patch Patch) (int64, error)
	DeleteWhere(ctx context.Context, c Collection, keyField string, keyValue any) (int64, error)
}

// Collection names a record collection.
type Collection string

const (
	Systems    Collection = "systems"
	Interfaces Collection = "interfaces_with"
	Hierarchy  Collection = "system_hierarchy"
)

// Column names.
const (
	ColID             = "id"
	ColName           = "name"
	ColCategory       = "category"
	ColParentID       = "parent_id"
	ColChildID        = "child_id"
	ColSystemAID      = "system_a_id"
	ColSystemBID      = "system_b_id"
	ColConnectionType = "connection_type"
	ColDirectional    = "directional"
)

// columns is the allow-list of fields per collection. Keys and patch fields
// are checked against it before any backend builds a query.
var columns = map[Collection][]string{
	Systems:    {ColID, ColName, ColCategory},
	Hierarchy:  {ColParentID, ColChildID},
	Interfaces: {ColID, ColSystemAID, ColSystemBID, ColConnectionType, ColDirectional},
}

// PrimaryKey returns the field a collection is keyed by.
func PrimaryKey(c Collection) string {
	switch c {
	case Systems:
		return ColName
	case Hierarchy:
		return ColChildID
	default:
		return ColID
	}
}

// Patch maps column names to new values.
type Patch map[string]any

// ErrUnknownColumn is returned for a key or patch field outside a
// collection's columns.
var ErrUnknownColumn = errors.New("store: unknown column")

// ErrUnknownCollection is returned for a collection name the store does not hold.
var ErrUnknownCollection = errors.New("store: unknown collection")

// CheckColumns validates a key field and patch against the collection.
func CheckColumns(c Collection, keyField string, patch Patch) error {
	cols, ok := columns[c]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCollection, c)
	}
	allowed := func(f string) bool {
		for _, col := range cols {
			if col == f {
				return true
			}
		}
		return false
	}
	if !allowed(keyField) {
		return fmt.Errorf("%w: %s.%s", ErrUnknownColumn, c, keyField)
	}
	for f := range patch {
		if !allowed(f) {
			return fmt.Errorf("%w: %s.%s", ErrUnknownColumn, c, f)
		}
	}
	return nil
}
