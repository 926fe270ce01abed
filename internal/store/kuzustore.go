//go:build cgo

package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dusk-indust/systrav/internal/graph"
	"github.com/google/uuid"
	kuzu "github.com/kuzudb/go-kuzu"
	"go.uber.org/zap"
)

// KuzuStore implements the Store interface on an embedded KuzuDB.
// It requires CGO because the go-kuzu driver wraps KuzuDB's C library.
// Each collection is a node table with a SERIAL rid that preserves
// insertion order.
type KuzuStore struct {
	db     *kuzu.Database
	conn   *kuzu.Connection
	logger *zap.Logger
}

// Compile-time check that KuzuStore satisfies Store.
var _ Store = (*KuzuStore)(nil)

// NewKuzuStore creates a KuzuStore backed by an in-memory KuzuDB instance.
func NewKuzuStore(logger *zap.Logger) (*KuzuStore, error) {
	return openKuzu(":memory:", logger)
}

// NewKuzuFileStore creates a KuzuStore backed by a file-based KuzuDB at the
// given path. KuzuDB creates the leaf directory itself for new databases.
func NewKuzuFileStore(dbPath string, logger *zap.Logger) (*KuzuStore, error) {
	// Ensure parent directory exists (KuzuDB creates the leaf directory).
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("kuzu: create parent directory: %w", err)
	}
	return openKuzu(dbPath, logger)
}

func openKuzu(path string, logger *zap.Logger) (*KuzuStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := kuzu.DefaultSystemConfig()
	db, err := kuzu.OpenDatabase(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("kuzu: open database: %w", err)
	}
	conn, err := kuzu.OpenConnection(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("kuzu: open connection: %w", err)
	}
	return &KuzuStore{db: db, conn: conn, logger: logger.Named("kuzu")}, nil
}

// Close releases the KuzuDB connection and database.
func (s *KuzuStore) Close() error {
	if s.conn != nil {
		s.conn.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
	return nil
}

// ---------- Schema setup ----------

// ddlStatements defines the Cypher DDL executed by InitSchema.
var ddlStatements = []string{
	`CREATE NODE TABLE IF NOT EXISTS systems(
		rid SERIAL,
		id STRING,
		name STRING,
		category STRING,
		PRIMARY KEY(rid)
	)`,
	`CREATE NODE TABLE IF NOT EXISTS system_hierarchy(
		rid SERIAL,
		parent_id STRING,
		child_id STRING,
		PRIMARY KEY(rid)
	)`,
	`CREATE NODE TABLE IF NOT EXISTS interfaces_with(
		rid SERIAL,
		id STRING,
		system_a_id STRING,
		system_b_id STRING,
		connection_type STRING,
		directional BOOLEAN,
		PRIMARY KEY(rid)
	)`,
}

// InitSchema creates the three node tables if they do not exist.
func (s *KuzuStore) InitSchema(_ context.Context) error {
	for _, stmt := range ddlStatements {
		res, err := s.conn.Query(stmt)
		if err != nil {
			return fmt.Errorf("kuzu: init schema: %w", err)
		}
		res.Close()
	}
	return nil
}

// ---------- Reads ----------

// SelectSystems returns every system in insertion order.
func (s *KuzuStore) SelectSystems(_ context.Context) ([]graph.SystemRecord, error) {
	rows, err := s.query("MATCH (r:systems) RETURN r.id, r.name, r.category ORDER BY r.rid", nil)
	if err != nil {
		return nil, err
	}
	out := make([]graph.SystemRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, graph.SystemRecord{
			ID:       toString(r[0]),
			Name:     toString(r[1]),
			Category: toString(r[2]),
		})
	}
	return out, nil
}

// SelectInterfaces returns every interface in insertion order.
func (s *KuzuStore) SelectInterfaces(_ context.Context) ([]graph.InterfaceEdge, error) {
	rows, err := s.query(
		`MATCH (r:interfaces_with)
		 RETURN r.id, r.system_a_id, r.system_b_id, r.connection_type, r.directional
		 ORDER BY r.rid`,
		nil,
	)
	if err != nil {
		return nil, err
	}
	out := make([]graph.InterfaceEdge, 0, len(rows))
	for _, r := range rows {
		out = append(out, graph.InterfaceEdge{
			ID:             toString(r[0]),
			SystemAID:      toString(r[1]),
			SystemBID:      toString(r[2]),
			ConnectionType: toString(r[3]),
			Directional:    toBool(r[4]),
		})
	}
	return out, nil
}

// SelectHierarchy returns every hierarchy row in insertion order.
func (s *KuzuStore) SelectHierarchy(_ context.Context) ([]graph.HierarchyEdge, error) {
	rows, err := s.query("MATCH (r:system_hierarchy) RETURN r.parent_id, r.child_id ORDER BY r.rid", nil)
	if err != nil {
		return nil, err
	}
	out := make([]graph.HierarchyEdge, 0, len(rows))
	for _, r := range rows {
		out = append(out, graph.HierarchyEdge{
			ParentID: toString(r[0]),
			ChildID:  toString(r[1]),
		})
	}
	return out, nil
}

// ---------- Writes ----------

// InsertSystem creates a systems node, assigning an id when missing.
func (s *KuzuStore) InsertSystem(_ context.Context, rec graph.SystemRecord) (graph.SystemRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if err := s.ensureAbsent(Systems, ColName, rec.Name); err != nil {
		return graph.SystemRecord{}, err
	}
	err := s.exec(
		"CREATE (r:systems {id: $id, name: $name, category: $category})",
		map[string]any{"id": rec.ID, "name": rec.Name, "category": rec.Category},
	)
	if err != nil {
		return graph.SystemRecord{}, err
	}
	return rec, nil
}

// InsertInterface creates an interfaces_with node, assigning an id when missing.
func (s *KuzuStore) InsertInterface(_ context.Context, rec graph.InterfaceEdge) (graph.InterfaceEdge, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if err := s.ensureAbsent(Interfaces, ColID, rec.ID); err != nil {
		return graph.InterfaceEdge{}, err
	}
	err := s.exec(
		`CREATE (r:interfaces_with {
			id: $id,
			system_a_id: $a,
			system_b_id: $b,
			connection_type: $ct,
			directional: $dir
		})`,
		map[string]any{
			"id":  rec.ID,
			"a":   rec.SystemAID,
			"b":   rec.SystemBID,
			"ct":  rec.ConnectionType,
			"dir": rec.Directional,
		},
	)
	if err != nil {
		return graph.InterfaceEdge{}, err
	}
	return rec, nil
}

// InsertHierarchy creates a system_hierarchy node. A child has at most one parent.
func (s *KuzuStore) InsertHierarchy(_ context.Context, rec graph.HierarchyEdge) (graph.HierarchyEdge, error) {
	if err := s.ensureAbsent(Hierarchy, ColChildID, rec.ChildID); err != nil {
		return graph.HierarchyEdge{}, err
	}
	err := s.exec(
		"CREATE (r:system_hierarchy {parent_id: $parent, child_id: $child})",
		map[string]any{"parent": rec.ParentID, "child": rec.ChildID},
	)
	if err != nil {
		return graph.HierarchyEdge{}, err
	}
	return rec, nil
}

// UpdateWhere sets patch on every node of the collection whose keyField
// equals keyValue.
func (s *KuzuStore) UpdateWhere(_ context.Context, c Collection, keyField string, keyValue any, patch Patch) (int64, error) {
	if err := CheckColumns(c, keyField, patch); err != nil {
		return 0, err
	}
	n, err := s.countWhere(c, keyField, keyValue)
	if err != nil || n == 0 || len(patch) == 0 {
		return n, err
	}
	pk := PrimaryKey(c)
	if v, ok := patch[pk]; ok && !(keyField == pk && v == keyValue) {
		if n > 1 {
			return 0, fmt.Errorf("%w: %s.%s = %v", ErrDuplicateKey, c, pk, v)
		}
		if err := s.ensureAbsent(c, pk, v); err != nil {
			return 0, err
		}
	}

	// Column names come from the allow-list, never from input.
	fields := make([]string, 0, len(patch))
	for f := range patch {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	params := map[string]any{"key": keyValue}
	sets := make([]string, 0, len(fields))
	for _, f := range fields {
		sets = append(sets, fmt.Sprintf("r.%s = $v_%s", f, f))
		params["v_"+f] = patch[f]
	}
	cypher := fmt.Sprintf("MATCH (r:%s) WHERE r.%s = $key SET %s", c, keyField, strings.Join(sets, ", "))
	if err := s.exec(cypher, params); err != nil {
		return 0, err
	}
	s.logger.Debug("updated rows",
		zap.String("collection", string(c)),
		zap.String("key", keyField),
		zap.Int64("rows", n))
	return n, nil
}

// DeleteWhere removes every node of the collection whose keyField equals keyValue.
func (s *KuzuStore) DeleteWhere(_ context.Context, c Collection, keyField string, keyValue any) (int64, error) {
	if err := CheckColumns(c, keyField, nil); err != nil {
		return 0, err
	}
	n, err := s.countWhere(c, keyField, keyValue)
	if err != nil || n == 0 {
		return n, err
	}
	cypher := fmt.Sprintf("MATCH (r:%s) WHERE r.%s = $key DELETE r", c, keyField)
	if err := s.exec(cypher, map[string]any{"key": keyValue}); err != nil {
		return 0, err
	}
	return n, nil
}

// ---------- Internal helpers ----------

// ensureAbsent fails with ErrDuplicateKey when a row with field = value exists.
func (s *KuzuStore) ensureAbsent(c Collection, field string, value any) error {
	n, err := s.countWhere(c, field, value)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w: %s.%s = %v", ErrDuplicateKey, c, field, value)
	}
	return nil
}

// countWhere counts nodes of a collection with field = value.
func (s *KuzuStore) countWhere(c Collection, field string, value any) (int64, error) {
	// Table and field are fixed internal constants, not user input.
	cypher := fmt.Sprintf("MATCH (r:%s) WHERE r.%s = $key RETURN count(r)", c, field)
	rows, err := s.query(cypher, map[string]any{"key": value})
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return 0, nil
	}
	return toInt64(rows[0][0]), nil
}

// exec runs a parameterized Cypher statement that produces no result rows.
func (s *KuzuStore) exec(cypher string, params map[string]any) error {
	stmt, err := s.conn.Prepare(cypher)
	if err != nil {
		return fmt.Errorf("kuzu: prepare: %w", err)
	}
	defer stmt.Close()

	res, err := s.conn.Execute(stmt, params)
	if err != nil {
		return fmt.Errorf("kuzu: execute: %w", err)
	}
	res.Close()
	return nil
}

// query runs a parameterized Cypher statement and collects all result rows.
// Each row is a []any slice with values in column order.
func (s *KuzuStore) query(cypher string, params map[string]any) ([][]any, error) {
	var res *kuzu.QueryResult
	var err error

	if len(params) == 0 {
		res, err = s.conn.Query(cypher)
	} else {
		var stmt *kuzu.PreparedStatement
		stmt, err = s.conn.Prepare(cypher)
		if err != nil {
			return nil, fmt.Errorf("kuzu: prepare: %w", err)
		}
		defer stmt.Close()
		res, err = s.conn.Execute(stmt, params)
	}
	if err != nil {
		return nil, fmt.Errorf("kuzu: query: %w", err)
	}
	defer res.Close()

	var rows [][]any
	for res.HasNext() {
		tuple, err := res.Next()
		if err != nil {
			return nil, fmt.Errorf("kuzu: next: %w", err)
		}
		vals, err := tuple.GetAsSlice()
		if err != nil {
			return nil, fmt.Errorf("kuzu: row values: %w", err)
		}
		rows = append(rows, vals)
	}
	return rows, nil
}
