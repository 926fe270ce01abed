package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/dusk-indust/systrav/internal/graph"
	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// Dialect selects the SQL database flavor.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
)

func (d Dialect) flavor() (sqlbuilder.Flavor, error) {
	switch d {
	case DialectPostgres:
		return sqlbuilder.PostgreSQL, nil
	case DialectMySQL:
		return sqlbuilder.MySQL, nil
	default:
		return 0, fmt.Errorf("sql: unsupported dialect %q", d)
	}
}

// SQLStore implements Store on a relational database: one table per
// collection, rows ordered by a database-assigned seq column.
type SQLStore struct {
	db      *sqlx.DB
	dialect Dialect
	flavor  sqlbuilder.Flavor
	logger  *zap.Logger
}

// Compile-time check that SQLStore satisfies Store.
var _ Store = (*SQLStore)(nil)

// OpenSQLStore connects to the database named by dsn.
func OpenSQLStore(ctx context.Context, dialect Dialect, dsn string, logger *zap.Logger) (*SQLStore, error) {
	flavor, err := dialect.flavor()
	if err != nil {
		return nil, err
	}
	db, err := sqlx.ConnectContext(ctx, string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("sql: connect: %w", err)
	}
	return NewSQLStore(db, dialect, flavor, logger), nil
}

// NewSQLStore wraps an open connection.
func NewSQLStore(db *sqlx.DB, dialect Dialect, flavor sqlbuilder.Flavor, logger *zap.Logger) *SQLStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLStore{
		db:      db,
		dialect: dialect,
		flavor:  flavor,
		logger:  logger.Named("sql"),
	}
}

// InitSchema runs the embedded migrations for the store's dialect.
func (s *SQLStore) InitSchema(_ context.Context) error {
	return Migrate(s.db.DB, s.dialect, s.logger)
}

// Close closes the database handle.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// ---------- Reads ----------

// SelectSystems returns every system ordered by insertion.
func (s *SQLStore) SelectSystems(ctx context.Context) ([]graph.SystemRecord, error) {
	var rows []systemRow
	if err := s.selectAll(ctx, Systems, &rows, ColID, ColName, ColCategory); err != nil {
		return nil, err
	}
	out := make([]graph.SystemRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.record())
	}
	return out, nil
}

// SelectInterfaces returns every interface ordered by insertion.
func (s *SQLStore) SelectInterfaces(ctx context.Context) ([]graph.InterfaceEdge, error) {
	var rows []interfaceRow
	err := s.selectAll(ctx, Interfaces, &rows,
		ColID, ColSystemAID, ColSystemBID, ColConnectionType, ColDirectional)
	if err != nil {
		return nil, err
	}
	out := make([]graph.InterfaceEdge, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.record())
	}
	return out, nil
}

// SelectHierarchy returns every hierarchy row ordered by insertion.
func (s *SQLStore) SelectHierarchy(ctx context.Context) ([]graph.HierarchyEdge, error) {
	var rows []hierarchyRow
	if err := s.selectAll(ctx, Hierarchy, &rows, ColParentID, ColChildID); err != nil {
		return nil, err
	}
	out := make([]graph.HierarchyEdge, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.record())
	}
	return out, nil
}

func (s *SQLStore) selectAll(ctx context.Context, c Collection, dest any, cols ...string) error {
	sb := s.flavor.NewSelectBuilder()
	sb.Select(cols...).From(string(c))
	sb.OrderBy("seq").Asc()
	query, args := sb.Build()

	if err := s.db.SelectContext(ctx, dest, query, args...); err != nil {
		s.logger.Error("select failed", zap.String("collection", string(c)), zap.Error(err))
		return fmt.Errorf("sql: select %s: %w", c, err)
	}
	return nil
}

// ---------- Writes ----------

// InsertSystem inserts a system, assigning an id when missing.
func (s *SQLStore) InsertSystem(ctx context.Context, rec graph.SystemRecord) (graph.SystemRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	ib := systemStruct.For(s.flavor).InsertInto(string(Systems), fromSystem(rec))
	if err := s.insert(ctx, Systems, ib); err != nil {
		return graph.SystemRecord{}, err
	}
	return rec, nil
}

// InsertInterface inserts an interface, assigning an id when missing.
func (s *SQLStore) InsertInterface(ctx context.Context, rec graph.InterfaceEdge) (graph.InterfaceEdge, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	ib := interfaceStruct.For(s.flavor).InsertInto(string(Interfaces), fromInterface(rec))
	if err := s.insert(ctx, Interfaces, ib); err != nil {
		return graph.InterfaceEdge{}, err
	}
	return rec, nil
}

// InsertHierarchy inserts a parent/child row.
func (s *SQLStore) InsertHierarchy(ctx context.Context, rec graph.HierarchyEdge) (graph.HierarchyEdge, error) {
	ib := hierarchyStruct.For(s.flavor).InsertInto(string(Hierarchy), fromHierarchy(rec))
	if err := s.insert(ctx, Hierarchy, ib); err != nil {
		return graph.HierarchyEdge{}, err
	}
	return rec, nil
}

func (s *SQLStore) insert(ctx context.Context, c Collection, ib *sqlbuilder.InsertBuilder) error {
	query, args := ib.Build()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return s.writeError("insert", c, err)
	}
	return nil
}

// UpdateWhere sets patch on every row whose keyField equals keyValue.
func (s *SQLStore) UpdateWhere(ctx context.Context, c Collection, keyField string, keyValue any, patch Patch) (int64, error) {
	if err := CheckColumns(c, keyField, patch); err != nil {
		return 0, err
	}
	if len(patch) == 0 {
		return 0, nil
	}

	fields := make([]string, 0, len(patch))
	for f := range patch {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	ub := s.flavor.NewUpdateBuilder()
	ub.Update(string(c))
	assigns := make([]string, 0, len(fields))
	for _, f := range fields {
		assigns = append(assigns, ub.Assign(f, patch[f]))
	}
	ub.Set(assigns...)
	ub.Where(ub.Equal(keyField, keyValue))
	query, args := ub.Build()

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, s.writeError("update", c, err)
	}
	return res.RowsAffected()
}

// DeleteWhere removes every row whose keyField equals keyValue.
func (s *SQLStore) DeleteWhere(ctx context.Context, c Collection, keyField string, keyValue any) (int64, error) {
	if err := CheckColumns(c, keyField, nil); err != nil {
		return 0, err
	}
	db := s.flavor.NewDeleteBuilder()
	db.DeleteFrom(string(c))
	db.Where(db.Equal(keyField, keyValue))
	query, args := db.Build()

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, s.writeError("delete", c, err)
	}
	return res.RowsAffected()
}

// writeError logs a failed write and maps unique violations to ErrDuplicateKey.
func (s *SQLStore) writeError(op string, c Collection, err error) error {
	s.logger.Error("write failed",
		zap.String("op", op),
		zap.String("collection", string(c)),
		zap.Error(err))
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s: %v", ErrDuplicateKey, c, err)
	}
	return fmt.Errorf("sql: %s %s: %w", op, c, err)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	return false
}
