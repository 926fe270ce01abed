package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/huandu/go-sqlbuilder"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialectFlavor(t *testing.T) {
	f, err := DialectPostgres.flavor()
	require.NoError(t, err)
	assert.Equal(t, sqlbuilder.PostgreSQL, f)

	f, err = DialectMySQL.flavor()
	require.NoError(t, err)
	assert.Equal(t, sqlbuilder.MySQL, f)

	_, err = Dialect("sqlite").flavor()
	assert.Error(t, err)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pq.Error{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}))
	assert.True(t, isUniqueViolation(fmt.Errorf("wrapped: %w", &mysql.MySQLError{Number: 1062})))
	assert.False(t, isUniqueViolation(errors.New("connection reset")))
}

func TestSystemInsertStatement(t *testing.T) {
	ib := systemStruct.For(sqlbuilder.PostgreSQL).InsertInto(string(Systems), &systemRow{ID: "1", Name: "A", Category: "Backend"})
	query, args := ib.Build()
	assert.Equal(t, "INSERT INTO systems (id, name, category) VALUES ($1, $2, $3)", query)
	assert.Equal(t, []any{"1", "A", "Backend"}, args)
}

func TestHierarchyInsertStatementMySQL(t *testing.T) {
	ib := hierarchyStruct.For(sqlbuilder.MySQL).InsertInto(string(Hierarchy), &hierarchyRow{ParentID: "A", ChildID: "B"})
	query, args := ib.Build()
	assert.Equal(t, "INSERT INTO system_hierarchy (parent_id, child_id) VALUES (?, ?)", query)
	assert.Equal(t, []any{"A", "B"}, args)
}

func TestMigrationsEmbedded(t *testing.T) {
	for _, dialect := range []Dialect{DialectPostgres, DialectMySQL} {
		entries, err := migrationFS.ReadDir("migrations/" + string(dialect))
		require.NoError(t, err)
		assert.Len(t, entries, 6, dialect)
	}
}

// newTestSQLStore connects to the database named by env, skipping the test
// when it is unset. Every table is emptied before the store is returned.
func newTestSQLStore(t *testing.T, dialect Dialect, env string) *SQLStore {
	t.Helper()
	dsn := os.Getenv(env)
	if dsn == "" {
		t.Skipf("%s not set", env)
	}
	ctx := context.Background()

	s, err := OpenSQLStore(ctx, dialect, dsn, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.InitSchema(ctx))

	for _, c := range []Collection{Systems, Hierarchy, Interfaces} {
		query, args := s.flavor.NewDeleteBuilder().DeleteFrom(string(c)).Build()
		_, err := s.db.ExecContext(ctx, query, args...)
		require.NoError(t, err)
	}
	return s
}

func TestSQLStore_Postgres(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store {
		return newTestSQLStore(t, DialectPostgres, "SYSTRAV_TEST_POSTGRES_DSN")
	})
}

func TestSQLStore_MySQL(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store {
		return newTestSQLStore(t, DialectMySQL, "SYSTRAV_TEST_MYSQL_DSN")
	})
}
