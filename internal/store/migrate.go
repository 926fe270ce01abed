package store

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations
var migrationFS embed.FS

// migrationLogger routes golang-migrate output through zap.
type migrationLogger struct {
	logger *zap.Logger
}

func (l migrationLogger) Printf(format string, v ...any) {
	l.logger.Sugar().Infof(format, v...)
}

func (l migrationLogger) Verbose() bool {
	return l.logger.Core().Enabled(zap.DebugLevel)
}

// Migrate applies the embedded migrations for dialect to db. An already
// up-to-date schema is not an error.
func Migrate(db *sql.DB, dialect Dialect, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		drv database.Driver
		err error
	)
	switch dialect {
	case DialectPostgres:
		drv, err = postgres.WithInstance(db, &postgres.Config{})
	case DialectMySQL:
		drv, err = migratemysql.WithInstance(db, &migratemysql.Config{})
	default:
		return fmt.Errorf("migrate: unsupported dialect %q", dialect)
	}
	if err != nil {
		return fmt.Errorf("migrate: driver: %w", err)
	}

	src, err := iofs.New(migrationFS, "migrations/"+string(dialect))
	if err != nil {
		return fmt.Errorf("migrate: source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, string(dialect), drv)
	if err != nil {
		return fmt.Errorf("migrate: init: %w", err)
	}
	m.Log = migrationLogger{logger: logger}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("no new migrations to apply")
			return nil
		}
		version, dirty, _ := m.Version()
		logger.Error("migration failed",
			zap.Uint("version", version),
			zap.Bool("dirty", dirty),
			zap.Error(err))
		return fmt.Errorf("migrate: up: %w", err)
	}
	logger.Info("applied migrations")
	return nil
}
