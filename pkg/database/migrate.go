package database

import (
	"embed"
	"errors"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrations embed.FS

// RunMigrations brings the audit schema up to date.
func RunMigrations(logger *zap.Logger, dsn string) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, migrateURL(dsn))
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	version, dirty, _ := m.Version()
	logger.Info("database migrations applied", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

// migrateURL switches the DSN to the scheme of migrate's pgx v5 driver.
func migrateURL(dsn string) string {
	conn := ConnString(dsn)
	for _, scheme := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(conn, scheme) {
			return "pgx5://" + strings.TrimPrefix(conn, scheme)
		}
	}
	return conn
}
