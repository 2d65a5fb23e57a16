package postgres

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/pkg/logger"
)

// Migrate applies all pending up-migrations found at the root of fsys.
// Calling it on an up-to-date database is a no-op. The pool stays open.
func (c *Client) Migrate(ctx context.Context, fsys fs.FS) error {
	log := logger.WithComponent("migrate")

	source, err := iofs.New(fsys, ".")
	if err != nil {
		return fmt.Errorf("opening migration source: %w", err)
	}
	driver, err := c.migrationDriver(ctx)
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		driver.Close()
		return fmt.Errorf("creating migration instance: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil {
			log.Warn("failed to close migration source", "error", srcErr)
		}
		if dbErr != nil {
			log.Warn("failed to close migration connection", "error", dbErr)
		}
	}()

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		log.Info("no migrations to apply")
		return nil
	}
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	version, _, _ := m.Version()
	log.Info("migrations applied", "version", version)
	return nil
}

// migrationDriver binds migrate to one connection checked out of the pool.
// WithInstance would hand over the *sql.DB itself and close it with the
// driver; closing a connection-bound driver only returns the connection.
func (c *Client) migrationDriver(ctx context.Context) (*migratepg.Postgres, error) {
	conn, err := c.DB.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring migration connection: %w", err)
	}
	driver, err := migratepg.WithConnection(ctx, conn, &migratepg.Config{})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating migration driver: %w", err)
	}
	return driver, nil
}
