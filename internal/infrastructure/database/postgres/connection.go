package postgres

import (
	"context"
	"database/sql"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/turtacn/leadscore/internal/config"
	"github.com/turtacn/leadscore/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/leadscore/pkg/errors"
)

// driverName is the database/sql name registered by pgx's stdlib package.
const driverName = "pgx"

// sqlOpen is a variable to allow mocking in tests.
var sqlOpen = func(driverName, dataSourceName string) (*sql.DB, error) {
	return sql.Open(driverName, dataSourceName)
}

// Connection manages the PostgreSQL connection pool backing the
// subscription directory.
type Connection struct {
	db     *sql.DB
	logger logging.Logger
	once   sync.Once
}

// NewConnection opens the pool and verifies it with a ping.
func NewConnection(cfg config.DatabaseConfig, log logging.Logger) (*Connection, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}

	db, err := sqlOpen(driverName, cfg.DSN())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to open database connection")
	}

	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
	} else {
		db.SetMaxOpenConns(10)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	} else {
		db.SetMaxIdleConns(5)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	} else {
		db.SetConnMaxLifetime(30 * time.Minute)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	} else {
		db.SetConnMaxIdleTime(5 * time.Minute)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "database connection failed")
	}

	log.Info("Connected to PostgreSQL database",
		logging.String("host", cfg.Host),
		logging.Int("port", cfg.Port),
		logging.String("database", cfg.DBName),
	)

	return &Connection{db: db, logger: log}, nil
}

// NewConnectionWithDB creates a Connection with an existing sql.DB (for testing).
func NewConnectionWithDB(db *sql.DB, log logging.Logger) *Connection {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Connection{db: db, logger: log}
}

// DB returns the underlying sql.DB instance.
func (c *Connection) DB() *sql.DB {
	return c.db
}

// HealthCheck pings the database and warns when the pool runs hot.
func (c *Connection) HealthCheck(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "database health check failed")
	}

	stats := c.Stats()
	if stats.OpenConnections > 0 {
		usage := float64(stats.InUse) / float64(stats.OpenConnections)
		if usage > 0.8 {
			c.logger.Warn("High database connection pool usage",
				logging.Int("in_use", stats.InUse),
				logging.Int("open", stats.OpenConnections),
				logging.Float64("usage", usage),
			)
		}
	}
	return nil
}

// Stats returns database statistics.
func (c *Connection) Stats() sql.DBStats {
	return c.db.Stats()
}

// Close closes the pool once.
func (c *Connection) Close() error {
	var err error
	c.once.Do(func() {
		err = c.db.Close()
		if err == nil {
			c.logger.Info("Closed PostgreSQL database connection")
		} else {
			c.logger.Error("Failed to close PostgreSQL database connection", logging.Err(err))
		}
	})
	return err
}

//Personal.AI order the ending
