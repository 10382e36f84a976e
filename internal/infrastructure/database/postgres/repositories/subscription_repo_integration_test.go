//go:build integration

package repositories_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/turtacn/leadscore/internal/config"
	"github.com/turtacn/leadscore/internal/infrastructure/database/postgres"
	"github.com/turtacn/leadscore/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/leadscore/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/turtacn/leadscore/pkg/errors"
)

const migrationsPath = "file://../../../../../migrations"

// startPostgres launches a PostgreSQL 16 container with the schema applied.
func startPostgres(t *testing.T) *postgres.Connection {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "leadscore_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	cfg := config.DatabaseConfig{
		Host:     host,
		Port:     port.Int(),
		User:     "test",
		Password: "test",
		DBName:   "leadscore_test",
		SSLMode:  "disable",
	}
	require.NoError(t, postgres.RunMigrations(cfg.DSN(), migrationsPath))

	conn, err := postgres.NewConnection(cfg, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	version, dirty, err := postgres.MigrationStatus(cfg.DSN(), migrationsPath)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version, fmt.Sprintf("dirty=%v", dirty))
	return conn
}

func TestSubscriptionRepository_RoundTrip(t *testing.T) {
	conn := startPostgres(t)
	repo := repositories.NewSubscriptionRepository(conn, logging.NewNopLogger())
	ctx := context.Background()

	_, err := repo.GetAssistantID(ctx, "123-ABC-456")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeSubscriptionNotFound))

	require.NoError(t, repo.Upsert(ctx, "123-ABC-456", "asst_1"))
	require.NoError(t, repo.Upsert(ctx, "123-ABC-456", "asst_2"))

	id, err := repo.GetAssistantID(ctx, "123-ABC-456")
	require.NoError(t, err)
	assert.Equal(t, "asst_2", id)

	subs, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, subs, 1)
}

//Personal.AI order the ending
