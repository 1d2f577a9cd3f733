// Package integration runs the Nivaasi stack against a real PostgreSQL database.
// It uses testcontainers to start the database and applies the embedded SQL migrations.
package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/nivaasi/backend/internal/infrastructure/config"
	"github.com/nivaasi/backend/internal/infrastructure/migration"
	"github.com/nivaasi/backend/internal/infrastructure/persistence"
	"github.com/nivaasi/backend/migrations"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

const (
	testDBName   = "nivaasi_test"
	testUser     = "postgres"
	testPassword = "nivaasi123"
)

var (
	// Shared container for all tests in the package
	sharedContainer   *tcpostgres.PostgresContainer
	sharedContainerMu sync.Mutex
	sharedConfig      *config.DatabaseConfig
)

// TestDB is a migrated PostgreSQL database opened the way the server opens it
type TestDB struct {
	*persistence.Database
	Config    *config.DatabaseConfig
	Container *tcpostgres.PostgresContainer
	t         *testing.T
}

// NewTestDB starts a dedicated PostgreSQL container for one test
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()
	skipInShortMode(t)

	container, cfg := startContainer(t)
	migrate(t, cfg)

	tdb := &TestDB{Database: open(t, cfg), Config: cfg, Container: container, t: t}
	t.Cleanup(tdb.Close)
	return tdb
}

// NewSharedTestDB connects to a container shared by the whole package.
// Tables are truncated before the test runs.
func NewSharedTestDB(t *testing.T) *TestDB {
	t.Helper()
	skipInShortMode(t)

	container, cfg := func() (*tcpostgres.PostgresContainer, *config.DatabaseConfig) {
		sharedContainerMu.Lock()
		defer sharedContainerMu.Unlock()
		if sharedContainer == nil {
			c, cfg := startContainer(t)
			migrate(t, cfg)
			sharedContainer, sharedConfig = c, cfg
		}
		return sharedContainer, sharedConfig
	}()

	tdb := &TestDB{Database: open(t, cfg), Config: cfg, Container: container, t: t}
	tdb.CleanTables()
	t.Cleanup(func() { _ = tdb.Database.Close() })
	return tdb
}

// Close closes the connection and terminates a dedicated container
func (tdb *TestDB) Close() {
	_ = tdb.Database.Close()

	if tdb.Container != nil && tdb.Container != sharedContainer {
		if err := tdb.Container.Terminate(context.Background()); err != nil {
			tdb.t.Logf("Warning: Failed to terminate container: %v", err)
		}
	}
}

// CleanTables truncates every application table
func (tdb *TestDB) CleanTables() {
	tdb.t.Helper()

	var tables []string
	err := tdb.DB.Raw(`
		SELECT tablename FROM pg_tables
		WHERE schemaname = 'public'
		AND tablename != 'nivaasi_schema_migrations'
	`).Scan(&tables).Error
	require.NoError(tdb.t, err, "Failed to get table names")

	for _, table := range tables {
		if err := tdb.DB.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)).Error; err != nil {
			tdb.t.Logf("Warning: Failed to truncate table %s: %v", table, err)
		}
	}
}

// CleanupSharedContainer terminates the shared container. Call it from TestMain.
func CleanupSharedContainer() {
	sharedContainerMu.Lock()
	defer sharedContainerMu.Unlock()

	if sharedContainer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = sharedContainer.Terminate(ctx)
		sharedContainer = nil
		sharedConfig = nil
	}
}

func skipInShortMode(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
}

func startContainer(t *testing.T) (*tcpostgres.PostgresContainer, *config.DatabaseConfig) {
	t.Helper()

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase(testDBName),
		tcpostgres.WithUsername(testUser),
		tcpostgres.WithPassword(testPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")

	host, err := container.Host(ctx)
	require.NoError(t, err, "Failed to get container host")
	mapped, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err, "Failed to get mapped port")
	port, err := strconv.Atoi(mapped.Port())
	require.NoError(t, err)

	return container, &config.DatabaseConfig{
		Driver:          "postgres",
		Host:            host,
		Port:            port,
		User:            testUser,
		Password:        testPassword,
		DBName:          testDBName,
		SSLMode:         "disable",
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5,
		ConnMaxIdleTime: 1,
	}
}

// migrate applies the embedded migrations over a throwaway connection;
// closing the migrator closes the connection it was given.
func migrate(t *testing.T, cfg *config.DatabaseConfig) {
	t.Helper()

	sqlDB, err := sql.Open("postgres", cfg.DSN())
	require.NoError(t, err, "Failed to open migration connection")

	m, err := migration.NewFromFS(sqlDB, migrations.FS, zap.NewNop())
	require.NoError(t, err, "Failed to create migrator")
	defer m.Close()

	require.NoError(t, m.Up(), "Failed to run migrations")
}

func open(t *testing.T, cfg *config.DatabaseConfig) *persistence.Database {
	t.Helper()

	db, err := persistence.NewDatabase(cfg)
	require.NoError(t, err, "Failed to connect to database")
	return db
}
