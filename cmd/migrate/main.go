// Command migrate applies, inspects and authors the postgres schema migrations.
package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/nivaasi/backend/internal/infrastructure/config"
	"github.com/nivaasi/backend/internal/infrastructure/logger"
	"github.com/nivaasi/backend/internal/infrastructure/migration"
	"github.com/nivaasi/backend/migrations"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const defaultMigrationsPath = "migrations"

// cli carries the persistent flags and the logger built from them
type cli struct {
	path     string
	logLevel string
	log      *zap.Logger
}

func main() {
	_ = godotenv.Load()

	c := &cli{}
	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Nivaasi database migration tool",
		SilenceUsage:  true,
		SilenceErrors: true,
		Long: `Applies the SQL migrations embedded in the binary (or read from --path)
to the postgres database named by config.toml and NIVAASI_DATABASE_* variables.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync(c.log)
		},
	}
	root.PersistentFlags().StringVar(&c.path, "path", "", "read migrations from this directory instead of the embedded set")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(
		c.migratorCmd("up", "Apply all pending migrations", cobra.NoArgs,
			func(m *migration.Migrator, _ []string) error { return m.Up() }),
		c.migratorCmd("down", "Roll back all migrations", cobra.NoArgs,
			func(m *migration.Migrator, _ []string) error { return m.Down() }),
		c.migratorCmd("steps <n>", "Apply n migrations (negative rolls back)", cobra.ExactArgs(1),
			func(m *migration.Migrator, args []string) error {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid step count %q", args[0])
				}
				return m.Steps(n)
			}),
		c.migratorCmd("goto <version>", "Migrate to a specific version", cobra.ExactArgs(1),
			func(m *migration.Migrator, args []string) error {
				v, err := strconv.ParseUint(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid version %q", args[0])
				}
				return m.GoTo(uint(v))
			}),
		c.migratorCmd("version", "Show the current schema version", cobra.NoArgs, c.version),
		c.migratorCmd("force <version>", "Record a version as applied without running it", cobra.ExactArgs(1),
			func(m *migration.Migrator, args []string) error {
				v, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid version %q", args[0])
				}
				return m.Force(v)
			}),
		c.createCmd(),
		c.listCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func (c *cli) init() error {
	log, err := logger.New(&logger.Config{
		Level:      c.logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	c.log = log

	if c.path != "" {
		if c.path, err = filepath.Abs(c.path); err != nil {
			return fmt.Errorf("failed to resolve migrations path: %w", err)
		}
	}
	return nil
}

func (c *cli) source() string {
	if c.path == "" {
		return "embedded"
	}
	return c.path
}

// migratorCmd builds a subcommand that needs a live database connection
func (c *cli) migratorCmd(use, short string, args cobra.PositionalArgs, run func(*migration.Migrator, []string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, argv []string) error {
			c.log.Info("Migration command", zap.String("command", cmd.Name()), zap.String("source", c.source()))

			m, closeDB, err := c.openMigrator()
			if err != nil {
				return err
			}
			defer closeDB()
			defer m.Close()

			return run(m, argv)
		},
	}
}

func (c *cli) openMigrator() (*migration.Migrator, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.Database.Driver != "postgres" {
		return nil, nil, fmt.Errorf("migrations only run against postgres (driver is %q); sqlite schemas are created by the server", cfg.Database.Driver)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	var m *migration.Migrator
	if c.path == "" {
		m, err = migration.NewFromFS(db, migrations.FS, c.log)
	} else {
		m, err = migration.New(db, c.path, c.log)
	}
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return m, func() { _ = db.Close() }, nil
}

func (c *cli) version(m *migration.Migrator, _ []string) error {
	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	if version == 0 {
		c.log.Info("No migrations applied")
		return nil
	}
	c.log.Info("Current migration version", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

func (c *cli) createCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <name> [description]",
		Short: "Create an up/down migration file pair",
		Long:  "Creates the pair in --path, or ./migrations when --path is not set.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			description := ""
			if len(args) == 2 {
				description = args[1]
			}
			dir := c.path
			if dir == "" {
				dir = defaultMigrationsPath
			}
			mf, err := migration.CreateMigration(dir, args[0], description)
			if err != nil {
				return err
			}
			c.log.Info("Migration created",
				zap.String("version", mf.Version),
				zap.String("up_file", mf.UpPath),
				zap.String("down_file", mf.DownPath),
			)
			return nil
		},
	}
}

func (c *cli) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				names []string
				err   error
			)
			if c.path == "" {
				names, err = migration.ListEmbedded(migrations.FS)
			} else {
				names, err = migration.ListMigrations(c.path)
			}
			if err != nil {
				return err
			}
			if len(names) == 0 {
				c.log.Info("No migrations found", zap.String("source", c.source()))
				return nil
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), "  -", name)
			}
			return nil
		},
	}
}
