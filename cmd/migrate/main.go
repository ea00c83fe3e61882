// Command migrate manages the postgres schema of the shop backend.
package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	_ "github.com/lib/pq"
	"github.com/shopcore/backend/internal/infrastructure/config"
	"github.com/shopcore/backend/internal/infrastructure/logger"
	"github.com/shopcore/backend/internal/infrastructure/migration"
	"github.com/shopcore/backend/migrations"
	"go.uber.org/zap"
)

const defaultMigrationsDir = "migrations"

var errUsage = errors.New("bad arguments")

type env struct {
	log  *zap.Logger
	dir  string // empty: migrations embedded in the binary
	args []string
}

type command struct {
	usage string
	help  string
	// offline commands only touch migration files
	offline bool
	run     func(e env, m *migration.Migrator) error
}

var commands = map[string]command{
	"up":   {usage: "up", help: "Apply all pending migrations", run: func(_ env, m *migration.Migrator) error { return m.Up() }},
	"down": {usage: "down", help: "Roll back all migrations", run: func(_ env, m *migration.Migrator) error { return m.Down() }},
	"step": {usage: "step <n>", help: "Apply n migrations (negative rolls back)", run: func(e env, m *migration.Migrator) error {
		n, err := intArg(e.args)
		if err != nil {
			return err
		}
		return m.Steps(n)
	}},
	"goto": {usage: "goto <version>", help: "Migrate up or down to version", run: func(e env, m *migration.Migrator) error {
		v, err := intArg(e.args)
		if err != nil || v < 0 {
			return errUsage
		}
		return m.GoTo(uint(v))
	}},
	"force": {usage: "force <version>", help: "Set the version without running anything (clears dirty)", run: func(e env, m *migration.Migrator) error {
		v, err := intArg(e.args)
		if err != nil {
			return err
		}
		return m.Force(v)
	}},
	"version": {usage: "version", help: "Show the current version", run: func(_ env, m *migration.Migrator) error {
		v, dirty, err := m.Version()
		if err == nil {
			fmt.Printf("version=%d dirty=%t\n", v, dirty)
		}
		return err
	}},
	"create": {usage: "create <name> [description]", help: "Write a new up/down file pair", offline: true, run: create},
	"list":   {usage: "list", help: "List migration files", offline: true, run: list},
}

func main() {
	dir := flag.String("path", "", "Read migrations from this directory instead of the ones built into the binary")
	level := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Usage = usage
	flag.Parse()

	cmd, ok := commands[flag.Arg(0)]
	if !ok {
		usage()
		os.Exit(2)
	}

	log, err := logger.New(&logger.Config{Level: *level, Format: "console", Output: "stdout"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	e := env{log: log, dir: *dir, args: flag.Args()[1:]}

	var m *migration.Migrator
	if !cmd.offline {
		db, err := openDatabase()
		if err != nil {
			log.Fatal("Cannot reach database", zap.Error(err))
		}
		defer db.Close()

		if e.dir != "" {
			m, err = migration.New(db, absolute(e.dir), log)
		} else {
			m, err = migration.NewEmbedded(db, migrations.FS, log)
		}
		if err != nil {
			log.Fatal("Failed to create migrator", zap.Error(err))
		}
		defer m.Close()
	}

	if err := cmd.run(e, m); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, "usage: migrate", cmd.usage)
			os.Exit(2)
		}
		log.Fatal("Migration command failed", zap.String("command", flag.Arg(0)), zap.Error(err))
	}
}

func openDatabase() (*sql.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.Database.Driver != config.DriverPostgres {
		return nil, fmt.Errorf("driver %q: SQL migrations target postgres, sqlite auto-migrates at startup", cfg.Database.Driver)
	}
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func create(e env, _ *migration.Migrator) error {
	if len(e.args) == 0 {
		return errUsage
	}
	description := ""
	if len(e.args) > 1 {
		description = e.args[1]
	}
	mf, err := migration.CreateMigration(absolute(dirOrDefault(e.dir)), e.args[0], description)
	if err != nil {
		return err
	}
	e.log.Info("Migration created",
		zap.String("version", mf.Version),
		zap.String("up_file", mf.UpPath),
		zap.String("down_file", mf.DownPath),
	)
	return nil
}

func list(e env, _ *migration.Migrator) error {
	names, err := migration.ListMigrations(absolute(dirOrDefault(e.dir)))
	if err != nil {
		return err
	}
	if len(names) == 0 {
		e.log.Info("No migrations found")
	}
	for _, n := range names {
		fmt.Println("  -", n)
	}
	return nil
}

func intArg(args []string) (int, error) {
	if len(args) == 0 {
		return 0, errUsage
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, errUsage
	}
	return n, nil
}

func dirOrDefault(dir string) string {
	if dir == "" {
		return defaultMigrationsDir
	}
	return dir
}

func absolute(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

func usage() {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	out := flag.CommandLine.Output()
	fmt.Fprintln(out, "Usage: migrate [flags] <command> [arguments]\n\nCommands:")
	for _, name := range names {
		fmt.Fprintf(out, "  %-28s %s\n", commands[name].usage, commands[name].help)
	}
	fmt.Fprintln(out, "\nFlags:")
	flag.PrintDefaults()
	fmt.Fprintln(out, "\nThe database is configured like the server (SHOP_DATABASE_HOST, SHOP_DATABASE_PORT, ...).")
}
