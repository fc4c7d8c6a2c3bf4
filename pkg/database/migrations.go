package database

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// Migration is one NNN_name.sql schema step
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// Migrator applies schema migrations and tracks them in schema_migrations
type Migrator struct {
	db     *DB
	logger *zap.Logger
}

// NewMigrator creates a new migrator
func NewMigrator(db *DB, logger *zap.Logger) *Migrator {
	return &Migrator{db: db, logger: logger}
}

const migrationsTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version    INTEGER PRIMARY KEY,
    name       TEXT NOT NULL,
    applied_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
)`

// Run applies the schema migrations bundled with the binary
func (m *Migrator) Run() error {
	sub, err := fs.Sub(embeddedMigrations, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	return m.RunMigrationsFS(sub, "embedded")
}

// RunMigrations applies pending migrations from a directory on disk
func (m *Migrator) RunMigrations(dir string) error {
	return m.RunMigrationsFS(os.DirFS(dir), dir)
}

// RunMigrationsFS applies the migrations in fsys that are not yet recorded,
// each in its own transaction
func (m *Migrator) RunMigrationsFS(fsys fs.FS, source string) error {
	migrations, err := loadMigrations(fsys)
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	if _, err := m.db.Exec(migrationsTable); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	applied, err := m.applied()
	if err != nil {
		return err
	}

	pending := 0
	for _, mig := range migrations {
		if applied[mig.Version] {
			continue
		}
		m.logger.Info("Applying migration",
			zap.String("source", source),
			zap.Int("version", mig.Version),
			zap.String("name", mig.Name))
		if err := m.db.inTx(func(tx *sql.Tx) error { return apply(tx, mig) }); err != nil {
			return fmt.Errorf("failed to apply migration %d: %w", mig.Version, err)
		}
		pending++
	}

	m.logger.Info("Database schema up to date",
		zap.Int("applied", pending),
		zap.Int("available", len(migrations)))
	return nil
}

// SchemaVersion returns the highest applied migration, 0 for a fresh
// database
func (m *Migrator) SchemaVersion() (int, error) {
	if _, err := m.db.Exec(migrationsTable); err != nil {
		return 0, fmt.Errorf("failed to create migrations table: %w", err)
	}
	var version sql.NullInt64
	if err := m.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return int(version.Int64), nil
}

func (m *Migrator) applied() (map[int]bool, error) {
	rows, err := m.db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

func apply(tx *sql.Tx, mig Migration) error {
	if _, err := tx.Exec(mig.SQL); err != nil {
		return fmt.Errorf("failed to execute migration SQL: %w", err)
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version, name) VALUES (?, ?)", mig.Version, mig.Name); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}
	return nil
}

// loadMigrations reads NNN_name.sql files from fsys ordered by version.
// Other files are ignored; a missing prefix or a repeated version is an
// error.
func loadMigrations(fsys fs.FS) ([]Migration, error) {
	var migrations []Migration
	seen := make(map[int]string)

	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || path.Ext(p) != ".sql" {
			return err
		}

		filename := path.Base(p)
		var version int
		if _, err := fmt.Sscanf(filename, "%d", &version); err != nil {
			return fmt.Errorf("invalid migration filename format: %s", filename)
		}
		if prev, ok := seen[version]; ok {
			return fmt.Errorf("duplicate migration version %d: %s and %s", version, prev, filename)
		}
		seen[version] = filename

		content, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", p, err)
		}

		_, name, _ := strings.Cut(strings.TrimSuffix(filename, ".sql"), "_")
		migrations = append(migrations, Migration{Version: version, Name: name, SQL: string(content)})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}
