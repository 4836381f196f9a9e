// Package migration applies the embedded schema migrations in version
// order, tracking progress in a schema_migrations table.
package migration

import (
	"database/sql"
	"embed"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

type Migration struct {
	Version int
	Name    string
	UpSQL   string
	DownSQL string
}

type Runner struct {
	db *sql.DB
}

func NewRunner(db *sql.DB) *Runner {
	return &Runner{db: db}
}

// Run applies every migration newer than the current schema version.
func (r *Runner) Run() error {
	if err := r.ensureSchemaTable(); err != nil {
		return fmt.Errorf("failed to create schema table: %w", err)
	}

	migrations, err := r.loadMigrations()
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	currentVersion, dirty, err := r.getCurrentVersion()
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	if dirty {
		return fmt.Errorf("database is in dirty state, manual intervention required")
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		if err := r.applyMigration(migration); err != nil {
			return fmt.Errorf("failed to apply migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

func (r *Runner) ensureSchemaTable() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			dirty BOOLEAN NOT NULL DEFAULT FALSE,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

func (r *Runner) loadMigrations() ([]Migration, error) {
	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return nil, err
	}

	migrationMap := make(map[int]*Migration)

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, migrationName, direction, err := parseMigrationFilename(entry.Name())
		if err != nil {
			continue
		}

		content, err := migrationFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return nil, err
		}

		if migrationMap[version] == nil {
			migrationMap[version] = &Migration{
				Version: version,
				Name:    migrationName,
			}
		}

		switch direction {
		case "up":
			migrationMap[version].UpSQL = string(content)
		case "down":
			migrationMap[version].DownSQL = string(content)
		}
	}

	var migrations []Migration
	for _, migration := range migrationMap {
		if migration.UpSQL != "" {
			migrations = append(migrations, *migration)
		}
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	return migrations, nil
}

// parseMigrationFilename splits "001_name.up.sql" into its parts.
func parseMigrationFilename(filename string) (version int, name, direction string, err error) {
	base, ok := strings.CutSuffix(filename, ".sql")
	if !ok {
		return 0, "", "", fmt.Errorf("not a sql file")
	}

	stem, direction, ok := strings.Cut(base, ".")
	if !ok || (direction != "up" && direction != "down") {
		return 0, "", "", fmt.Errorf("invalid migration filename format")
	}

	versionPart, name, ok := strings.Cut(stem, "_")
	if !ok {
		return 0, "", "", fmt.Errorf("invalid migration name format")
	}

	version, err = strconv.Atoi(versionPart)
	if err != nil {
		return 0, "", "", fmt.Errorf("invalid version number: %w", err)
	}

	return version, name, direction, nil
}

func (r *Runner) getCurrentVersion() (version int, dirty bool, err error) {
	row := r.db.QueryRow(`
		SELECT version, dirty
		FROM schema_migrations
		ORDER BY version DESC
		LIMIT 1
	`)

	err = row.Scan(&version, &dirty)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	return version, dirty, nil
}

func (r *Runner) applyMigration(migration Migration) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO schema_migrations (version, dirty)
		VALUES (?, TRUE)
	`, migration.Version)
	if err != nil {
		return err
	}

	_, err = tx.Exec(migration.UpSQL)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
		UPDATE schema_migrations
		SET dirty = FALSE
		WHERE version = ?
	`, migration.Version)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// Rollback reverts the newest applied migration using its down script.
func (r *Runner) Rollback() error {
	currentVersion, dirty, err := r.getCurrentVersion()
	if err != nil {
		return err
	}
	if dirty {
		return fmt.Errorf("database is in dirty state, manual intervention required")
	}
	if currentVersion == 0 {
		return nil
	}

	migrations, err := r.loadMigrations()
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if migration.Version != currentVersion {
			continue
		}
		if migration.DownSQL == "" {
			return fmt.Errorf("migration %d has no down script", currentVersion)
		}

		tx, err := r.db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if _, err := tx.Exec(migration.DownSQL); err != nil {
			return err
		}
		if _, err := tx.Exec(`DELETE FROM schema_migrations WHERE version = ?`, currentVersion); err != nil {
			return err
		}
		return tx.Commit()
	}

	return fmt.Errorf("migration %d not found", currentVersion)
}

// Force marks a version clean after manual repair.
func (r *Runner) Force(version int) error {
	_, err := r.db.Exec(`
		UPDATE schema_migrations
		SET dirty = FALSE
		WHERE version = ?
	`, version)
	return err
}
