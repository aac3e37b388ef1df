package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strings"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate applies every up migration in name order. The migrations are
// written to be re-runnable.
func Migrate(ctx context.Context, db *sql.DB) error {
	names, err := fs.Glob(migrations, "migrations/*.up.sql")
	if err != nil {
		return fmt.Errorf("failed to list migrations: %w", err)
	}
	sort.Strings(names)

	for _, name := range names {
		content, err := migrations.ReadFile(name)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		if _, err := db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", name, err)
		}
	}

	return nil
}

// MigrationContent returns the single migration file whose name ends with
// migrationName, e.g. "create_plannings.down".
func MigrationContent(migrationName string) ([]byte, error) {
	regex, err := regexp.Compile(fmt.Sprintf(`^.*%s\.sql$`, regexp.QuoteMeta(migrationName)))
	if err != nil {
		return nil, fmt.Errorf("invalid migration name: %w", err)
	}

	entries, err := migrations.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}

	var matches []string
	for _, entry := range entries {
		if entry.IsDir() || !regex.MatchString(entry.Name()) {
			continue
		}
		matches = append(matches, entry.Name())
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("migration file not found: %s", migrationName)
	case 1:
		return migrations.ReadFile("migrations/" + matches[0])
	}
	return nil, fmt.Errorf("migration name %s is ambiguous: %s", migrationName, strings.Join(matches, ", "))
}
