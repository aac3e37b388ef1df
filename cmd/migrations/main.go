package main

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/vncsmyrnk/planner/internal/adapters/repository/postgres"
)

// Usage: migrations <name>, e.g. "create_plannings.up", or "all" to apply
// every up migration.
func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if len(os.Args) < 2 {
		logger.Error("a migration name is required")
		os.Exit(2)
	}
	migrationName := os.Args[1]

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Error("error loading .env file", "error", err)
		os.Exit(1)
	}

	connStr := dbConnString()
	if connStr == "" {
		logger.Error("PLANNER_DB_URL or POSTGRES_HOST must be set")
		os.Exit(1)
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()
	if migrationName == "all" {
		err = postgres.Migrate(ctx, db)
	} else {
		err = runMigration(ctx, db, migrationName)
	}
	if err != nil {
		logger.Error("migration failed", "migration", migrationName, "error", err)
		db.Close()
		os.Exit(1)
	}

	logger.Info("migration executed successfully", "migration", migrationName)
}

func runMigration(ctx context.Context, db *sql.DB, migrationName string) error {
	content, err := postgres.MigrationContent(migrationName)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, string(content))
	return err
}

func dbConnString() string {
	if url := os.Getenv("PLANNER_DB_URL"); url != "" {
		return url
	}

	dbName, user, password, host, port := dbConfig()
	if host == "" {
		return ""
	}
	return "postgres://" + user + ":" + password + "@" + host + ":" + port + "/" + dbName + "?sslmode=disable"
}

func dbConfig() (dbName string, user string, password string, host string, port string) {
	dbName = os.Getenv("POSTGRES_DB")
	user = os.Getenv("POSTGRES_USER")
	password = os.Getenv("POSTGRES_PASSWORD")
	host = os.Getenv("POSTGRES_HOST")
	port = os.Getenv("POSTGRES_PORT")
	return
}
