package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestRunMigrationsAppliesSchema(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error: %v", err)
	}
	defer conn.Close()

	dir := t.TempDir()
	schema := "CREATE TABLE IF NOT EXISTS users (id BIGSERIAL PRIMARY KEY);"
	if err := os.WriteFile(filepath.Join(dir, SchemaFile), []byte(schema), 0o600); err != nil {
		t.Fatalf("write schema: %v", err)
	}
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").WillReturnResult(sqlmock.NewResult(0, 0))

	if err := RunMigrations(context.Background(), conn, dir); err != nil {
		t.Fatalf("RunMigrations() error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}

func TestRunMigrationsMissingSchema(t *testing.T) {
	conn, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error: %v", err)
	}
	defer conn.Close()
	if err := RunMigrations(context.Background(), conn, t.TempDir()); err == nil {
		t.Fatal("expected an error for a missing schema file")
	}
}

func TestRepositorySchemaApplies(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error: %v", err)
	}
	defer conn.Close()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS users (.+) CREATE TABLE IF NOT EXISTS credentials (.+) CREATE TABLE IF NOT EXISTS audit_log").
		WillReturnResult(sqlmock.NewResult(0, 0))
	if err := RunMigrations(context.Background(), conn, filepath.Join("..", "..", "sql")); err != nil {
		t.Fatalf("RunMigrations() error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}
