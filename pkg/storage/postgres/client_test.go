package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

// go test -v --run ^TestPostgresInvalidDSN$
func TestPostgresInvalidDSN(t *testing.T) {
	invalidDSN := "host=invalid.invalid port=5432 user=fail password=fail dbname=fail sslmode=disable connect_timeout=1"

	_, err := NewClient(invalidDSN)
	if err == nil {
		t.Fatal("expected error for invalid DSN, got nil")
	}
}

// go test -v --run ^TestPostgresClientHealth$
func TestPostgresClientHealth(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer db.Close()

	// gorm.Open pings once
	mock.ExpectPing()
	client, err := NewClientFromConn(db)
	if err != nil {
		t.Fatalf("failed to create Postgres client: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	mock.ExpectPing()
	if !client.IsHealthy(ctx) {
		t.Fatal("expected healthy DB connection")
	}

	mock.ExpectPing().WillReturnError(errors.New("server closed the connection"))
	if client.IsHealthy(ctx) {
		t.Fatal("expected unhealthy DB connection")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

// go test -v --run TestCreateDatabase
func TestCreateDatabase(t *testing.T) {
	tests := []struct {
		name   string
		exists bool
	}{
		{"missing", false},
		{"present", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			defer db.Close()

			mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM pg_database WHERE datname = \$1\);`).
				WithArgs("stock_cache").
				WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(tt.exists))
			if !tt.exists {
				mock.ExpectExec(`CREATE DATABASE "stock_cache"`).WillReturnResult(sqlmock.NewResult(0, 0))
			}

			if err := createDatabase(db, "stock_cache"); err != nil {
				t.Fatalf("failed to create database: %v", err)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("there were unfulfilled expectations: %s", err)
			}
		})
	}
}
