package database_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/youtube-comments-etl/internal/config"
	"github.com/youtube-comments-etl/internal/database"
)

func TestHealthCheck(t *testing.T) {
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatal(err)
	}
	defer sqlDB.Close()

	db := database.Wrap(sqlDB, zerolog.Nop())

	mock.ExpectPing()
	if err := db.HealthCheck(context.Background()); err != nil {
		t.Errorf("Expected healthy database, got %v", err)
	}

	mock.ExpectPing().WillReturnError(errors.New("connection reset"))
	if err := db.HealthCheck(context.Background()); err == nil {
		t.Error("Expected ping failure to surface")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := config.Default().Database
	cfg.Host = ""

	if _, err := database.New(&cfg, zerolog.Nop()); err == nil {
		t.Error("Expected error for missing host")
	}
}
