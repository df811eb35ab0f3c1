// Package testutil provides test utilities and helpers.
package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"studysync/internal/db"
	"studysync/internal/models"
)

// TestDB connects to the integration database and migrates it, skipping the
// test when TEST_DATABASE_URL is unset. The returned cleanup empties the
// ledger and closes the pool.
func TestDB(t *testing.T) (*db.DB, func()) {
	t.Helper()

	connString := os.Getenv("TEST_DATABASE_URL")
	if connString == "" {
		t.Skip("Skipping integration test: TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	database, err := db.New(ctx, connString)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	if err := database.RunMigrations(connString); err != nil {
		database.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	database.Pool.Exec(ctx, "DELETE FROM sync_runs")

	cleanup := func() {
		database.Pool.Exec(ctx, "DELETE FROM sync_runs")
		database.Close()
	}

	return database, cleanup
}

// CreateTestRun records a finished sync run started at startedAt and returns it.
func CreateTestRun(t *testing.T, database *db.DB, startedAt time.Time, summary models.Summary) models.SyncRun {
	t.Helper()

	finished := startedAt.Add(time.Second)
	run := models.SyncRun{
		ID:         uuid.New(),
		Job:        models.JobSync,
		Trigger:    models.TriggerSchedule,
		StartedAt:  startedAt,
		FinishedAt: &finished,
		Summary:    summary,
	}
	if err := database.RecordRun(context.Background(), &run); err != nil {
		t.Fatalf("failed to create test run: %v", err)
	}
	return run
}
