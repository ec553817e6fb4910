package database_test

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"price-tracker/internal/database"
	"price-tracker/internal/models"

	"github.com/shopspring/decimal"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "products.db"), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestObservationsRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	start := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

	observations := []models.Observation{
		models.NewSuccess("a", decimal.RequireFromString("600.00"), "Fone", start),
		models.NewFailure("a", models.FailureTimeout, nil, start.Add(time.Hour)),
		models.NewSuccess("a", decimal.RequireFromString("480.50"), "Fone", start.Add(2*time.Hour)),
		models.NewSuccess("b", decimal.RequireFromString("10"), "Cabo", start),
	}
	for _, obs := range observations {
		if err := db.InsertObservation(ctx, obs); err != nil {
			t.Fatal(err)
		}
	}

	latest, err := db.LatestSuccessful(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(latest) != 2 {
		t.Fatalf("Invalid result, got: %d, instead of: %d.", len(latest), 2)
	}
	for _, obs := range latest {
		if obs.ProductID == "a" && !obs.Price.Decimal.Equal(decimal.RequireFromString("480.50")) {
			t.Errorf("Invalid result, got: %s, instead of: %s.", obs.Price.Decimal, "480.50")
		}
	}

	history, err := db.History(ctx, "a", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 || history[0].Success || !history[1].Success {
		t.Fatalf("Invalid history order: %+v", history)
	}
	if history[0].ErrorKind != models.FailureTimeout {
		t.Errorf("Invalid result, got: %s, instead of: %s.", history[0].ErrorKind, models.FailureTimeout)
	}
}

func TestAlertStateUpsertAndDelete(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	at := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

	state := models.AlertState{ProductID: "a", LastAlertedPrice: decimal.NewNullDecimal(decimal.NewFromInt(480)), LastAlertedAt: at}
	if err := db.SaveAlertState(ctx, state); err != nil {
		t.Fatal(err)
	}

	state.LastAlertedPrice = decimal.NewNullDecimal(decimal.NewFromInt(450))
	if err := db.SaveAlertState(ctx, state); err != nil {
		t.Fatal(err)
	}

	states, err := db.AlertStates(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(states) != 1 || !states[0].LastAlertedPrice.Decimal.Equal(decimal.NewFromInt(450)) {
		t.Fatalf("Invalid result: %+v", states)
	}

	if err := db.DeleteAlertState(ctx, "a"); err != nil {
		t.Fatal(err)
	}

	states, err = db.AlertStates(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(states) != 0 {
		t.Errorf("Invalid result, got: %d, instead of: %d.", len(states), 0)
	}
}
