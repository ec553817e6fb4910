package alert_test

import (
	"testing"
	"time"

	"price-tracker/internal/alert"
	"price-tracker/internal/models"

	"github.com/shopspring/decimal"
)

func TestAlertDeduplicationSequence(t *testing.T) {
	product := models.Product{ID: "p1", TargetPrice: decimal.NewFromInt(500)}
	prices := []int64{600, 480, 480, 450, 600, 470}
	expected := []alert.Decision{alert.Ignore, alert.Fire, alert.Suppress, alert.Fire, alert.Reset, alert.Fire}

	var state *models.AlertState
	start := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)

	var fired []int
	for i, price := range prices {
		obs := models.NewSuccess(product.ID, decimal.NewFromInt(price), "", start.Add(time.Duration(i)*time.Hour))

		decision := alert.Evaluate(product, obs, state)
		if decision != expected[i] {
			t.Errorf("index %d (%d): invalid result, got: %s, instead of: %s.", i, price, decision, expected[i])
		}
		if decision == alert.Fire {
			fired = append(fired, i)
		}

		state = alert.Apply(decision, obs, state)
		if state != nil && state.LastAlertedPrice.Decimal.GreaterThan(product.TargetPrice) {
			t.Fatalf("index %d: last alerted price above target: %s", i, state.LastAlertedPrice.Decimal)
		}
	}

	if len(fired) != 3 || fired[0] != 1 || fired[1] != 3 || fired[2] != 5 {
		t.Errorf("Invalid result, got: %v, instead of: %v.", fired, []int{1, 3, 5})
	}
}

func TestFailedObservationNeverChangesState(t *testing.T) {
	product := models.Product{ID: "p1", TargetPrice: decimal.NewFromInt(500)}
	state := &models.AlertState{ProductID: "p1", LastAlertedPrice: decimal.NewNullDecimal(decimal.NewFromInt(480))}

	obs := models.NewFailure("p1", models.FailureElementNotFound, nil, time.Now())

	decision := alert.Evaluate(product, obs, state)
	if decision != alert.Ignore {
		t.Errorf("Invalid result, got: %s, instead of: %s.", decision, alert.Ignore)
	}
	if next := alert.Apply(decision, obs, state); next != state {
		t.Errorf("state changed on failed observation")
	}
}

func TestPriceEqualToTargetFires(t *testing.T) {
	product := models.Product{ID: "p1", TargetPrice: decimal.RequireFromString("500.00")}
	obs := models.NewSuccess("p1", decimal.NewFromInt(500), "", time.Now())

	if decision := alert.Evaluate(product, obs, nil); decision != alert.Fire {
		t.Errorf("Invalid result, got: %s, instead of: %s.", decision, alert.Fire)
	}
}
