package store_test

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"price-tracker/internal/database"
	"price-tracker/internal/models"
	"price-tracker/internal/store"

	"github.com/shopspring/decimal"
)

var catalog = []models.Product{
	{ID: "a", URL: "https://shop.example/a", Name: "Fone", TargetPrice: decimal.NewFromInt(500)},
	{ID: "b", URL: "https://shop.example/b", Name: "Teclado", TargetPrice: decimal.RequireFromString("199.90")},
	{ID: "c", URL: "https://shop.example/c", Name: "Monitor", TargetPrice: decimal.NewFromInt(900)},
}

var baseTime = time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)

type failingBackend struct{}

var errDisk = errors.New("disk full")

func (failingBackend) InsertObservation(context.Context, models.Observation) error { return errDisk }
func (failingBackend) LatestSuccessful(context.Context) ([]models.Observation, error) {
	return nil, errDisk
}
func (failingBackend) History(context.Context, string, int) ([]models.Observation, error) {
	return nil, errDisk
}
func (failingBackend) AlertStates(context.Context) ([]models.AlertState, error) { return nil, errDisk }
func (failingBackend) SaveAlertState(context.Context, models.AlertState) error  { return errDisk }
func (failingBackend) DeleteAlertState(context.Context, string) error           { return errDisk }

func TestRecordKeepsLastSuccessful(t *testing.T) {
	s := store.New(catalog, nil, t.TempDir())
	ctx := context.Background()

	if err := s.Record(ctx, models.NewSuccess("a", decimal.NewFromInt(520), "Fone", baseTime)); err != nil {
		t.Fatal(err)
	}
	if err := s.Record(ctx, models.NewFailure("a", models.FailureTimeout, errors.New("timeout"), baseTime.Add(time.Hour))); err != nil {
		t.Fatal(err)
	}

	last, ok := s.LastSuccessful("a")
	if !ok {
		t.Fatal("expected a successful observation")
	}
	if !last.Price.Decimal.Equal(decimal.NewFromInt(520)) {
		t.Errorf("Invalid result, got: %s, instead of: %s.", last.Price.Decimal, "520")
	}

	if _, ok := s.LastSuccessful("b"); ok {
		t.Errorf("product without observations reported a last price")
	}

	if got := len(s.Observations()); got != 2 {
		t.Errorf("Invalid result, got: %d, instead of: %d.", got, 2)
	}
}

func TestRecordRejectsOutOfOrder(t *testing.T) {
	s := store.New(catalog, nil, t.TempDir())
	ctx := context.Background()

	if err := s.Record(ctx, models.NewSuccess("a", decimal.NewFromInt(520), "", baseTime)); err != nil {
		t.Fatal(err)
	}

	err := s.Record(ctx, models.NewSuccess("a", decimal.NewFromInt(510), "", baseTime.Add(-time.Minute)))
	if !errors.Is(err, store.ErrOutOfOrder) {
		t.Fatalf("Invalid result, got: %v, instead of: %v.", err, store.ErrOutOfOrder)
	}

	// outro produto tem sua própria ordem
	if err := s.Record(ctx, models.NewSuccess("b", decimal.NewFromInt(150), "", baseTime.Add(-time.Hour))); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestPersistenceErrorKeepsObservationInMemory(t *testing.T) {
	s := store.New(catalog, failingBackend{}, t.TempDir())

	err := s.Record(context.Background(), models.NewSuccess("a", decimal.NewFromInt(480), "", baseTime))

	var persistErr *store.PersistenceError
	if !errors.As(err, &persistErr) {
		t.Fatalf("expected PersistenceError, got: %v", err)
	}
	if !errors.Is(err, errDisk) {
		t.Errorf("PersistenceError does not wrap the backend error")
	}

	if _, ok := s.LastSuccessful("a"); !ok {
		t.Errorf("observation lost after persistence failure")
	}
}

func TestAlertStateSurvivesReload(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dbPath := filepath.Join(t.TempDir(), "products.db")
	ctx := context.Background()

	db, err := database.New(dbPath, logger)
	if err != nil {
		t.Fatal(err)
	}

	s := store.New(catalog, db, t.TempDir())
	if err := s.Record(ctx, models.NewSuccess("a", decimal.NewFromInt(480), "Fone", baseTime)); err != nil {
		t.Fatal(err)
	}
	state := models.AlertState{ProductID: "a", LastAlertedPrice: decimal.NewNullDecimal(decimal.NewFromInt(480)), LastAlertedAt: baseTime}
	if err := s.SetAlertState(ctx, state); err != nil {
		t.Fatal(err)
	}
	db.Close()

	db, err = database.New(dbPath, logger)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	reloaded := store.New(catalog, db, t.TempDir())
	if err := reloaded.Load(ctx); err != nil {
		t.Fatal(err)
	}

	got := reloaded.AlertState("a")
	if got == nil || !got.LastAlertedPrice.Decimal.Equal(decimal.NewFromInt(480)) {
		t.Fatalf("Invalid result, got: %+v, instead of: %s.", got, "480")
	}
	if last, ok := reloaded.LastSuccessful("a"); !ok || last.Title != "Fone" {
		t.Errorf("last successful observation not restored: %+v", last)
	}

	if err := reloaded.ClearAlertState(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if reloaded.AlertState("a") != nil {
		t.Errorf("alert state not cleared")
	}
}

func TestExportCompleteness(t *testing.T) {
	dir := t.TempDir()
	s := store.New(catalog, nil, dir)

	run := store.Run{
		ID:        "3f2a9c1e-0000-4000-8000-000000000000",
		StartedAt: baseTime,
		Observations: []models.Observation{
			models.NewSuccess("a", decimal.NewFromInt(480), "Fone Bluetooth", baseTime),
			models.NewFailure("b", models.FailureElementNotFound, errors.New("not found"), baseTime.Add(time.Second)),
			models.NewSuccess("c", decimal.RequireFromString("949.99"), "", baseTime.Add(2*time.Second)),
		},
	}

	paths, err := s.Export(store.FormatBoth, run)
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 2 {
		t.Fatalf("Invalid result, got: %d files, instead of: %d.", len(paths), 2)
	}

	csvPath, jsonPath := paths[0], paths[1]
	if filepath.Base(csvPath) != "price_data_20261018_093000_3f2a9c1e.csv" {
		t.Errorf("unexpected file name: %s", filepath.Base(csvPath))
	}
	if !strings.HasSuffix(jsonPath, ".json") {
		t.Errorf("unexpected file name: %s", jsonPath)
	}

	csvFile, err := os.Open(csvPath)
	if err != nil {
		t.Fatal(err)
	}
	defer csvFile.Close()
	rows, err := csv.NewReader(csvFile).ReadAll()
	if err != nil {
		t.Fatal(err)
	}

	jsonData, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatal(err)
	}
	var records []map[string]any
	dec := json.NewDecoder(strings.NewReader(string(jsonData)))
	dec.UseNumber()
	if err := dec.Decode(&records); err != nil {
		t.Fatal(err)
	}

	// cabeçalho + uma linha por observação bem-sucedida
	if len(rows) != 3 || len(records) != 2 {
		t.Fatalf("Invalid result, got: %d csv rows and %d json records, instead of: 3 and 2.", len(rows), len(records))
	}

	header := rows[0]
	for i, record := range records {
		if len(record) != len(header) {
			t.Errorf("record %d has %d fields, header has %d", i, len(record), len(header))
		}
		for col, field := range header {
			value, ok := record[field]
			if !ok {
				t.Errorf("record %d missing field %s", i, field)
				continue
			}
			if got := toString(value); got != rows[i+1][col] {
				t.Errorf("field %s differs: csv %q, json %q", field, rows[i+1][col], got)
			}
		}
	}

	if rows[1][0] != "Fone Bluetooth" || rows[1][5] != "true" {
		t.Errorf("unexpected first row: %v", rows[1])
	}
	if rows[2][0] != "Monitor" || rows[2][5] != "false" {
		t.Errorf("unexpected second row: %v", rows[2])
	}
}

func TestExportNeverOverwrites(t *testing.T) {
	s := store.New(catalog, nil, t.TempDir())
	run := store.Run{
		ID:           "abcdef12",
		StartedAt:    baseTime,
		Observations: []models.Observation{models.NewSuccess("a", decimal.NewFromInt(480), "", baseTime)},
	}

	if _, err := s.Export(store.FormatTabular, run); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Export(store.FormatTabular, run); err == nil {
		t.Errorf("second export with the same name should fail")
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input    string
		expected store.Format
	}{
		{"", store.FormatBoth},
		{"both", store.FormatBoth},
		{"csv", store.FormatTabular},
		{"tabular", store.FormatTabular},
		{"json", store.FormatStructured},
		{"structured", store.FormatStructured},
	}

	for _, test := range tests {
		got, err := store.ParseFormat(test.input)
		if err != nil || got != test.expected {
			t.Errorf("Invalid result for %q, got: %s (%v), instead of: %s.", test.input, got, err, test.expected)
		}
	}

	if _, err := store.ParseFormat("xml"); err == nil {
		t.Errorf("expected error for unknown format")
	}
}

func toString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		if v {
			return "true"
		}
		return "false"
	}
	return ""
}
