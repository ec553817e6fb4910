package store

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"price-tracker/internal/models"
)

// Format define os arquivos gerados ao final de uma execução
type Format string

const (
	FormatTabular    Format = "tabular"
	FormatStructured Format = "structured"
	FormatBoth       Format = "both"
)

const exportTimeLayout = "20060102_150405"

var exportHeader = []string{"name", "url", "current_price", "target_price", "timestamp", "price_dropped"}

// ParseFormat aceita os nomes da configuração (csv e json são apelidos)
func ParseFormat(value string) (Format, error) {
	switch value {
	case "", "both":
		return FormatBoth, nil
	case "tabular", "csv":
		return FormatTabular, nil
	case "structured", "json":
		return FormatStructured, nil
	}
	return "", fmt.Errorf("formato de exportação desconhecido: %q", value)
}

func (f Format) tabular() bool    { return f == FormatTabular || f == FormatBoth }
func (f Format) structured() bool { return f == FormatStructured || f == FormatBoth }

// Run identifica o conjunto de observações de uma execução
type Run struct {
	ID           string
	StartedAt    time.Time
	Observations []models.Observation
}

// Record é uma linha exportada. CSV e JSON usam exatamente os mesmos valores.
type Record struct {
	Name         string      `json:"name"`
	URL          string      `json:"url"`
	CurrentPrice json.Number `json:"current_price"`
	TargetPrice  json.Number `json:"target_price"`
	Timestamp    string      `json:"timestamp"`
	PriceDropped bool        `json:"price_dropped"`
}

func (r Record) row() []string {
	return []string{
		r.Name,
		r.URL,
		string(r.CurrentPrice),
		string(r.TargetPrice),
		r.Timestamp,
		strconv.FormatBool(r.PriceDropped),
	}
}

// Records converte as observações bem-sucedidas da execução em linhas de exportação
func (s *Store) Records(run Run) []Record {
	records := make([]Record, 0, len(run.Observations))
	for _, obs := range run.Observations {
		if !obs.Success || !obs.Price.Valid {
			continue
		}

		product, ok := s.products[obs.ProductID]
		if !ok {
			continue
		}

		name := obs.Title
		if name == "" {
			name = product.DisplayName()
		}

		records = append(records, Record{
			Name:         name,
			URL:          product.URL,
			CurrentPrice: json.Number(obs.Price.Decimal.String()),
			TargetPrice:  json.Number(product.TargetPrice.String()),
			Timestamp:    obs.Timestamp.Format(time.RFC3339),
			PriceDropped: obs.Price.Decimal.LessThanOrEqual(product.TargetPrice),
		})
	}
	return records
}

// Export grava os arquivos da execução no diretório de dados e retorna os caminhos criados.
// Um arquivo existente nunca é sobrescrito.
func (s *Store) Export(format Format, run Run) ([]string, error) {
	records := s.Records(run)
	if len(records) == 0 {
		return nil, nil
	}

	if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("erro ao criar diretório de dados: %w", err)
	}

	base := filepath.Join(s.dataDir, exportBaseName(run))

	var paths []string
	if format.tabular() {
		path := base + ".csv"
		if err := writeCSV(path, records); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	if format.structured() {
		path := base + ".json"
		if err := writeJSON(path, records); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}

	return paths, nil
}

func exportBaseName(run Run) string {
	prefix := run.ID
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	name := "price_data_" + run.StartedAt.Format(exportTimeLayout)
	if prefix != "" {
		name += "_" + prefix
	}
	return name
}

func createExclusive(path string) (*os.File, error) {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("erro ao criar %s: %w", path, err)
	}
	return file, nil
}

func writeCSV(path string, records []Record) error {
	file, err := createExclusive(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(exportHeader); err != nil {
		return err
	}
	for _, r := range records {
		if err := w.Write(r.row()); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("erro ao gravar %s: %w", path, err)
	}
	return file.Close()
}

func writeJSON(path string, records []Record) error {
	file, err := createExclusive(path)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("erro ao gravar %s: %w", path, err)
	}
	return file.Close()
}
