package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"price-tracker/internal/models"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

// DB encapsula a conexão com o banco de dados
type DB struct {
	conn *sql.DB
}

// New cria uma nova instância do banco de dados
func New(dbPath string, logger *slog.Logger) (*DB, error) {
	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// SQLite aceita um único escritor
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}

	if err := db.init(); err != nil {
		conn.Close()
		return nil, err
	}

	logger.Info("banco de dados inicializado", slog.String("path", dbPath))
	return db, nil
}

// Close fecha a conexão com o banco de dados
func (db *DB) Close() error {
	return db.conn.Close()
}

// init cria as tabelas necessárias
func (db *DB) init() error {
	createTablesSQL := `
	CREATE TABLE IF NOT EXISTS observations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		product_id TEXT NOT NULL,
		price TEXT,
		title TEXT,
		observed_at DATETIME NOT NULL,
		success BOOLEAN NOT NULL,
		error_kind TEXT,
		error TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_observations_product ON observations (product_id, observed_at);
	CREATE TABLE IF NOT EXISTS alert_states (
		product_id TEXT PRIMARY KEY,
		last_alerted_price TEXT,
		last_alerted_at DATETIME
	);
	`

	_, err := db.conn.Exec(createTablesSQL)
	return err
}

// InsertObservation grava uma observação
func (db *DB) InsertObservation(ctx context.Context, obs models.Observation) error {
	var price sql.NullString
	if obs.Price.Valid {
		price = sql.NullString{String: obs.Price.Decimal.String(), Valid: true}
	}

	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO observations (product_id, price, title, observed_at, success, error_kind, error) VALUES (?, ?, ?, ?, ?, ?, ?)",
		obs.ProductID, price, obs.Title, obs.Timestamp.UTC(), obs.Success, string(obs.ErrorKind), obs.Error,
	)
	return err
}

// LatestSuccessful retorna a última observação bem-sucedida de cada produto
func (db *DB) LatestSuccessful(ctx context.Context) ([]models.Observation, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT o.product_id, o.price, o.title, o.observed_at, o.success, o.error_kind, o.error
		FROM observations o
		WHERE o.success = 1 AND o.id = (
			SELECT MAX(i.id) FROM observations i WHERE i.product_id = o.product_id AND i.success = 1
		)`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanObservations(rows)
}

// History retorna as observações mais recentes de um produto, da mais antiga para a mais nova
func (db *DB) History(ctx context.Context, productID string, limit int) ([]models.Observation, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT product_id, price, title, observed_at, success, error_kind, error FROM observations WHERE product_id = ? ORDER BY id DESC LIMIT ?",
		productID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	observations, err := scanObservations(rows)
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(observations)-1; i < j; i, j = i+1, j-1 {
		observations[i], observations[j] = observations[j], observations[i]
	}
	return observations, nil
}

// AlertStates retorna todos os estados de alerta gravados
func (db *DB) AlertStates(ctx context.Context) ([]models.AlertState, error) {
	rows, err := db.conn.QueryContext(ctx, "SELECT product_id, last_alerted_price, last_alerted_at FROM alert_states")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var states []models.AlertState
	for rows.Next() {
		var state models.AlertState
		var price sql.NullString
		var alertedAt sql.NullTime
		if err := rows.Scan(&state.ProductID, &price, &alertedAt); err != nil {
			return nil, err
		}
		if price.Valid {
			parsed, err := decimal.NewFromString(price.String)
			if err != nil {
				return nil, fmt.Errorf("preço inválido no alerta de %s: %w", state.ProductID, err)
			}
			state.LastAlertedPrice = decimal.NewNullDecimal(parsed)
		}
		if alertedAt.Valid {
			state.LastAlertedAt = alertedAt.Time
		}
		states = append(states, state)
	}
	return states, rows.Err()
}

// SaveAlertState insere ou atualiza o estado de alerta de um produto
func (db *DB) SaveAlertState(ctx context.Context, state models.AlertState) error {
	var price sql.NullString
	if state.LastAlertedPrice.Valid {
		price = sql.NullString{String: state.LastAlertedPrice.Decimal.String(), Valid: true}
	}

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO alert_states (product_id, last_alerted_price, last_alerted_at) VALUES (?, ?, ?)
		ON CONFLICT(product_id) DO UPDATE SET last_alerted_price = excluded.last_alerted_price, last_alerted_at = excluded.last_alerted_at`,
		state.ProductID, price, state.LastAlertedAt.UTC(),
	)
	return err
}

// DeleteAlertState remove o estado de alerta (produto volta a ficar armado)
func (db *DB) DeleteAlertState(ctx context.Context, productID string) error {
	_, err := db.conn.ExecContext(ctx, "DELETE FROM alert_states WHERE product_id = ?", productID)
	return err
}

func scanObservations(rows *sql.Rows) ([]models.Observation, error) {
	var observations []models.Observation
	for rows.Next() {
		var obs models.Observation
		var price, title, errorKind, errorText sql.NullString
		var observedAt time.Time
		if err := rows.Scan(&obs.ProductID, &price, &title, &observedAt, &obs.Success, &errorKind, &errorText); err != nil {
			return nil, err
		}
		if price.Valid && price.String != "" {
			parsed, err := decimal.NewFromString(price.String)
			if err != nil {
				return nil, fmt.Errorf("preço inválido na observação de %s: %w", obs.ProductID, err)
			}
			obs.Price = decimal.NewNullDecimal(parsed)
		}
		obs.Title = title.String
		obs.Timestamp = observedAt
		obs.ErrorKind = models.FailureKind(errorKind.String)
		obs.Error = errorText.String
		observations = append(observations, obs)
	}
	return observations, rows.Err()
}
