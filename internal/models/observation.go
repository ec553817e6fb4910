package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// FailureKind identifica o motivo de uma observação com falha
type FailureKind string

const (
	FailureTimeout          FailureKind = "timeout"
	FailureConnection       FailureKind = "connection_error"
	FailureHTTPStatus       FailureKind = "http_status"
	FailureElementNotFound  FailureKind = "element_not_found"
	FailureNoNumericContent FailureKind = "no_numeric_content"
	FailureInvalidValue     FailureKind = "invalid_value"
	FailureInternal         FailureKind = "internal"
)

// Observation é o resultado de uma tentativa de leitura de preço.
// Em caso de falha Price fica inválido e ErrorKind é preenchido.
type Observation struct {
	ProductID string
	Price     decimal.NullDecimal
	Title     string
	Timestamp time.Time
	Success   bool
	ErrorKind FailureKind
	Error     string
}

// NewSuccess cria uma observação bem-sucedida
func NewSuccess(productID string, price decimal.Decimal, title string, at time.Time) Observation {
	return Observation{
		ProductID: productID,
		Price:     decimal.NewNullDecimal(price),
		Title:     title,
		Timestamp: at,
		Success:   true,
	}
}

// NewFailure cria uma observação com falha
func NewFailure(productID string, kind FailureKind, err error, at time.Time) Observation {
	obs := Observation{
		ProductID: productID,
		Timestamp: at,
		ErrorKind: kind,
	}
	if err != nil {
		obs.Error = err.Error()
	}
	return obs
}

// AlertState guarda o último alerta disparado para o regime de preço atual.
// Ausência de estado equivale a "armado".
type AlertState struct {
	ProductID        string
	LastAlertedPrice decimal.NullDecimal
	LastAlertedAt    time.Time
}
