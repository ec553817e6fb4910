// Package alert decide quando uma observação de preço deve gerar notificação.
//
// Cada produto está "armado" (sem estado) ou "alertado" (com o último preço
// notificado). Um preço no alvo arma -> alertado e notifica; enquanto
// alertado, só um preço estritamente menor notifica de novo; um preço acima
// do alvo volta para armado.
package alert

import (
	"price-tracker/internal/models"
)

// Decision é o resultado da avaliação de uma observação
type Decision int

const (
	// Ignore não altera nada: falha de leitura ou preço acima do alvo já armado
	Ignore Decision = iota
	// Fire notifica e grava o preço como último alertado
	Fire
	// Suppress mantém o estado: preço no alvo mas não menor que o último alertado
	Suppress
	// Reset limpa o estado: preço voltou para acima do alvo
	Reset
)

func (d Decision) String() string {
	switch d {
	case Fire:
		return "fire"
	case Suppress:
		return "suppress"
	case Reset:
		return "reset"
	default:
		return "ignore"
	}
}

// Evaluate decide o que fazer com a observação atual dado o estado anterior (nil = armado)
func Evaluate(product models.Product, obs models.Observation, prior *models.AlertState) Decision {
	if !obs.Success || !obs.Price.Valid {
		return Ignore
	}

	price := obs.Price.Decimal

	if price.GreaterThan(product.TargetPrice) {
		if prior != nil {
			return Reset
		}
		return Ignore
	}

	if prior == nil || !prior.LastAlertedPrice.Valid {
		return Fire
	}

	if price.LessThan(prior.LastAlertedPrice.Decimal) {
		return Fire
	}

	return Suppress
}

// Apply retorna o próximo estado para a decisão tomada (nil = armado)
func Apply(decision Decision, obs models.Observation, prior *models.AlertState) *models.AlertState {
	switch decision {
	case Fire:
		return &models.AlertState{
			ProductID:        obs.ProductID,
			LastAlertedPrice: obs.Price,
			LastAlertedAt:    obs.Timestamp,
		}
	case Reset:
		return nil
	default:
		return prior
	}
}
