// Package notify entrega os alertas de preço pelos canais configurados.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
)

// Message é o conteúdo de um alerta de preço
type Message struct {
	ProductName  string
	CurrentPrice decimal.Decimal
	TargetPrice  decimal.Decimal
	URL          string
	Timestamp    time.Time
}

// Savings retorna quanto o preço atual está abaixo do alvo
func (m Message) Savings() decimal.Decimal {
	return m.TargetPrice.Sub(m.CurrentPrice)
}

// Notifier entrega um alerta. Deve respeitar o cancelamento do contexto.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// event é a forma serializada usada pelos canais de mensageria (webhook, NATS, Kafka)
type event struct {
	Type         string          `json:"type"`
	ProductName  string          `json:"product_name"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	TargetPrice  decimal.Decimal `json:"target_price"`
	Savings      decimal.Decimal `json:"savings"`
	URL          string          `json:"url"`
	Timestamp    time.Time       `json:"timestamp"`
}

const priceDropEvent = "price_drop"

func newEvent(msg Message) event {
	return event{
		Type:         priceDropEvent,
		ProductName:  msg.ProductName,
		CurrentPrice: msg.CurrentPrice,
		TargetPrice:  msg.TargetPrice,
		Savings:      msg.Savings(),
		URL:          msg.URL,
		Timestamp:    msg.Timestamp.UTC(),
	}
}

// Multi envia o alerta para todos os canais, mesmo que algum falhe.
// Os erros são combinados com errors.Join.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, msg Message) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("%T: %w", n, err))
		}
	}
	return errors.Join(errs...)
}

// Close fecha os canais que mantêm conexões abertas
func (m Multi) Close() error {
	var errs []error
	for _, n := range m {
		if c, ok := n.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
