package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

const DefaultNATSSubject = "prices.alerts"

const natsFlushTimeout = 5 * time.Second

// NATS publica os alertas em um subject
type NATS struct {
	conn    *nats.Conn
	subject string
}

func NewNATS(url, subject string) (*NATS, error) {
	if subject == "" {
		subject = DefaultNATSSubject
	}

	conn, err := nats.Connect(url, nats.Name("price-tracker"))
	if err != nil {
		return nil, fmt.Errorf("erro ao conectar no NATS: %w", err)
	}
	return &NATS{conn: conn, subject: subject}, nil
}

func (n *NATS) Notify(ctx context.Context, msg Message) error {
	data, err := json.Marshal(newEvent(msg))
	if err != nil {
		return fmt.Errorf("erro ao serializar alerta: %w", err)
	}

	if err := n.conn.Publish(n.subject, data); err != nil {
		return fmt.Errorf("erro ao publicar no NATS: %w", err)
	}
	// FlushWithContext exige deadline
	if _, ok := ctx.Deadline(); ok {
		return n.conn.FlushWithContext(ctx)
	}
	return n.conn.FlushTimeout(natsFlushTimeout)
}

func (n *NATS) Close() error {
	if n.conn == nil {
		return nil
	}
	err := n.conn.Drain()
	n.conn.Close()
	return err
}
