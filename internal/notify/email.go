package notify

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultSMTPHost = "smtp.gmail.com"
	DefaultSMTPPort = 587
)

// EmailConfig contém os dados de envio por SMTP
type EmailConfig struct {
	Host      string
	Port      int
	Sender    string
	Recipient string
	Password  string
}

// Email envia alertas por SMTP. smtp.SendMail usa STARTTLS quando o servidor suporta.
type Email struct {
	cfg      EmailConfig
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewEmail cria o notificador com os padrões do Gmail quando host/porta não são informados
func NewEmail(cfg EmailConfig) *Email {
	if cfg.Host == "" {
		cfg.Host = DefaultSMTPHost
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultSMTPPort
	}
	return &Email{cfg: cfg, sendMail: smtp.SendMail}
}

func (e *Email) Notify(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := net.JoinHostPort(e.cfg.Host, strconv.Itoa(e.cfg.Port))
	auth := smtp.PlainAuth("", e.cfg.Sender, e.cfg.Password, e.cfg.Host)

	if err := e.sendMail(addr, auth, e.cfg.Sender, []string{e.cfg.Recipient}, e.compose(msg)); err != nil {
		return fmt.Errorf("erro ao enviar email para %s: %w", e.cfg.Recipient, err)
	}
	return nil
}

func (e *Email) compose(msg Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", e.cfg.Sender)
	fmt.Fprintf(&b, "To: %s\r\n", e.cfg.Recipient)
	fmt.Fprintf(&b, "Subject: 🎉 Price Drop Alert: %s\r\n", msg.ProductName)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString("Great news! The price has dropped for a product you're tracking:\r\n\r\n")
	fmt.Fprintf(&b, "Product: %s\r\n", msg.ProductName)
	fmt.Fprintf(&b, "Current Price: %s\r\n", msg.CurrentPrice.StringFixed(2))
	fmt.Fprintf(&b, "Target Price: %s\r\n", msg.TargetPrice.StringFixed(2))
	fmt.Fprintf(&b, "Savings: %s\r\n\r\n", msg.Savings().StringFixed(2))
	fmt.Fprintf(&b, "Product URL: %s\r\n\r\n", msg.URL)
	fmt.Fprintf(&b, "Time: %s\r\n\r\n", msg.Timestamp.Format(time.DateTime))
	b.WriteString("Happy shopping! 🛒\r\n")
	return []byte(b.String())
}
