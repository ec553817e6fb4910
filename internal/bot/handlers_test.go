package bot

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"price-tracker/internal/models"
	"price-tracker/internal/monitor"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
)

type fakeSender struct {
	sent []tgbotapi.MessageConfig
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{}, nil
}

type fakePrices struct {
	last   map[string]models.Observation
	alerts map[string]*models.AlertState
}

func (f fakePrices) LastSuccessful(id string) (models.Observation, bool) {
	obs, ok := f.last[id]
	return obs, ok
}

func (f fakePrices) AlertState(id string) *models.AlertState { return f.alerts[id] }

type fakeMonitor struct {
	summary monitor.RunSummary
	checks  int
}

func (f *fakeMonitor) LastSummary() (monitor.RunSummary, bool) { return f.summary, f.checks > 0 }

func (f *fakeMonitor) RunNow(ctx context.Context) (monitor.RunSummary, bool) {
	f.checks++
	return f.summary, true
}

func newCommands() (*Commands, *fakeSender, *fakeMonitor) {
	at := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	products := []models.Product{
		{ID: "a", Name: "Fone <BT>", TargetPrice: decimal.NewFromInt(500)},
		{ID: "b", Name: "Teclado", TargetPrice: decimal.NewFromInt(200)},
	}
	prices := fakePrices{
		last: map[string]models.Observation{"a": models.NewSuccess("a", decimal.NewFromInt(480), "Fone", at)},
		alerts: map[string]*models.AlertState{
			"a": {ProductID: "a", LastAlertedPrice: decimal.NewNullDecimal(decimal.NewFromInt(480))},
		},
	}
	mon := &fakeMonitor{summary: monitor.RunSummary{StartedAt: at, Scraped: 2, AlertsSent: 1}}
	sender := &fakeSender{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewCommands(sender, 42, products, prices, mon, mon, logger), sender, mon
}

func message(chatID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{Text: text, Chat: &tgbotapi.Chat{ID: chatID}}
}

func TestUnauthorizedChat(t *testing.T) {
	c, sender, mon := newCommands()

	c.Handle(context.Background(), message(7, "/check"))

	if mon.checks != 0 {
		t.Errorf("unauthorized chat triggered a check")
	}
	if len(sender.sent) != 1 || !strings.Contains(sender.sent[0].Text, "não está autorizado") {
		t.Errorf("unexpected replies: %+v", sender.sent)
	}

	c.Handle(context.Background(), message(7, "/help"))
	if !strings.Contains(sender.sent[1].Text, "/list") {
		t.Errorf("help should be public")
	}
}

func TestListCommand(t *testing.T) {
	c, sender, _ := newCommands()

	c.Handle(context.Background(), message(42, "/list@price_bot"))

	text := sender.sent[0].Text
	for _, want := range []string{"Fone &lt;BT&gt;", "Preço atual: 480.00", "Último alerta: 480.00", "ainda não verificado", "Preço alvo: 200.00"} {
		if !strings.Contains(text, want) {
			t.Errorf("list does not contain %q:\n%s", want, text)
		}
	}
}

func TestCheckAndStatusCommands(t *testing.T) {
	c, sender, mon := newCommands()

	c.Handle(context.Background(), message(42, "/status"))
	if !strings.Contains(sender.sent[0].Text, "Nenhuma verificação") {
		t.Errorf("unexpected status before any run: %s", sender.sent[0].Text)
	}

	c.Handle(context.Background(), message(42, "/check"))
	if mon.checks != 1 {
		t.Fatalf("Invalid result, got: %d checks, instead of: %d.", mon.checks, 1)
	}
	last := sender.sent[len(sender.sent)-1].Text
	if !strings.Contains(last, "Verificados: 2") || !strings.Contains(last, "Alertas enviados: 1") {
		t.Errorf("unexpected summary: %s", last)
	}
}

func TestServeStopsWhenChannelCloses(t *testing.T) {
	c, sender, _ := newCommands()

	updates := make(chan tgbotapi.Update, 2)
	updates <- tgbotapi.Update{Message: message(42, "/foo")}
	updates <- tgbotapi.Update{}
	close(updates)

	c.Serve(context.Background(), updates)

	if len(sender.sent) != 1 || !strings.Contains(sender.sent[0].Text, "não reconhecido") {
		t.Errorf("unexpected replies: %+v", sender.sent)
	}
}
