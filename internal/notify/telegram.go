package notify

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender é a parte da BotAPI usada para enviar mensagens
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram envia alertas para um chat do Telegram
type Telegram struct {
	bot    Sender
	chatID int64
}

// NewTelegram usa um bot já autenticado (ver bot.Init)
func NewTelegram(bot Sender, chatID int64) *Telegram {
	return &Telegram{bot: bot, chatID: chatID}
}

func (t *Telegram) Notify(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	reply := tgbotapi.NewMessage(t.chatID, telegramText(msg))
	reply.ParseMode = tgbotapi.ModeHTML
	reply.DisableWebPagePreview = true

	if _, err := t.bot.Send(reply); err != nil {
		return fmt.Errorf("erro ao enviar mensagem: %w", err)
	}
	return nil
}

func telegramText(msg Message) string {
	var b strings.Builder
	b.WriteString("🎉 <b>PROMOÇÃO DETECTADA!</b>\n\n")
	fmt.Fprintf(&b, "Produto: %s\n", escapeHTML(msg.ProductName))
	fmt.Fprintf(&b, "Preço atual: %s\n", msg.CurrentPrice.StringFixed(2))
	fmt.Fprintf(&b, "Preço alvo: %s\n", msg.TargetPrice.StringFixed(2))
	if savings := msg.Savings(); savings.IsPositive() {
		fmt.Fprintf(&b, "Economia: %s\n", savings.StringFixed(2))
	}
	fmt.Fprintf(&b, "\nLink: %s", escapeHTML(msg.URL))
	return b.String()
}

// escapeHTML escapa caracteres especiais do HTML
func escapeHTML(text string) string {
	text = strings.ReplaceAll(text, "&", "&amp;")
	text = strings.ReplaceAll(text, "<", "&lt;")
	text = strings.ReplaceAll(text, ">", "&gt;")
	return text
}
