package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"price-tracker/internal/models"
	"price-tracker/internal/monitor"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const helpText = `🤖 <b>Monitor de Preços</b>

<b>Comandos disponíveis:</b>

<b>/list</b> - Listar os produtos monitorados com o último preço

<b>/status</b> - Resumo da última verificação

<b>/check</b> - Verificar todos os produtos agora

<b>/help</b> - Mostrar esta mensagem de ajuda
`

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Prices dá acesso aos últimos preços e alertas de cada produto
type Prices interface {
	LastSuccessful(productID string) (models.Observation, bool)
	AlertState(productID string) *models.AlertState
}

type Summaries interface {
	LastSummary() (monitor.RunSummary, bool)
}

// Checker executa uma verificação imediata (sem sobrepor o agendador)
type Checker interface {
	RunNow(ctx context.Context) (monitor.RunSummary, bool)
}

// Commands atende os comandos do bot. Somente leitura, exceto /check.
type Commands struct {
	bot              sender
	authorizedChatID int64
	products         []models.Product
	prices           Prices
	summaries        Summaries
	checker          Checker
	logger           *slog.Logger
}

func NewCommands(bot sender, authorizedChatID int64, products []models.Product, prices Prices, summaries Summaries, checker Checker, logger *slog.Logger) *Commands {
	return &Commands{
		bot:              bot,
		authorizedChatID: authorizedChatID,
		products:         products,
		prices:           prices,
		summaries:        summaries,
		checker:          checker,
		logger:           logger,
	}
}

// Serve processa as atualizações até o canal fechar ou o contexto ser cancelado
func (c *Commands) Serve(ctx context.Context, updates <-chan tgbotapi.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message != nil {
				c.Handle(ctx, update.Message)
			}
		}
	}
}

// Handle responde a uma mensagem
func (c *Commands) Handle(ctx context.Context, message *tgbotapi.Message) {
	parts := strings.Fields(message.Text)
	if len(parts) == 0 {
		return
	}

	command := strings.ToLower(parts[0])
	// Remover @botname se presente
	if idx := strings.Index(command, "@"); idx > 0 {
		command = command[:idx]
	}

	chatID := message.Chat.ID

	// Comandos públicos (não precisam de autorização)
	isPublicCommand := command == "/start" || command == "/help"
	if !isPublicCommand && c.authorizedChatID != 0 && chatID != c.authorizedChatID {
		c.reply(chatID, "Você não está autorizado a usar este bot.")
		return
	}

	switch command {
	case "/start", "/help":
		c.reply(chatID, helpText)
	case "/list":
		c.reply(chatID, c.listText())
	case "/status":
		c.reply(chatID, c.statusText())
	case "/check":
		c.reply(chatID, "🔍 Verificando produtos...")
		summary, ok := c.checker.RunNow(ctx)
		if !ok {
			c.reply(chatID, "❌ Erro ao verificar produtos. Veja os logs.")
			return
		}
		c.reply(chatID, summaryText(summary))
	default:
		c.reply(chatID, "Comando não reconhecido. Use /help para ver os comandos disponíveis.")
	}
}

func (c *Commands) listText() string {
	if len(c.products) == 0 {
		return "📭 Nenhum produto monitorado."
	}

	var b strings.Builder
	b.WriteString("📋 <b>Produtos monitorados:</b>\n")
	for i, p := range c.products {
		fmt.Fprintf(&b, "\n<b>%d.</b> %s\n", i+1, escapeHTML(p.DisplayName()))
		if obs, ok := c.prices.LastSuccessful(p.ID); ok {
			fmt.Fprintf(&b, "Preço atual: %s\n", obs.Price.Decimal.StringFixed(2))
		} else {
			b.WriteString("Preço atual: ainda não verificado\n")
		}
		fmt.Fprintf(&b, "Preço alvo: %s\n", p.TargetPrice.StringFixed(2))
		if state := c.prices.AlertState(p.ID); state != nil && state.LastAlertedPrice.Valid {
			fmt.Fprintf(&b, "🔔 Último alerta: %s\n", state.LastAlertedPrice.Decimal.StringFixed(2))
		}
	}
	return b.String()
}

func (c *Commands) statusText() string {
	summary, ok := c.summaries.LastSummary()
	if !ok {
		return "Nenhuma verificação concluída ainda."
	}
	return summaryText(summary)
}

func summaryText(summary monitor.RunSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 <b>Verificação de %s</b>\n\n", summary.StartedAt.Format("02/01/2006 15:04"))
	fmt.Fprintf(&b, "Verificados: %d\n", summary.Scraped)
	fmt.Fprintf(&b, "Falhas: %d\n", summary.Failed)
	fmt.Fprintf(&b, "Alertas enviados: %d\n", summary.AlertsSent)
	if summary.NotifyFailures > 0 {
		fmt.Fprintf(&b, "Alertas com erro: %d\n", summary.NotifyFailures)
	}
	return b.String()
}

func (c *Commands) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := c.bot.Send(msg); err != nil {
		c.logger.Error("erro ao enviar mensagem", slog.Any("error", err))
		// Tentar sem formatação se houver erro
		msg.ParseMode = ""
		c.bot.Send(msg)
	}
}

// escapeHTML escapa caracteres especiais do HTML
func escapeHTML(text string) string {
	text = strings.ReplaceAll(text, "&", "&amp;")
	text = strings.ReplaceAll(text, "<", "&lt;")
	text = strings.ReplaceAll(text, ">", "&gt;")
	return text
}
