package bot

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Init inicializa o bot do Telegram
func Init(token string, logger *slog.Logger) (*tgbotapi.BotAPI, error) {
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN não configurado. Verifique o arquivo .env")
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		if err.Error() == "Unauthorized" {
			return nil, fmt.Errorf("token do Telegram inválido ou expirado. Verifique o TELEGRAM_BOT_TOKEN no arquivo .env. Para obter um token, fale com @BotFather no Telegram")
		}
		return nil, fmt.Errorf("erro ao conectar com Telegram: %w", err)
	}

	bot.Debug = false
	logger.Info("bot autorizado", slog.String("username", bot.Self.UserName))
	return bot, nil
}

// Listen recebe os comandos do Telegram até o contexto ser cancelado
func Listen(ctx context.Context, api *tgbotapi.BotAPI, commands *Commands) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := api.GetUpdatesChan(u)

	go func() {
		<-ctx.Done()
		api.StopReceivingUpdates()
	}()

	commands.Serve(ctx, updates)
}
