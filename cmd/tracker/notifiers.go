package main

import (
	"log/slog"
	"time"

	"price-tracker/config"
	"price-tracker/internal/bot"
	"price-tracker/internal/notify"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// buildNotifiers cria os canais configurados. Em caso de erro os já criados são fechados.
// O bot do Telegram é retornado para ser reaproveitado pelos comandos.
func buildNotifiers(cfg *config.Config, log *slog.Logger) (multi notify.Multi, api *tgbotapi.BotAPI, err error) {
	defer func() {
		if err != nil {
			multi.Close()
			multi = nil
		}
	}()

	n := cfg.Notifiers

	if n.Telegram != nil && n.Telegram.BotToken != "" {
		api, err = bot.Init(n.Telegram.BotToken, log)
		if err != nil {
			return multi, nil, err
		}
		multi = append(multi, notify.NewTelegram(api, n.Telegram.ChatID))
	}

	if n.Email != nil {
		multi = append(multi, notify.NewEmail(notify.EmailConfig{
			Host:      n.Email.SMTPHost,
			Port:      n.Email.SMTPPort,
			Sender:    n.Email.SenderEmail,
			Recipient: n.Email.RecipientEmail,
			Password:  n.Email.AppPassword,
		}))
	}

	if n.Webhook != nil {
		timeout := time.Duration(n.Webhook.TimeoutSeconds * float64(time.Second))
		multi = append(multi, notify.NewWebhook(n.Webhook.URL, n.Webhook.Headers, timeout))
	}

	if n.NATS != nil {
		nc, err := notify.NewNATS(n.NATS.URL, n.NATS.Subject)
		if err != nil {
			return multi, api, err
		}
		multi = append(multi, nc)
	}

	if n.Kafka != nil {
		k, err := notify.NewKafka(n.Kafka.Brokers, n.Kafka.Topic)
		if err != nil {
			return multi, api, err
		}
		multi = append(multi, k)
	}

	if len(multi) == 0 {
		log.Warn("nenhum canal de notificação configurado; alertas aparecerão apenas nos logs")
	} else {
		log.Info("notificações configuradas", slog.Int("channels", len(multi)))
	}
	return multi, api, nil
}
