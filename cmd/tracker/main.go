package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"price-tracker/config"
	"price-tracker/internal/bot"
	"price-tracker/internal/database"
	"price-tracker/internal/logger"
	"price-tracker/internal/monitor"
	"price-tracker/internal/scraper"
	"price-tracker/internal/status"
	"price-tracker/internal/store"

	"github.com/fatih/color"
	cli "github.com/jawher/mow.cli"
)

func main() {
	app := cli.App("tracker", "Monitora preços de produtos e avisa quando atingem o preço alvo")

	configFile := app.StringOpt("c config", config.DefaultConfigFile, "arquivo de configuração (YAML ou JSON)")
	envFile := app.StringOpt("e env", ".env", "arquivo com variáveis de ambiente")
	schedule := app.BoolOpt("s schedule", false, "verifica continuamente no intervalo configurado")

	app.Action = func() {
		os.Exit(run(*configFile, *envFile, *schedule))
	}

	app.Command("watch", "verifica continuamente no intervalo configurado", func(cmd *cli.Cmd) {
		cmd.Action = func() {
			os.Exit(run(*configFile, *envFile, true))
		}
	})

	app.Command("check", "executa uma única verificação", func(cmd *cli.Cmd) {
		cmd.Action = func() {
			os.Exit(run(*configFile, *envFile, false))
		}
	})

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run monta os componentes e retorna o código de saída
func run(configFile, envFile string, schedule bool) int {
	// Carregar variáveis de ambiente
	envFound, err := config.LoadEnv(envFile)
	if err != nil {
		errorf("Erro ao carregar %s: %v", envFile, err)
		return 1
	}

	// Carregar configurações
	cfg, err := config.Load(configFile)
	if err != nil {
		var cfgErr *config.ConfigError
		if errors.As(err, &cfgErr) {
			errorf("Configuração inválida: %s: %s", cfgErr.Field, cfgErr.Reason)
		} else {
			errorf("Erro ao carregar configurações: %v", err)
		}
		return 1
	}

	log, logCloser, err := logger.New(os.Stderr, logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile})
	if err != nil {
		errorf("Erro ao configurar logs: %v", err)
		return 1
	}
	defer logCloser.Close()

	if !envFound {
		log.Info("arquivo .env não encontrado, usando variáveis de ambiente do sistema")
	}
	log.Info("configuração carregada", slog.String("file", configFile), slog.Int("products", len(cfg.Products)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	products := cfg.BuildProducts()

	// Inicializar banco de dados
	var backend store.Backend
	if cfg.PersistenceEnabled() {
		db, err := database.New(*cfg.DatabasePath, log)
		if err != nil {
			log.Error("erro ao inicializar banco de dados", slog.Any("error", err))
			return 1
		}
		defer db.Close()
		backend = db
	}

	observations := store.New(products, backend, cfg.DataDir)
	if err := observations.Load(ctx); err != nil {
		log.Warn("histórico não carregado", slog.Any("error", err))
	}

	fetcher, err := scraper.New(scraper.Options{
		Kind:       cfg.Fetcher,
		Timeout:    cfg.FetchTimeout(),
		UserAgent:  cfg.UserAgent,
		Headless:   *cfg.Rendered.Headless,
		Undetected: cfg.Rendered.Undetected,
	})
	if err != nil {
		log.Error("erro ao inicializar fetcher", slog.Any("error", err))
		return 1
	}
	defer fetcher.Close()

	notifiers, telegramAPI, err := buildNotifiers(cfg, log)
	if err != nil {
		log.Error("erro ao inicializar notificações", slog.Any("error", err))
		return 1
	}
	defer notifiers.Close()

	mon := monitor.New(monitor.Options{
		Fetcher:      fetcher,
		Registry:     scraper.NewRegistry(),
		Store:        observations,
		Notifier:     notifiers,
		Logger:       log,
		RequestDelay: cfg.RequestDelay(),
		ExportFormat: cfg.ExportFormat(),
	})
	scheduler := monitor.NewScheduler(mon, products, cfg.CheckInterval(), monitor.RealClock(), log)

	if !schedule {
		fmt.Println("Running one-time price check...")
		summary, ok := scheduler.RunNow(ctx)
		if !ok {
			return 1
		}
		printSummary(os.Stdout, summary)
		return 0
	}

	if cfg.StatusAddr != "" {
		handler := status.NewHandler(mon, observations, products).Router()
		go func() {
			if err := status.Serve(ctx, cfg.StatusAddr, handler, log); err != nil {
				log.Error("erro no servidor de status", slog.Any("error", err))
			}
		}()
	}

	if telegramAPI != nil && cfg.Notifiers.Telegram.Commands {
		commands := bot.NewCommands(telegramAPI, cfg.Notifiers.Telegram.ChatID, products, observations, mon, scheduler, log)
		go bot.Listen(ctx, telegramAPI, commands)
	}

	fmt.Printf("Price tracker started! Checking every %s...\n", cfg.CheckInterval())
	fmt.Println("Press Ctrl+C to stop")

	if err := scheduler.Run(ctx); err != nil {
		log.Error("monitor encerrado com erro", slog.Any("error", err))
		return 1
	}

	fmt.Println("\nPrice tracker stopped.")
	return 0
}

func printSummary(w io.Writer, summary monitor.RunSummary) {
	fmt.Fprintf(w, "\nCompleted! Checked %d products.\n", summary.Scraped)

	drop := color.New(color.FgGreen, color.Bold)
	failed := color.New(color.FgYellow)

	for _, r := range summary.Results {
		name := resultName(r)
		switch {
		case !r.Observation.Success:
			failed.Fprintf(w, "Failed %s: %s\n", name, r.Observation.ErrorKind)
		case r.PriceDropped():
			drop.Fprintf(w, "PRICE DROP %s: %s\n", name, r.Observation.Price.Decimal.StringFixed(2))
		default:
			fmt.Fprintf(w, "No change %s: %s\n", name, r.Observation.Price.Decimal.StringFixed(2))
		}
	}

	if summary.AlertsSent > 0 || summary.NotifyFailures > 0 {
		fmt.Fprintf(w, "%d alerts sent, %d failed.\n", summary.AlertsSent, summary.NotifyFailures)
	}
}

func resultName(r monitor.ProductResult) string {
	if r.Observation.Title != "" {
		return r.Observation.Title
	}
	return r.Product.DisplayName()
}

var errorColor = color.New(color.FgRed)

func errorf(format string, args ...any) {
	errorColor.Fprintf(os.Stderr, format+"\n", args...)
}
