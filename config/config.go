package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"price-tracker/internal/models"
	"price-tracker/internal/scraper"
	"price-tracker/internal/store"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigFile         = "config.yaml"
	DefaultCheckIntervalHours = 6
	DefaultDataDir            = "./data"
	DefaultDatabasePath       = "./products.db"
	DefaultFetchTimeout       = 10
	DefaultRequestDelay       = 2
)

var envReference = regexp.MustCompile(`\$\{[A-Za-z_][A-Za-z0-9_]*\}`)

// ConfigError indica um campo inválido na configuração. É sempre fatal.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuração inválida em %s: %s", e.Field, e.Reason)
}

// Config contém as configurações da aplicação
type Config struct {
	Products            []ProductConfig `yaml:"products"`
	CheckIntervalHours  float64         `yaml:"check_interval_hours"`
	DataExportFormat    string          `yaml:"data_export_format"`
	DataDir             string          `yaml:"data_dir"`
	DatabasePath        *string         `yaml:"database_path"`
	Fetcher             string          `yaml:"fetcher"`
	FetchTimeoutSeconds float64         `yaml:"fetch_timeout_seconds"`
	RequestDelaySeconds *float64        `yaml:"request_delay_seconds"`
	UserAgent           string          `yaml:"user_agent"`
	Rendered            RenderedConfig  `yaml:"rendered"`
	LogFile             string          `yaml:"log_file"`
	LogLevel            string          `yaml:"log_level"`
	LogFormat           string          `yaml:"log_format"`
	StatusAddr          string          `yaml:"status_addr"`
	Notifiers           NotifiersConfig `yaml:"notifiers"`

	// Nomes aceitos por compatibilidade com arquivos antigos
	DataFormat string       `yaml:"data_format"`
	Email      *EmailConfig `yaml:"email"`
}

// ProductConfig é um produto como aparece no arquivo
type ProductConfig struct {
	ID           string `yaml:"id"`
	URL          string `yaml:"url"`
	Name         string `yaml:"name"`
	PriceLocator string `yaml:"price_locator"`
	TitleLocator string `yaml:"title_locator"`
	TargetPrice  string `yaml:"target_price"`

	PriceSelector string `yaml:"price_selector"`
	TitleSelector string `yaml:"title_selector"`
}

type RenderedConfig struct {
	Headless   *bool `yaml:"headless"`
	Undetected bool  `yaml:"undetected"`
}

type NotifiersConfig struct {
	Telegram *TelegramConfig `yaml:"telegram"`
	Email    *EmailConfig    `yaml:"email"`
	Webhook  *WebhookConfig  `yaml:"webhook"`
	NATS     *NATSConfig     `yaml:"nats"`
	Kafka    *KafkaConfig    `yaml:"kafka"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
	// Commands habilita /list, /status e /check no modo contínuo
	Commands bool `yaml:"commands"`
}

type EmailConfig struct {
	SenderEmail    string `yaml:"sender_email"`
	RecipientEmail string `yaml:"recipient_email"`
	AppPassword    string `yaml:"app_password"`
	SMTPHost       string `yaml:"smtp_host"`
	SMTPPort       int    `yaml:"smtp_port"`
}

type WebhookConfig struct {
	URL            string            `yaml:"url"`
	Headers        map[string]string `yaml:"headers"`
	TimeoutSeconds float64           `yaml:"timeout_seconds"`
}

type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// LoadEnv carrega o arquivo .env, se existir.
// Retorna false quando o arquivo não foi encontrado.
func LoadEnv(path string) (bool, error) {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("erro ao ler %s: %w", path, err)
	}
	return true, nil
}

// Load lê o arquivo de configuração, aplica variáveis de ambiente e valida
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("erro ao ler configuração: %w", err)
	}

	return Parse(bytes.NewReader(data))
}

// Parse decodifica a configuração (YAML ou JSON) e valida.
// Referências ${VAR} são expandidas a partir do ambiente.
func Parse(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	expanded := expandEnv(string(data))

	var cfg Config
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("erro ao interpretar configuração: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// expandEnv substitui apenas ${VAR}; "$" solto é comum em locators de preço
func expandEnv(text string) string {
	return envReference.ReplaceAllStringFunc(text, func(ref string) string {
		return os.Getenv(ref[2 : len(ref)-1])
	})
}

// applyEnv aplica as variáveis de ambiente que sobrescrevem o arquivo
func (c *Config) applyEnv() error {
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		if c.Notifiers.Telegram == nil {
			c.Notifiers.Telegram = &TelegramConfig{}
		}
		c.Notifiers.Telegram.BotToken = token
	}

	if chatIDStr := os.Getenv("TELEGRAM_CHAT_ID"); chatIDStr != "" && c.Notifiers.Telegram != nil {
		chatID, err := strconv.ParseInt(chatIDStr, 10, 64)
		if err != nil {
			return &ConfigError{Field: "TELEGRAM_CHAT_ID", Reason: "deve ser um número"}
		}
		c.Notifiers.Telegram.ChatID = chatID
	}

	if envInterval := os.Getenv("CHECK_INTERVAL_HOURS"); envInterval != "" {
		parsed, err := strconv.ParseFloat(envInterval, 64)
		if err != nil || parsed <= 0 {
			return &ConfigError{Field: "CHECK_INTERVAL_HOURS", Reason: "deve ser um número positivo"}
		}
		c.CheckIntervalHours = parsed
	}

	if dbPath, ok := os.LookupEnv("DATABASE_PATH"); ok {
		c.DatabasePath = &dbPath
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.CheckIntervalHours == 0 {
		c.CheckIntervalHours = DefaultCheckIntervalHours
	}
	if c.DataExportFormat == "" {
		c.DataExportFormat = c.DataFormat
	}
	if c.DataExportFormat == "" {
		c.DataExportFormat = string(store.FormatBoth)
	}
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir
	}
	if c.DatabasePath == nil {
		path := DefaultDatabasePath
		c.DatabasePath = &path
	}
	if c.Fetcher == "" {
		c.Fetcher = scraper.KindStatic
	}
	if c.FetchTimeoutSeconds == 0 {
		c.FetchTimeoutSeconds = DefaultFetchTimeout
	}
	if c.RequestDelaySeconds == nil {
		delay := float64(DefaultRequestDelay)
		c.RequestDelaySeconds = &delay
	}
	if c.UserAgent == "" {
		c.UserAgent = scraper.DefaultUserAgent
	}
	if c.Rendered.Headless == nil {
		headless := true
		c.Rendered.Headless = &headless
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
	if c.Notifiers.Email == nil && c.Email != nil {
		c.Notifiers.Email = c.Email
	}

	for i := range c.Products {
		p := &c.Products[i]
		if p.PriceLocator == "" {
			p.PriceLocator = p.PriceSelector
		}
		if p.TitleLocator == "" {
			p.TitleLocator = p.TitleSelector
		}
	}
}

// Validate verifica toda a configuração antes de qualquer acesso à rede
func (c *Config) Validate() error {
	if len(c.Products) == 0 {
		return &ConfigError{Field: "products", Reason: "ao menos um produto é obrigatório"}
	}

	registry := scraper.NewRegistry()
	ids := make(map[string]int, len(c.Products))
	for i, p := range c.Products {
		field := func(name string) string {
			return fmt.Sprintf("products[%d].%s", i, name)
		}

		if err := validateURL(p.URL); err != nil {
			return &ConfigError{Field: field("url"), Reason: err.Error()}
		}

		if p.PriceLocator == "" {
			if _, ok := registry.FindPreset(p.URL); !ok {
				return &ConfigError{Field: field("price_locator"), Reason: "obrigatório para lojas sem preset"}
			}
		} else if _, err := scraper.ParseLocator(p.PriceLocator); err != nil {
			return &ConfigError{Field: field("price_locator"), Reason: err.Error()}
		}
		if p.TitleLocator != "" {
			if _, err := scraper.ParseLocator(p.TitleLocator); err != nil {
				return &ConfigError{Field: field("title_locator"), Reason: err.Error()}
			}
		}

		target, err := decimal.NewFromString(strings.TrimSpace(p.TargetPrice))
		if err != nil {
			return &ConfigError{Field: field("target_price"), Reason: "deve ser um número"}
		}
		if !target.IsPositive() {
			return &ConfigError{Field: field("target_price"), Reason: "deve ser maior que zero"}
		}

		id := productID(p)
		if prev, ok := ids[id]; ok {
			return &ConfigError{Field: field("id"), Reason: fmt.Sprintf("produto duplicado (mesmo que products[%d])", prev)}
		}
		ids[id] = i
	}

	if c.CheckIntervalHours <= 0 {
		return &ConfigError{Field: "check_interval_hours", Reason: "deve ser maior que zero"}
	}
	if _, err := store.ParseFormat(c.DataExportFormat); err != nil {
		return &ConfigError{Field: "data_export_format", Reason: err.Error()}
	}
	switch c.Fetcher {
	case scraper.KindStatic, scraper.KindRendered:
	default:
		return &ConfigError{Field: "fetcher", Reason: fmt.Sprintf("deve ser %q ou %q", scraper.KindStatic, scraper.KindRendered)}
	}
	if c.FetchTimeoutSeconds <= 0 {
		return &ConfigError{Field: "fetch_timeout_seconds", Reason: "deve ser maior que zero"}
	}
	if c.RequestDelaySeconds != nil && *c.RequestDelaySeconds < 0 {
		return &ConfigError{Field: "request_delay_seconds", Reason: "não pode ser negativo"}
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return &ConfigError{Field: "log_level", Reason: "use debug, info, warn ou error"}
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return &ConfigError{Field: "log_format", Reason: "use text ou json"}
	}

	return c.Notifiers.validate()
}

func (n NotifiersConfig) validate() error {
	if t := n.Telegram; t != nil && t.BotToken != "" && t.ChatID == 0 {
		return &ConfigError{Field: "notifiers.telegram.chat_id", Reason: "obrigatório quando o bot está configurado"}
	}
	if e := n.Email; e != nil {
		if e.SenderEmail == "" {
			return &ConfigError{Field: "notifiers.email.sender_email", Reason: "obrigatório"}
		}
		if e.RecipientEmail == "" {
			return &ConfigError{Field: "notifiers.email.recipient_email", Reason: "obrigatório"}
		}
	}
	if w := n.Webhook; w != nil {
		if err := validateURL(w.URL); err != nil {
			return &ConfigError{Field: "notifiers.webhook.url", Reason: err.Error()}
		}
	}
	if s := n.NATS; s != nil && s.URL == "" {
		return &ConfigError{Field: "notifiers.nats.url", Reason: "obrigatório"}
	}
	if k := n.Kafka; k != nil && len(k.Brokers) == 0 {
		return &ConfigError{Field: "notifiers.kafka.brokers", Reason: "ao menos um broker é obrigatório"}
	}
	return nil
}

func validateURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return errors.New("obrigatório")
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("URL inválida: %q", raw)
	}
	return nil
}

func productID(p ProductConfig) string {
	if p.ID != "" {
		return p.ID
	}
	return models.ProductID(p.URL)
}

// BuildProducts converte os produtos da configuração já validada
func (c *Config) BuildProducts() []models.Product {
	products := make([]models.Product, 0, len(c.Products))
	for _, p := range c.Products {
		target, _ := decimal.NewFromString(strings.TrimSpace(p.TargetPrice))
		products = append(products, models.Product{
			ID:           productID(p),
			URL:          strings.TrimSpace(p.URL),
			Name:         p.Name,
			PriceLocator: p.PriceLocator,
			TitleLocator: p.TitleLocator,
			TargetPrice:  target,
		})
	}
	return products
}

func (c *Config) CheckInterval() time.Duration {
	return time.Duration(c.CheckIntervalHours * float64(time.Hour))
}

func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds * float64(time.Second))
}

func (c *Config) RequestDelay() time.Duration {
	if c.RequestDelaySeconds == nil {
		return DefaultRequestDelay * time.Second
	}
	return time.Duration(*c.RequestDelaySeconds * float64(time.Second))
}

// ExportFormat retorna o formato de exportação já validado
func (c *Config) ExportFormat() store.Format {
	format, _ := store.ParseFormat(c.DataExportFormat)
	return format
}

// PersistenceEnabled indica se as observações devem ser gravadas no SQLite
func (c *Config) PersistenceEnabled() bool {
	return c.DatabasePath != nil && *c.DatabasePath != ""
}
