package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"price-tracker/internal/alert"
	"price-tracker/internal/models"
	"price-tracker/internal/notify"
	"price-tracker/internal/scraper"
	"price-tracker/internal/store"

	"github.com/google/uuid"
)

// DefaultRequestDelay é o intervalo mínimo entre requisições de produtos diferentes
const DefaultRequestDelay = 2 * time.Second

// ProductResult é o resultado do processamento de um produto em uma execução
type ProductResult struct {
	Product     models.Product
	Observation models.Observation
	Decision    alert.Decision
	Notified    bool
	NotifyError error
}

// PriceDropped indica se o preço lido está no alvo ou abaixo dele
func (r ProductResult) PriceDropped() bool {
	return r.Observation.Success && r.Observation.Price.Decimal.LessThanOrEqual(r.Product.TargetPrice)
}

// RunSummary resume uma execução completa
type RunSummary struct {
	RunID          string
	StartedAt      time.Time
	FinishedAt     time.Time
	Scraped        int
	Failed         int
	AlertsSent     int
	NotifyFailures int
	Results        []ProductResult
	Exported       []string
}

// Options configura o Monitor
type Options struct {
	Fetcher      scraper.Fetcher
	Registry     *scraper.Registry
	Store        *store.Store
	Notifier     notify.Notifier
	Clock        Clock
	Logger       *slog.Logger
	RequestDelay time.Duration
	ExportFormat store.Format
	// DisableExport desliga os arquivos CSV/JSON ao final de cada execução
	DisableExport bool
}

// Monitor executa o ciclo de verificação de preços
type Monitor struct {
	fetcher       scraper.Fetcher
	registry      *scraper.Registry
	store         *store.Store
	notifier      notify.Notifier
	clock         Clock
	logger        *slog.Logger
	delay         time.Duration
	format        store.Format
	disableExport bool

	mu   sync.RWMutex
	last *RunSummary
}

// New cria uma nova instância do monitor
func New(opts Options) *Monitor {
	m := &Monitor{
		fetcher:       opts.Fetcher,
		registry:      opts.Registry,
		store:         opts.Store,
		notifier:      opts.Notifier,
		clock:         opts.Clock,
		logger:        opts.Logger,
		delay:         opts.RequestDelay,
		format:        opts.ExportFormat,
		disableExport: opts.DisableExport,
	}

	if m.clock == nil {
		m.clock = RealClock()
	}
	if m.registry == nil {
		m.registry = scraper.NewRegistry()
	}
	if m.notifier == nil {
		m.notifier = notify.Multi{}
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.delay < 0 {
		m.delay = 0
	}
	if m.format == "" {
		m.format = store.FormatBoth
	}
	return m
}

// RunOnce verifica todos os produtos em sequência.
// Falhas de um produto são registradas e não interrompem os demais.
func (m *Monitor) RunOnce(ctx context.Context, products []models.Product) RunSummary {
	summary := RunSummary{
		RunID:     uuid.NewString(),
		StartedAt: m.clock.Now(),
	}
	logger := m.logger.With(slog.String("run_id", summary.RunID))
	logger.Info("iniciando verificação de preços", slog.Int("products", len(products)))

	for i, product := range products {
		if i > 0 && m.delay > 0 {
			// Pequeno delay entre requisições para não sobrecarregar
			select {
			case <-ctx.Done():
			case <-m.clock.After(m.delay):
			}
		}
		if ctx.Err() != nil {
			logger.Warn("execução interrompida", slog.Int("remaining", len(products)-i))
			break
		}

		result := m.checkProduct(ctx, logger, product)
		summary.Results = append(summary.Results, result)

		if result.Observation.Success {
			summary.Scraped++
		} else {
			summary.Failed++
		}
		if result.Notified {
			summary.AlertsSent++
		}
		if result.NotifyError != nil {
			summary.NotifyFailures++
		}
	}

	summary.Exported = m.export(logger, summary)
	summary.FinishedAt = m.clock.Now()

	logger.Info("verificação concluída",
		slog.Int("scraped", summary.Scraped),
		slog.Int("failed", summary.Failed),
		slog.Int("alerts", summary.AlertsSent),
		slog.Duration("duration", summary.FinishedAt.Sub(summary.StartedAt)),
	)

	m.mu.Lock()
	m.last = &summary
	m.mu.Unlock()

	return summary
}

// LastSummary retorna o resumo da última execução concluída
func (m *Monitor) LastSummary() (RunSummary, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.last == nil {
		return RunSummary{}, false
	}
	return *m.last, true
}

func (m *Monitor) checkProduct(ctx context.Context, logger *slog.Logger, product models.Product) (result ProductResult) {
	result = ProductResult{Product: product, Decision: alert.Ignore}
	logger = logger.With(slog.String("product_id", product.ID))

	// a observação da busca é registrada uma única vez, mesmo com pânico depois
	recorded := false
	defer func() {
		if r := recover(); r != nil {
			logger.Error("pânico ao verificar produto", slog.Any("panic", r))
			if recorded {
				result.NotifyError = fmt.Errorf("pânico: %v", r)
				return
			}
			result.Observation = models.NewFailure(product.ID, models.FailureInternal, fmt.Errorf("pânico: %v", r), m.clock.Now())
			result.Decision = alert.Ignore
			m.record(ctx, logger, result.Observation)
		}
	}()

	obs := m.observe(ctx, product)
	result.Observation = obs
	appended := m.record(ctx, logger, obs)
	recorded = true

	if !obs.Success {
		logger.Warn("falha ao verificar produto",
			slog.String("url", product.URL),
			slog.String("kind", string(obs.ErrorKind)),
			slog.String("error", obs.Error),
		)
		return result
	}

	// o estado de alerta só avança com observações registradas
	if !appended {
		return result
	}

	logger.Info("preço verificado",
		slog.String("title", obs.Title),
		slog.String("price", obs.Price.Decimal.String()),
		slog.String("target", product.TargetPrice.String()),
	)

	prior := m.store.AlertState(product.ID)
	decision := alert.Evaluate(product, obs, prior)
	result.Decision = decision

	if decision == alert.Fire {
		err := m.notifier.Notify(ctx, notify.Message{
			ProductName:  obs.Title,
			CurrentPrice: obs.Price.Decimal,
			TargetPrice:  product.TargetPrice,
			URL:          product.URL,
			Timestamp:    obs.Timestamp,
		})
		if err != nil {
			result.NotifyError = err
			logger.Error("erro ao enviar notificação", slog.Any("error", err))
		} else {
			result.Notified = true
			logger.Info("notificação enviada", slog.String("price", obs.Price.Decimal.String()))
		}
	}

	m.applyDecision(ctx, logger, decision, obs, prior)
	return result
}

// observe busca a página e extrai preço e título
func (m *Monitor) observe(ctx context.Context, product models.Product) models.Observation {
	locators, err := m.registry.PriceLocators(product)
	if err != nil {
		return models.NewFailure(product.ID, models.FailureInternal, err, m.clock.Now())
	}

	markup, err := m.fetcher.Fetch(ctx, product.URL)
	if err != nil {
		return models.NewFailure(product.ID, scraper.FailureKindOf(err), err, m.clock.Now())
	}

	price, err := scraper.ExtractAny(markup, locators)
	if err != nil {
		return models.NewFailure(product.ID, scraper.FailureKindOf(err), err, m.clock.Now())
	}

	title := scraper.ResolveTitle(markup, product, m.registry.TitleLocators(product)...)
	return models.NewSuccess(product.ID, price, title, m.clock.Now())
}

// record grava a observação e informa se ela entrou no histórico
func (m *Monitor) record(ctx context.Context, logger *slog.Logger, obs models.Observation) bool {
	err := m.store.Record(ctx, obs)
	if err == nil {
		return true
	}

	var persistErr *store.PersistenceError
	if errors.As(err, &persistErr) {
		logger.Error("observação mantida apenas em memória", slog.Any("error", err))
		return true
	}
	logger.Error("erro ao registrar observação", slog.Any("error", err))
	return false
}

func (m *Monitor) applyDecision(ctx context.Context, logger *slog.Logger, decision alert.Decision, obs models.Observation, prior *models.AlertState) {
	next := alert.Apply(decision, obs, prior)

	var err error
	switch {
	case next == prior:
		return
	case next == nil:
		err = m.store.ClearAlertState(ctx, obs.ProductID)
	default:
		err = m.store.SetAlertState(ctx, *next)
	}
	if err != nil {
		logger.Error("erro ao gravar estado de alerta", slog.String("decision", decision.String()), slog.Any("error", err))
	}
}

func (m *Monitor) export(logger *slog.Logger, summary RunSummary) []string {
	if m.disableExport {
		return nil
	}

	observations := make([]models.Observation, 0, len(summary.Results))
	for _, r := range summary.Results {
		observations = append(observations, r.Observation)
	}

	paths, err := m.store.Export(m.format, store.Run{
		ID:           summary.RunID,
		StartedAt:    summary.StartedAt,
		Observations: observations,
	})
	if err != nil {
		logger.Error("erro ao exportar dados", slog.Any("error", err))
	}
	for _, path := range paths {
		logger.Info("dados salvos", slog.String("file", path))
	}
	return paths
}
