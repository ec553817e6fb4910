package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"price-tracker/internal/models"
)

// Runner executa uma verificação completa dos produtos
type Runner interface {
	RunOnce(ctx context.Context, products []models.Product) RunSummary
}

// Scheduler repete as verificações até o contexto ser cancelado.
// O intervalo é contado a partir do início da execução anterior; se uma
// execução passar do intervalo, a próxima começa assim que ela terminar.
type Scheduler struct {
	runner   Runner
	products []models.Product
	interval time.Duration
	clock    Clock
	logger   *slog.Logger

	// Jitter ajusta a espera antes da próxima execução (nil = sem jitter)
	Jitter func(wait time.Duration) time.Duration

	// uma execução por vez, inclusive via RunNow
	mu sync.Mutex
}

func NewScheduler(runner Runner, products []models.Product, interval time.Duration, clock Clock, logger *slog.Logger) *Scheduler {
	if clock == nil {
		clock = RealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		runner:   runner,
		products: products,
		interval: interval,
		clock:    clock,
		logger:   logger,
	}
}

// Run executa imediatamente e depois a cada intervalo.
// Retorna nil quando o contexto é cancelado; a execução em andamento termina antes.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("monitor iniciado", slog.Duration("interval", s.interval))

	for {
		start := s.clock.Now()
		s.runSafely(context.WithoutCancel(ctx))

		if ctx.Err() != nil {
			s.logger.Info("monitor encerrado")
			return nil
		}

		wait := s.interval - s.clock.Now().Sub(start)
		if wait < 0 {
			wait = 0
		}
		if s.Jitter != nil {
			wait = s.Jitter(wait)
		}
		s.logger.Info("próxima verificação agendada", slog.Duration("in", wait))

		select {
		case <-ctx.Done():
			s.logger.Info("monitor encerrado")
			return nil
		case <-s.clock.After(wait):
		}
	}
}

// RunNow executa uma verificação imediatamente, aguardando a execução em andamento (se houver)
func (s *Scheduler) RunNow(ctx context.Context) (RunSummary, bool) {
	return s.runSafely(ctx)
}

func (s *Scheduler) runSafely(ctx context.Context) (summary RunSummary, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("pânico durante a verificação", slog.Any("panic", r))
			ok = false
		}
	}()

	return s.runner.RunOnce(ctx, s.products), true
}
