package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"price-tracker/internal/models"
)

var ErrOutOfOrder = errors.New("observação fora de ordem para o produto")

// Backend é a persistência durável usada pelo Store (SQLite em produção)
type Backend interface {
	InsertObservation(ctx context.Context, obs models.Observation) error
	LatestSuccessful(ctx context.Context) ([]models.Observation, error)
	History(ctx context.Context, productID string, limit int) ([]models.Observation, error)
	AlertStates(ctx context.Context) ([]models.AlertState, error)
	SaveAlertState(ctx context.Context, state models.AlertState) error
	DeleteAlertState(ctx context.Context, productID string) error
}

// PersistenceError indica que a gravação durável falhou.
// O dado em memória continua válido.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("erro de persistência (%s): %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Store guarda as observações da execução e o último preço conhecido de cada produto
type Store struct {
	mu            sync.RWMutex
	products      map[string]models.Product
	observations  []models.Observation
	lastTimestamp map[string]time.Time
	lastSuccess   map[string]models.Observation
	alerts        map[string]models.AlertState

	backend Backend
	dataDir string
}

// New cria o Store. backend pode ser nil (somente memória).
func New(products []models.Product, backend Backend, dataDir string) *Store {
	catalog := make(map[string]models.Product, len(products))
	for _, p := range products {
		catalog[p.ID] = p
	}

	return &Store{
		products:      catalog,
		lastTimestamp: make(map[string]time.Time),
		lastSuccess:   make(map[string]models.Observation),
		alerts:        make(map[string]models.AlertState),
		backend:       backend,
		dataDir:       dataDir,
	}
}

// Load carrega do backend os últimos preços e estados de alerta
func (s *Store) Load(ctx context.Context) error {
	if s.backend == nil {
		return nil
	}

	latest, err := s.backend.LatestSuccessful(ctx)
	if err != nil {
		return &PersistenceError{Op: "load observations", Err: err}
	}

	states, err := s.backend.AlertStates(ctx)
	if err != nil {
		return &PersistenceError{Op: "load alert states", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, obs := range latest {
		s.lastSuccess[obs.ProductID] = obs
		if obs.Timestamp.After(s.lastTimestamp[obs.ProductID]) {
			s.lastTimestamp[obs.ProductID] = obs.Timestamp
		}
	}
	for _, state := range states {
		s.alerts[state.ProductID] = state
	}

	return nil
}

// Record adiciona a observação. Um erro de persistência não desfaz o registro em memória.
func (s *Store) Record(ctx context.Context, obs models.Observation) error {
	s.mu.Lock()
	if last, ok := s.lastTimestamp[obs.ProductID]; ok && obs.Timestamp.Before(last) {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrOutOfOrder, obs.ProductID)
	}

	s.observations = append(s.observations, obs)
	s.lastTimestamp[obs.ProductID] = obs.Timestamp
	if obs.Success {
		s.lastSuccess[obs.ProductID] = obs
	}
	s.mu.Unlock()

	if s.backend == nil {
		return nil
	}

	if err := s.backend.InsertObservation(ctx, obs); err != nil {
		return &PersistenceError{Op: "insert observation", Err: err}
	}
	return nil
}

// LastSuccessful retorna a última observação bem-sucedida do produto
func (s *Store) LastSuccessful(productID string) (models.Observation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obs, ok := s.lastSuccess[productID]
	return obs, ok
}

// Observations retorna uma cópia de todas as observações registradas nesta execução do processo
func (s *Store) Observations() []models.Observation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Observation, len(s.observations))
	copy(out, s.observations)
	return out
}

// History retorna até limit observações recentes do produto
func (s *Store) History(ctx context.Context, productID string, limit int) ([]models.Observation, error) {
	if s.backend != nil {
		return s.backend.History(ctx, productID, limit)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var history []models.Observation
	for i := len(s.observations) - 1; i >= 0 && len(history) < limit; i-- {
		if s.observations[i].ProductID == productID {
			history = append([]models.Observation{s.observations[i]}, history...)
		}
	}
	return history, nil
}

// AlertState retorna uma cópia do estado de alerta (nil = armado)
func (s *Store) AlertState(productID string) *models.AlertState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.alerts[productID]
	if !ok {
		return nil
	}
	return &state
}

// SetAlertState grava o estado de alerta do produto (estado "alertado")
func (s *Store) SetAlertState(ctx context.Context, state models.AlertState) error {
	s.mu.Lock()
	s.alerts[state.ProductID] = state
	s.mu.Unlock()

	if s.backend == nil {
		return nil
	}

	if err := s.backend.SaveAlertState(ctx, state); err != nil {
		return &PersistenceError{Op: "save alert state", Err: err}
	}
	return nil
}

// ClearAlertState remove o estado de alerta; o produto volta a ficar armado
func (s *Store) ClearAlertState(ctx context.Context, productID string) error {
	s.mu.Lock()
	_, existed := s.alerts[productID]
	delete(s.alerts, productID)
	s.mu.Unlock()

	if s.backend == nil || !existed {
		return nil
	}

	if err := s.backend.DeleteAlertState(ctx, productID); err != nil {
		return &PersistenceError{Op: "delete alert state", Err: err}
	}
	return nil
}
