// Package status expõe o estado do monitor por HTTP (somente leitura).
package status

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"price-tracker/internal/models"
	"price-tracker/internal/monitor"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 1000
)

// Summaries fornece o resumo da última execução
type Summaries interface {
	LastSummary() (monitor.RunSummary, bool)
}

// Observations dá acesso de leitura ao Store
type Observations interface {
	LastSuccessful(productID string) (models.Observation, bool)
	AlertState(productID string) *models.AlertState
	History(ctx context.Context, productID string, limit int) ([]models.Observation, error)
}

type Handler struct {
	summaries    Summaries
	observations Observations
	products     []models.Product
}

func NewHandler(summaries Summaries, observations Observations, products []models.Product) *Handler {
	return &Handler{summaries: summaries, observations: observations, products: products}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", h.handleHealth)
	r.Get("/status", h.handleStatus)
	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.handleProducts)
		r.Get("/{id}/observations", h.handleObservations)
	})
}

// Router monta o roteador com os middlewares padrão
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))
	h.RegisterRoutes(r)
	return r
}

type runResponse struct {
	RunID          string    `json:"run_id"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	Scraped        int       `json:"scraped"`
	Failed         int       `json:"failed"`
	AlertsSent     int       `json:"alerts_sent"`
	NotifyFailures int       `json:"notify_failures"`
	Exported       []string  `json:"exported"`
}

type observationResponse struct {
	Price     *decimal.Decimal `json:"price,omitempty"`
	Title     string           `json:"title,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Success   bool             `json:"success"`
	ErrorKind string           `json:"error_kind,omitempty"`
	Error     string           `json:"error,omitempty"`
}

type productResponse struct {
	ID               string               `json:"id"`
	Name             string               `json:"name"`
	URL              string               `json:"url"`
	TargetPrice      decimal.Decimal      `json:"target_price"`
	LastObservation  *observationResponse `json:"last_observation,omitempty"`
	Alerted          bool                 `json:"alerted"`
	LastAlertedPrice *decimal.Decimal     `json:"last_alerted_price,omitempty"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	summary, ok := h.summaries.LastSummary()
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"last_run": nil})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"last_run": runResponse{
		RunID:          summary.RunID,
		StartedAt:      summary.StartedAt,
		FinishedAt:     summary.FinishedAt,
		Scraped:        summary.Scraped,
		Failed:         summary.Failed,
		AlertsSent:     summary.AlertsSent,
		NotifyFailures: summary.NotifyFailures,
		Exported:       summary.Exported,
	}})
}

func (h *Handler) handleProducts(w http.ResponseWriter, r *http.Request) {
	out := make([]productResponse, 0, len(h.products))
	for _, p := range h.products {
		item := productResponse{
			ID:          p.ID,
			Name:        p.DisplayName(),
			URL:         p.URL,
			TargetPrice: p.TargetPrice,
		}
		if obs, ok := h.observations.LastSuccessful(p.ID); ok {
			resp := toObservationResponse(obs)
			item.LastObservation = &resp
		}
		if state := h.observations.AlertState(p.ID); state != nil {
			item.Alerted = true
			if state.LastAlertedPrice.Valid {
				price := state.LastAlertedPrice.Decimal
				item.LastAlertedPrice = &price
			}
		}
		out = append(out, item)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleObservations(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.known(id) {
		writeError(w, http.StatusNotFound, "produto não encontrado")
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit inválido")
			return
		}
		limit = min(parsed, maxHistoryLimit)
	}

	history, err := h.observations.History(r.Context(), id, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]observationResponse, 0, len(history))
	for _, obs := range history {
		out = append(out, toObservationResponse(obs))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) known(id string) bool {
	for _, p := range h.products {
		if p.ID == id {
			return true
		}
	}
	return false
}

func toObservationResponse(obs models.Observation) observationResponse {
	resp := observationResponse{
		Title:     obs.Title,
		Timestamp: obs.Timestamp,
		Success:   obs.Success,
		ErrorKind: string(obs.ErrorKind),
		Error:     obs.Error,
	}
	if obs.Price.Valid {
		price := obs.Price.Decimal
		resp.Price = &price
	}
	return resp
}

// Serve atende em addr até o contexto ser cancelado
func Serve(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("status disponível", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
