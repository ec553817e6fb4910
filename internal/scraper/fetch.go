package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"price-tracker/internal/models"
)

// Mesmo User-Agent usado nas requisições do monitor original
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

const DefaultTimeout = 10 * time.Second

const (
	KindStatic   = "static"
	KindRendered = "rendered"
)

// Fetcher busca o HTML de uma página.
// Não faz retentativas; isso é decisão de quem chama.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
	Close() error
}

// Options configura a criação de um Fetcher
type Options struct {
	Kind       string
	Timeout    time.Duration
	UserAgent  string
	Headless   bool
	Undetected bool
}

// New cria o Fetcher escolhido na configuração
func New(opts Options) (Fetcher, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}

	switch strings.ToLower(opts.Kind) {
	case "", KindStatic:
		return NewStaticFetcher(opts.Timeout, opts.UserAgent), nil
	case KindRendered:
		return NewRenderedFetcher(opts)
	default:
		return nil, fmt.Errorf("tipo de fetcher desconhecido: %q", opts.Kind)
	}
}

// FetchError é a falha tipada da busca de uma página
type FetchError struct {
	Kind       models.FailureKind
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case models.FailureTimeout:
		return fmt.Sprintf("timeout ao buscar %s", e.URL)
	case models.FailureHTTPStatus:
		return fmt.Sprintf("status code: %d (%s)", e.StatusCode, e.URL)
	default:
		return fmt.Sprintf("erro de conexão ao buscar %s: %v", e.URL, e.Err)
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// classifyError converte erros de transporte em *FetchError
func classifyError(url string, err error) *FetchError {
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &FetchError{Kind: models.FailureTimeout, URL: url, Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &FetchError{Kind: models.FailureTimeout, URL: url, Err: err}
	}

	return &FetchError{Kind: models.FailureConnection, URL: url, Err: err}
}

// FailureKindOf retorna o tipo de falha de um erro de busca ou extração
func FailureKindOf(err error) models.FailureKind {
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.Kind
	}

	var extractErr *ExtractError
	if errors.As(err, &extractErr) {
		return extractErr.Kind
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return models.FailureTimeout
	}

	return models.FailureInternal
}
