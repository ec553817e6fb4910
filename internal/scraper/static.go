package scraper

import (
	"context"
	"net/http"
	"time"

	"price-tracker/internal/models"

	"github.com/gocolly/colly/v2"
)

// StaticFetcher busca o HTML com uma requisição HTTP simples, sem executar JavaScript.
// O transporte é compartilhado entre as buscas para reaproveitar conexões.
type StaticFetcher struct {
	collector *colly.Collector
	transport *http.Transport
}

// NewStaticFetcher cria um fetcher estático baseado no colly
func NewStaticFetcher(timeout time.Duration, userAgent string) *StaticFetcher {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	collector := colly.NewCollector(
		colly.UserAgent(userAgent),
		colly.AllowURLRevisit(),
	)
	collector.WithTransport(transport)
	collector.SetRequestTimeout(timeout)
	collector.DisableCookies()

	return &StaticFetcher{
		collector: collector,
		transport: transport,
	}
}

// Fetch busca a página e devolve o HTML
func (f *StaticFetcher) Fetch(ctx context.Context, url string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", classifyError(url, err)
	}

	type result struct {
		body string
		err  error
	}

	done := make(chan result, 1)

	// colly não aceita context; o timeout da requisição limita a goroutine
	go func() {
		body, err := f.visit(url)
		done <- result{body: body, err: err}
	}()

	select {
	case res := <-done:
		return res.body, res.err
	case <-ctx.Done():
		return "", classifyError(url, ctx.Err())
	}
}

func (f *StaticFetcher) visit(url string) (string, error) {
	c := f.collector.Clone()

	var body []byte
	var statusCode int
	var visitErr error

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9,pt-BR;q=0.8")
	})

	c.OnResponse(func(r *colly.Response) {
		statusCode = r.StatusCode
		body = r.Body
	})

	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			statusCode = r.StatusCode
		}
		visitErr = err
	})

	err := c.Visit(url)
	if visitErr == nil {
		visitErr = err
	}

	// colly trata qualquer status fora de 2xx como erro, mas com o código preenchido
	if statusCode >= http.StatusMultipleChoices || (visitErr != nil && statusCode != 0) {
		return "", &FetchError{Kind: models.FailureHTTPStatus, URL: url, StatusCode: statusCode, Err: visitErr}
	}

	if visitErr != nil {
		return "", classifyError(url, visitErr)
	}

	return string(body), nil
}

// Close libera as conexões ociosas do transporte
func (f *StaticFetcher) Close() error {
	f.transport.CloseIdleConnections()
	return nil
}
