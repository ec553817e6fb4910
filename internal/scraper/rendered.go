package scraper

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"price-tracker/internal/models"

	chromedpUndetected "github.com/Davincible/chromedp-undetected"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
)

// RenderedFetcher busca o HTML depois de renderizar a página num Chrome headless.
// O navegador é criado uma vez e reaproveitado; cada busca usa uma aba nova.
type RenderedFetcher struct {
	browserCtx context.Context
	cancel     []context.CancelFunc
	timeout    time.Duration
	userAgent  string
}

// NewRenderedFetcher inicia o navegador
func NewRenderedFetcher(opts Options) (*RenderedFetcher, error) {
	f := &RenderedFetcher{
		timeout:   opts.Timeout,
		userAgent: opts.UserAgent,
	}

	if opts.Undetected {
		var configOpts []chromedpUndetected.Option
		if opts.Headless {
			configOpts = append(configOpts, chromedpUndetected.WithHeadless())
		}
		instance, cancel, err := chromedpUndetected.New(chromedpUndetected.NewConfig(configOpts...))
		if err != nil {
			return nil, fmt.Errorf("erro ao iniciar navegador: %w", err)
		}
		f.browserCtx = instance
		f.cancel = append(f.cancel, cancel)
	} else {
		allocatorOptions := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", opts.Headless),
			chromedp.UserAgent(opts.UserAgent),
		)
		allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocatorOptions...)
		browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
		f.browserCtx = browserCtx
		f.cancel = append(f.cancel, cancelBrowser, cancelAlloc)
	}

	// Sobe o navegador agora para falhar cedo se o Chrome não existir
	if err := chromedp.Run(f.browserCtx); err != nil {
		f.Close()
		return nil, fmt.Errorf("erro ao iniciar navegador: %w", err)
	}

	return f, nil
}

// Fetch navega até a URL e devolve o HTML renderizado
func (f *RenderedFetcher) Fetch(ctx context.Context, url string) (string, error) {
	tabCtx, cancelTab := chromedp.NewContext(f.browserCtx)
	defer cancelTab()

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, f.timeout)
	defer cancelTimeout()

	stop := context.AfterFunc(ctx, cancelTimeout)
	defer stop()

	if err := chromedp.Run(tabCtx, emulation.SetUserAgentOverride(f.userAgent)); err != nil {
		return "", classifyError(url, err)
	}

	response, err := chromedp.RunResponse(tabCtx, chromedp.Navigate(url))
	if err != nil {
		if ctx.Err() != nil {
			return "", classifyError(url, ctx.Err())
		}
		return "", classifyError(url, err)
	}

	if response != nil && response.Status >= http.StatusBadRequest {
		return "", &FetchError{Kind: models.FailureHTTPStatus, URL: url, StatusCode: int(response.Status)}
	}

	var html string
	if err := chromedp.Run(tabCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", classifyError(url, err)
	}

	return html, nil
}

// Close encerra o navegador
func (f *RenderedFetcher) Close() error {
	for _, cancel := range f.cancel {
		cancel()
	}
	f.cancel = nil
	return nil
}
