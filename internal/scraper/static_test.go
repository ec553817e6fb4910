package scraper_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"price-tracker/internal/models"
	"price-tracker/internal/scraper"
)

func newTestServer() *httptest.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/product", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body><span class="price">` + r.Header.Get("User-Agent") + `</span></body></html>`))
	})

	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.Write([]byte(`<html></html>`))
	})

	return httptest.NewServer(mux)
}

func TestStaticFetcherSetsUserAgent(t *testing.T) {
	ts := newTestServer()
	defer ts.Close()

	fetcher := scraper.NewStaticFetcher(2*time.Second, "price-tracker-test/1.0")
	defer fetcher.Close()

	html, err := fetcher.Fetch(context.Background(), ts.URL+"/product")
	if err != nil {
		t.Fatal(err)
	}

	title, ok := scraper.ExtractTitle(html, scraper.MustParseLocator(".price"))
	if !ok || title != "price-tracker-test/1.0" {
		t.Errorf("Invalid result, got: %q, instead of: %q.", title, "price-tracker-test/1.0")
	}
}

func TestStaticFetcherReportsHTTPStatus(t *testing.T) {
	ts := newTestServer()
	defer ts.Close()

	fetcher := scraper.NewStaticFetcher(2*time.Second, scraper.DefaultUserAgent)
	defer fetcher.Close()

	_, err := fetcher.Fetch(context.Background(), ts.URL+"/missing")

	var fetchErr *scraper.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected *FetchError, got: %v", err)
	}
	if fetchErr.Kind != models.FailureHTTPStatus || fetchErr.StatusCode != http.StatusNotFound {
		t.Errorf("Invalid result, got: %s/%d, instead of: %s/%d.", fetchErr.Kind, fetchErr.StatusCode, models.FailureHTTPStatus, http.StatusNotFound)
	}
}

func TestStaticFetcherTimeout(t *testing.T) {
	ts := newTestServer()
	defer ts.Close()

	fetcher := scraper.NewStaticFetcher(100*time.Millisecond, scraper.DefaultUserAgent)
	defer fetcher.Close()

	_, err := fetcher.Fetch(context.Background(), ts.URL+"/slow")
	if kind := scraper.FailureKindOf(err); kind != models.FailureTimeout {
		t.Errorf("Invalid result, got: %s (%v), instead of: %s.", kind, err, models.FailureTimeout)
	}
}

func TestStaticFetcherConnectionError(t *testing.T) {
	ts := newTestServer()
	url := ts.URL + "/product"
	ts.Close()

	fetcher := scraper.NewStaticFetcher(time.Second, scraper.DefaultUserAgent)
	defer fetcher.Close()

	_, err := fetcher.Fetch(context.Background(), url)
	if kind := scraper.FailureKindOf(err); kind != models.FailureConnection {
		t.Errorf("Invalid result, got: %s (%v), instead of: %s.", kind, err, models.FailureConnection)
	}
}

func TestNewRejectsUnknownKind(t *testing.T) {
	if _, err := scraper.New(scraper.Options{Kind: "telepathy"}); err == nil {
		t.Errorf("expected error for unknown fetcher kind")
	}
}
