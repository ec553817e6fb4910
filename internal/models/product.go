package models

import (
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product representa um produto sendo monitorado
type Product struct {
	ID           string
	URL          string
	Name         string
	PriceLocator string
	TitleLocator string // Opcional
	TargetPrice  decimal.Decimal
}

// DisplayName retorna o nome configurado ou a URL quando não há nome
func (p Product) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.URL
}

// ProductID gera um ID estável a partir da URL do produto.
// O fragmento (#...) é descartado e o host normalizado, então variações
// triviais da mesma URL resultam no mesmo produto.
func ProductID(rawURL string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(CleanURL(rawURL))).String()
}

// CleanURL remove o fragmento e normaliza o host da URL
func CleanURL(rawURL string) string {
	trimmed := strings.TrimSpace(rawURL)
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return strings.Split(trimmed, "#")[0]
	}
	parsed.Fragment = ""
	parsed.RawFragment = ""
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Scheme = strings.ToLower(parsed.Scheme)
	return parsed.String()
}
