package scraper

import (
	"fmt"
	"net/url"
	"strings"

	"price-tracker/internal/models"
)

// Preset reúne os locators conhecidos de uma loja.
// É usado quando o produto não define price_locator/title_locator.
type Preset struct {
	Name          string
	Hosts         []string // domínio ou sufixo de domínio
	PriceLocators []string // em ordem de preferência
	TitleLocators []string

	// DecimalComma vale para os locators de texto visível (css sem atributo);
	// meta e JSON-LD já trazem o preço com ponto decimal
	DecimalComma bool
}

// CanHandle verifica se a URL pertence a um dos domínios da loja
func (p Preset) CanHandle(rawURL string) bool {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return false
	}

	host := strings.ToLower(u.Hostname())
	for _, h := range p.Hosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// Registry mantém um registro dos presets disponíveis
type Registry struct {
	presets []Preset
}

// NewRegistry cria o registro com os presets embutidos e os extras informados
func NewRegistry(extra ...Preset) *Registry {
	presets := append([]Preset{MercadoLivre}, extra...)
	return &Registry{presets: presets}
}

// FindPreset encontra o preset apropriado para uma URL
func (r *Registry) FindPreset(rawURL string) (Preset, bool) {
	for _, p := range r.presets {
		if p.CanHandle(rawURL) {
			return p, true
		}
	}
	return Preset{}, false
}

// PriceLocators retorna o locator do produto ou, na falta dele, os do preset da loja
func (r *Registry) PriceLocators(product models.Product) ([]Locator, error) {
	if product.PriceLocator != "" {
		loc, err := ParseLocator(product.PriceLocator)
		if err != nil {
			return nil, err
		}
		return []Locator{loc}, nil
	}

	preset, ok := r.FindPreset(product.URL)
	if !ok {
		return nil, fmt.Errorf("nenhum price_locator para %s", product.URL)
	}
	locators, err := parseAll(preset.PriceLocators)
	if err != nil {
		return nil, err
	}
	for i := range locators {
		if locators[i].Kind == LocatorCSS && locators[i].Attr == "" {
			locators[i].DecimalComma = preset.DecimalComma
		}
	}
	return locators, nil
}

// TitleLocators retorna os locators de título do preset (vazio se não houver)
func (r *Registry) TitleLocators(product models.Product) []Locator {
	preset, ok := r.FindPreset(product.URL)
	if !ok {
		return nil
	}
	locators, _ := parseAll(preset.TitleLocators)
	return locators
}

func parseAll(raw []string) ([]Locator, error) {
	locators := make([]Locator, 0, len(raw))
	for _, value := range raw {
		loc, err := ParseLocator(value)
		if err != nil {
			return nil, err
		}
		locators = append(locators, loc)
	}
	return locators, nil
}
