package scraper

// MercadoLivre usa primeiro os dados estruturados da página (meta e JSON-LD),
// que trazem o preço com ponto decimal, e só depois o texto visível
var MercadoLivre = Preset{
	Name:  "Mercado Livre",
	Hosts: []string{"mercadolivre.com.br", "mercadolibre.com"},
	PriceLocators: []string{
		"css:meta[itemprop='price']@content",
		"jsonld:offers.price",
		"jsonld:offers.0.price",
		"css:meta[property='product:price:amount']@content",
		"css:[data-testid='price']@content",
		"css:.ui-pdp-price__second-line .andes-money-amount__fraction",
		"css:.ui-pdp-price__first-line .andes-money-amount__fraction",
		"css:.price-tag-fraction",
	},
	TitleLocators: []string{
		"css:h1.ui-pdp-title",
		"css:h1[data-testid='title']",
		"jsonld:name",
	},
	DecimalComma: true,
}
