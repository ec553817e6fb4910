package scraper

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"price-tracker/internal/models"

	"github.com/shopspring/decimal"
)

// Limite de dígitos na parte inteira; acima disso o valor é tratado como overflow
const maxIntegerDigits = 15

const unknownProductTitle = "Unknown Product"

// Grupos de três dígitos separados por espaço ("1 234,56") fazem parte do número
var numericToken = regexp.MustCompile(`\d[\d.,']*(?: \d{3}\b[\d.,']*)*`)

var groupSeparators = strings.NewReplacer("'", "", " ", "")

var spaceReplacer = strings.NewReplacer(
	"\u00a0", " ",
	"\u202f", " ",
	"\u2009", " ",
)

// ExtractError é a falha tipada da extração de preço
type ExtractError struct {
	Kind    models.FailureKind
	Locator string
	Text    string
}

func (e *ExtractError) Error() string {
	switch e.Kind {
	case models.FailureElementNotFound:
		return fmt.Sprintf("elemento não encontrado com o locator %q", e.Locator)
	case models.FailureNoNumericContent:
		return fmt.Sprintf("nenhum valor numérico em %q", e.Text)
	default:
		return fmt.Sprintf("valor de preço inválido em %q", e.Text)
	}
}

// Extract localiza o texto do preço no HTML e o converte em decimal.
// Não faz I/O; toda falha é devolvida como *ExtractError.
func Extract(markup string, locator Locator) (price decimal.Decimal, err error) {
	defer func() {
		if r := recover(); r != nil {
			price = decimal.Zero
			err = &ExtractError{Kind: models.FailureInvalidValue, Locator: locator.String(), Text: fmt.Sprint(r)}
		}
	}()

	text, ok := locator.find(markup)
	if !ok {
		return decimal.Zero, &ExtractError{Kind: models.FailureElementNotFound, Locator: locator.String()}
	}

	price, kind := parsePrice(text, locator.DecimalComma)
	if kind != "" {
		return decimal.Zero, &ExtractError{Kind: kind, Locator: locator.String(), Text: strings.TrimSpace(text)}
	}

	return price, nil
}

// ExtractAny tenta os locators em ordem e retorna o primeiro preço válido.
// Se todos falharem, prefere um erro de conteúdo a "elemento não encontrado".
func ExtractAny(markup string, locators []Locator) (decimal.Decimal, error) {
	if len(locators) == 0 {
		return decimal.Zero, &ExtractError{Kind: models.FailureElementNotFound}
	}

	var firstErr, contentErr error
	for _, loc := range locators {
		price, err := Extract(markup, loc)
		if err == nil {
			return price, nil
		}
		if firstErr == nil {
			firstErr = err
		}
		var extractErr *ExtractError
		if errors.As(err, &extractErr) && extractErr.Kind != models.FailureElementNotFound && contentErr == nil {
			contentErr = err
		}
	}

	if contentErr != nil {
		return decimal.Zero, contentErr
	}
	return decimal.Zero, firstErr
}

// ExtractTitle retorna o título do produto, se o locator encontrar algum texto
func ExtractTitle(markup string, locator Locator) (string, bool) {
	text, ok := locator.find(markup)
	if !ok {
		return "", false
	}

	title := strings.Join(strings.Fields(spaceReplacer.Replace(text)), " ")
	return title, title != ""
}

// ResolveTitle escolhe o título extraído (locator do produto, depois os fallbacks),
// o nome configurado ou um padrão
func ResolveTitle(markup string, product models.Product, fallbacks ...Locator) string {
	locators := fallbacks
	if product.TitleLocator != "" {
		if loc, err := ParseLocator(product.TitleLocator); err == nil {
			locators = append([]Locator{loc}, fallbacks...)
		}
	}
	for _, loc := range locators {
		if title, ok := ExtractTitle(markup, loc); ok {
			return title
		}
	}
	if product.Name != "" {
		return product.Name
	}
	return unknownProductTitle
}

// ParsePrice normaliza um texto de preço ("₹1,234", "$1,234.00", "R$ 1.234,56").
// Retorna o tipo de falha quando não há número ou o valor é inválido.
func ParsePrice(text string) (decimal.Decimal, models.FailureKind) {
	return parsePrice(text, false)
}

// parsePrice com decimalComma trata "." sempre como milhar e "," como decimal
func parsePrice(text string, decimalComma bool) (decimal.Decimal, models.FailureKind) {
	text = spaceReplacer.Replace(text)

	loc := numericToken.FindStringIndex(text)
	if loc == nil {
		return decimal.Zero, models.FailureNoNumericContent
	}

	if isNegative(text[:loc[0]]) {
		return decimal.Zero, models.FailureInvalidValue
	}

	token := groupSeparators.Replace(text[loc[0]:loc[1]])
	token = strings.TrimRight(token, ".,")

	var normalized string
	if decimalComma {
		normalized = strings.Replace(strings.ReplaceAll(token, ".", ""), ",", ".", 1)
	} else {
		normalized = normalizeSeparators(token)
	}

	intPart := normalized
	if idx := strings.IndexByte(normalized, '.'); idx >= 0 {
		intPart = normalized[:idx]
	}
	if len(strings.TrimLeft(intPart, "0")) > maxIntegerDigits {
		return decimal.Zero, models.FailureInvalidValue
	}

	price, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Zero, models.FailureInvalidValue
	}
	if price.IsNegative() {
		return decimal.Zero, models.FailureInvalidValue
	}

	return price, ""
}

// isNegative verifica se há um sinal de menos colado ao número,
// permitindo apenas símbolos de moeda entre eles ("-$5", "-5")
func isNegative(prefix string) bool {
	trimmed := strings.TrimRightFunc(prefix, func(r rune) bool {
		return unicode.Is(unicode.Sc, r)
	})
	return strings.HasSuffix(trimmed, "-") || strings.HasSuffix(trimmed, "−")
}

// normalizeSeparators decide qual separador é o decimal.
// Com vírgula e ponto, o último é o decimal. Só vírgulas: milhar, exceto
// uma única vírgula seguida de exatamente dois dígitos ("12,50").
// Só pontos: mais de um indica milhar, um só é decimal.
func normalizeSeparators(token string) string {
	lastDot := strings.LastIndexByte(token, '.')
	lastComma := strings.LastIndexByte(token, ',')

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			token = strings.ReplaceAll(token, ".", "")
			return strings.Replace(token, ",", ".", 1)
		}
		return strings.ReplaceAll(token, ",", "")
	case lastComma >= 0:
		if strings.Count(token, ",") == 1 && len(token)-lastComma-1 == 2 {
			return strings.Replace(token, ",", ".", 1)
		}
		return strings.ReplaceAll(token, ",", "")
	case lastDot >= 0:
		if strings.Count(token, ".") > 1 {
			return strings.ReplaceAll(token, ".", "")
		}
		return token
	}

	return token
}
