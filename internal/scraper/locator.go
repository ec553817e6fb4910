package scraper

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/tidwall/gjson"
)

// LocatorKind define como um Locator encontra o texto na página
type LocatorKind int

const (
	LocatorCSS LocatorKind = iota
	LocatorRegex
	LocatorJSONLD
)

const jsonLDSelector = "script[type='application/ld+json']"

var attrNamePattern = regexp.MustCompile(`^[A-Za-z_:][-A-Za-z0-9_:.]*$`)

// Locator descreve onde o preço (ou título) está dentro do HTML.
//
// Formatos aceitos:
//
//	css:<seletor>          texto do primeiro elemento (o prefixo é opcional)
//	css:<seletor>@<attr>   valor de um atributo, ex: meta[itemprop=price]@content
//	regex:<padrão>         primeiro grupo de captura (ou o match inteiro)
//	jsonld:<caminho>       caminho gjson aplicado aos blocos application/ld+json
type Locator struct {
	Kind     LocatorKind
	Selector string
	Attr     string
	Path     string

	// DecimalComma lê o texto no formato brasileiro: "." de milhar e "," decimal
	DecimalComma bool

	raw     string
	matcher goquery.Matcher
	pattern *regexp.Regexp
}

// ParseLocator interpreta e valida um locator da configuração
func ParseLocator(raw string) (Locator, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return Locator{}, fmt.Errorf("locator vazio")
	}

	loc := Locator{raw: value}

	switch {
	case strings.HasPrefix(value, "regex:"):
		pattern := strings.TrimPrefix(value, "regex:")
		re, err := regexp.Compile(pattern)
		if err != nil {
			return Locator{}, fmt.Errorf("regex inválida %q: %w", pattern, err)
		}
		loc.Kind = LocatorRegex
		loc.pattern = re
	case strings.HasPrefix(value, "jsonld:"):
		path := strings.TrimSpace(strings.TrimPrefix(value, "jsonld:"))
		if path == "" {
			return Locator{}, fmt.Errorf("caminho jsonld vazio")
		}
		loc.Kind = LocatorJSONLD
		loc.Path = path
	default:
		selector := strings.TrimSpace(strings.TrimPrefix(value, "css:"))
		if idx := strings.LastIndex(selector, "@"); idx > 0 && attrNamePattern.MatchString(selector[idx+1:]) {
			loc.Attr = selector[idx+1:]
			selector = strings.TrimSpace(selector[:idx])
		}
		if selector == "" {
			return Locator{}, fmt.Errorf("seletor css vazio")
		}
		matcher, err := cascadia.Compile(selector)
		if err != nil {
			return Locator{}, fmt.Errorf("seletor css inválido %q: %w", selector, err)
		}
		loc.Kind = LocatorCSS
		loc.Selector = selector
		loc.matcher = matcher
	}

	return loc, nil
}

// MustParseLocator é ParseLocator que entra em pânico em caso de erro.
// Usado em testes e em locators fixos.
func MustParseLocator(raw string) Locator {
	loc, err := ParseLocator(raw)
	if err != nil {
		panic(err)
	}
	return loc
}

func (l Locator) String() string {
	return l.raw
}

// find retorna o texto bruto apontado pelo locator
func (l Locator) find(markup string) (string, bool) {
	switch l.Kind {
	case LocatorRegex:
		if l.pattern == nil {
			return "", false
		}
		matches := l.pattern.FindStringSubmatch(markup)
		if matches == nil {
			return "", false
		}
		if len(matches) > 1 {
			return matches[1], true
		}
		return matches[0], true
	case LocatorJSONLD:
		return l.findJSONLD(markup)
	default:
		return l.findCSS(markup)
	}
}

func (l Locator) findCSS(markup string) (string, bool) {
	if l.matcher == nil {
		return "", false
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return "", false
	}

	selection := doc.FindMatcher(l.matcher).First()
	if selection.Length() == 0 {
		return "", false
	}

	if l.Attr != "" {
		return selection.Attr(l.Attr)
	}

	return selection.Text(), true
}

func (l Locator) findJSONLD(markup string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return "", false
	}

	var value string
	found := false
	doc.Find(jsonLDSelector).EachWithBreak(func(i int, s *goquery.Selection) bool {
		jsonText := strings.TrimSpace(s.Text())
		if !gjson.Valid(jsonText) {
			return true
		}
		result := gjson.Get(jsonText, l.Path)
		if !result.Exists() {
			return true
		}
		value = result.String()
		found = true
		return false
	})

	return value, found
}
