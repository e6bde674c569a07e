package extract

import (
	"strings"

	"golang.org/x/text/language"
)

// Locale carries the number-formatting and currency conventions used for
// every numeric parse in one extraction pass.
type Locale struct {
	Tag            string `json:"tag"`
	DecimalSep     rune   `json:"-"`
	GroupSep       rune   `json:"-"`
	CurrencySymbol string `json:"currency_symbol"`
	CurrencyCode   string `json:"currency_code"`
	Name           string `json:"name"`
}

// locales is the fixed set of supported locales, keyed by lowercased tag.
var locales = map[string]Locale{
	"en-us": {Tag: "en-US", DecimalSep: '.', GroupSep: ',', CurrencySymbol: "$", CurrencyCode: "USD", Name: "English (United States)"},
	"en-gb": {Tag: "en-GB", DecimalSep: '.', GroupSep: ',', CurrencySymbol: "£", CurrencyCode: "GBP", Name: "English (United Kingdom)"},
	"en-ca": {Tag: "en-CA", DecimalSep: '.', GroupSep: ',', CurrencySymbol: "$", CurrencyCode: "CAD", Name: "English (Canada)"},
	"en-au": {Tag: "en-AU", DecimalSep: '.', GroupSep: ',', CurrencySymbol: "$", CurrencyCode: "AUD", Name: "English (Australia)"},
	"en-in": {Tag: "en-IN", DecimalSep: '.', GroupSep: ',', CurrencySymbol: "₹", CurrencyCode: "INR", Name: "English (India)"},
	"de-de": {Tag: "de-DE", DecimalSep: ',', GroupSep: '.', CurrencySymbol: "€", CurrencyCode: "EUR", Name: "German (Germany)"},
	"de-ch": {Tag: "de-CH", DecimalSep: '.', GroupSep: '\'', CurrencySymbol: "CHF", CurrencyCode: "CHF", Name: "German (Switzerland)"},
	"fr-fr": {Tag: "fr-FR", DecimalSep: ',', GroupSep: ' ', CurrencySymbol: "€", CurrencyCode: "EUR", Name: "French (France)"},
	"ja-jp": {Tag: "ja-JP", DecimalSep: '.', GroupSep: ',', CurrencySymbol: "¥", CurrencyCode: "JPY", Name: "Japanese (Japan)"},
	"ru-ru": {Tag: "ru-RU", DecimalSep: ',', GroupSep: ' ', CurrencySymbol: "₽", CurrencyCode: "RUB", Name: "Russian (Russia)"},
	"pl-pl": {Tag: "pl-PL", DecimalSep: ',', GroupSep: ' ', CurrencySymbol: "zł", CurrencyCode: "PLN", Name: "Polish (Poland)"},
	"sv-se": {Tag: "sv-SE", DecimalSep: ',', GroupSep: ' ', CurrencySymbol: "kr", CurrencyCode: "SEK", Name: "Swedish (Sweden)"},
	"cs-cz": {Tag: "cs-CZ", DecimalSep: ',', GroupSep: ' ', CurrencySymbol: "Kč", CurrencyCode: "CZK", Name: "Czech (Czechia)"},
	"pt-br": {Tag: "pt-BR", DecimalSep: ',', GroupSep: '.', CurrencySymbol: "R$", CurrencyCode: "BRL", Name: "Portuguese (Brazil)"},
	"tr-tr": {Tag: "tr-TR", DecimalSep: ',', GroupSep: '.', CurrencySymbol: "₺", CurrencyCode: "TRY", Name: "Turkish (Türkiye)"},
}

// currencyToken maps a currency marker to its locale. The table is ordered
// longest-token-first so ISO codes and multi-rune symbols win over "$".
type currencyToken struct {
	Token string
	Tag   string
}

var currencyTokens = []currencyToken{
	{"USD", "en-US"}, {"EUR", "de-DE"}, {"GBP", "en-GB"}, {"JPY", "ja-JP"},
	{"RUB", "ru-RU"}, {"PLN", "pl-PL"}, {"SEK", "sv-SE"}, {"CZK", "cs-CZ"},
	{"INR", "en-IN"}, {"BRL", "pt-BR"}, {"TRY", "tr-TR"}, {"CAD", "en-CA"},
	{"AUD", "en-AU"}, {"CHF", "de-CH"},
	{"R$", "pt-BR"}, {"zł", "pl-PL"}, {"Kč", "cs-CZ"}, {"kr", "sv-SE"},
	{"€", "de-DE"}, {"£", "en-GB"}, {"¥", "ja-JP"}, {"₹", "en-IN"},
	{"₽", "ru-RU"}, {"₺", "tr-TR"}, {"$", "en-US"},
}

// matcherOrder fixes the language matcher's tag list, en-US first as the
// default.
var matcherOrder = []string{
	"en-us", "en-gb", "en-ca", "en-au", "en-in", "de-de", "de-ch",
	"fr-fr", "ja-jp", "ru-ru", "pl-pl", "sv-se", "cs-cz", "pt-br", "tr-tr",
}

// langMatcher resolves bare language declarations ("en", "de-AT") to the
// closest supported locale.
var langMatcher = func() language.Matcher {
	tags := make([]language.Tag, 0, len(matcherOrder))
	for _, tag := range matcherOrder {
		tags = append(tags, language.MustParse(locales[tag].Tag))
	}
	return language.NewMatcher(tags)
}()

// LocaleByTag looks up a supported locale by its identifier,
// case-insensitively.
func LocaleByTag(tag string) (Locale, bool) {
	loc, ok := locales[strings.ToLower(strings.TrimSpace(tag))]
	return loc, ok
}

// LocaleByLanguage resolves a declared document language to a supported
// locale. Exact tag matches win; otherwise the language matcher picks the
// closest supported locale, rejecting low-confidence matches.
func LocaleByLanguage(value string) (Locale, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Locale{}, false
	}
	if loc, ok := LocaleByTag(value); ok {
		return loc, true
	}
	tag, err := language.Parse(value)
	if err != nil {
		return Locale{}, false
	}
	_, idx, conf := langMatcher.Match(tag)
	if conf < language.High {
		return Locale{}, false
	}
	if idx < 0 || idx >= len(matcherOrder) {
		return Locale{}, false
	}
	return locales[matcherOrder[idx]], true
}

// ResolveCurrency maps text containing a currency symbol or ISO code to
// its locale. Returns false when no known marker occurs in the text.
func ResolveCurrency(text string) (Locale, bool) {
	loc, sym := ExtractCurrencySymbol(text)
	if sym == "" {
		return Locale{}, false
	}
	return loc, true
}

// ExtractCurrencySymbol scans a price-like string for an embedded currency
// marker and returns the implied locale alongside the marker itself.
func ExtractCurrencySymbol(text string) (Locale, string) {
	for _, ct := range currencyTokens {
		if strings.Contains(text, ct.Token) {
			return locales[strings.ToLower(ct.Tag)], ct.Token
		}
	}
	return Locale{}, ""
}
