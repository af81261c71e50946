package core

import "strings"

var currencySymbols = map[string]string{
	"usd": "$",
	"eur": "€",
	"gbp": "£",
	"jpy": "¥",
	"cny": "¥",
	"inr": "₹",
	"rub": "₽",
	"krw": "₩",
	"try": "₺",
	"brl": "R$",
	"cad": "C$",
	"aud": "A$",
	"nzd": "NZ$",
	"hkd": "HK$",
	"sgd": "S$",
	"mxn": "Mex$",
	"chf": "CHF",
	"sek": "kr",
	"nok": "kr",
	"dkk": "kr",
	"isk": "kr",
	"pln": "zł",
	"czk": "Kč",
	"huf": "Ft",
	"ron": "lei",
	"bgn": "лв",
	"zar": "R",
	"ils": "₪",
	"php": "₱",
	"thb": "฿",
	"idr": "Rp",
	"myr": "RM",
	"hrk": "kn",
}

// NormalizeCurrency lower-cases and checks a three letter ISO code.
func NormalizeCurrency(code string) (string, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	if len(code) != 3 {
		return "", ErrInvalidCurrency
	}
	for i := 0; i < len(code); i++ {
		if code[i] < 'a' || code[i] > 'z' {
			return "", ErrInvalidCurrency
		}
	}
	return code, nil
}

// CurrencyOrDefault normalizes code, substituting def when code is blank.
func CurrencyOrDefault(code, def string) (string, error) {
	if strings.TrimSpace(code) == "" {
		code = def
	}
	return NormalizeCurrency(code)
}

// SymbolFor returns the display glyph for code, or the upper-cased code.
func SymbolFor(code string) string {
	code = strings.TrimSpace(code)
	if sym, ok := currencySymbols[strings.ToLower(code)]; ok {
		return sym
	}
	return strings.ToUpper(code)
}

// KnownCurrencies lists the codes with a dedicated symbol.
func KnownCurrencies() []string {
	codes := make([]string, 0, len(currencySymbols))
	for c := range currencySymbols {
		codes = append(codes, c)
	}
	return codes
}
