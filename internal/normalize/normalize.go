package normalize

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/pricetrack/pricetrack/internal/model"
	"github.com/pricetrack/pricetrack/internal/source"
	"github.com/shopspring/decimal"
)

var (
	// ErrNoPrice means the raw text contained no price figure at all.
	ErrNoPrice = errors.New("no price in text")

	// ErrBadPrice means a figure was found but could not be parsed.
	ErrBadPrice = errors.New("unparsable price text")

	// ErrCurrencyMismatch means the symbol in the text implies a different
	// currency than the product is configured with. Cross-currency
	// conversion is not supported.
	ErrCurrencyMismatch = errors.New("currency mismatch")
)

// Quote builds a canonical quote from one raw fetch result.
func Quote(raw *source.RawQuote, p model.Product) (model.Quote, error) {
	price, implied, err := Price(raw.PriceText)
	if err != nil {
		return model.Quote{}, err
	}

	currency := p.Currency
	if implied != "" && currency != "" && implied != currency {
		return model.Quote{}, fmt.Errorf("text implies %s, product is %s: %w", implied, currency, ErrCurrencyMismatch)
	}
	if currency == "" {
		currency = implied
	}
	if currency == "" {
		currency = "INR"
	}

	observedAt := raw.FetchedAt
	if observedAt.IsZero() {
		observedAt = time.Now().UTC()
	}

	return model.Quote{
		ProductID:    p.ID,
		ObservedAt:   observedAt.UTC(),
		Price:        price,
		Currency:     currency,
		Availability: Availability(raw.AvailabilityText),
		Source:       raw.Source,
		RawRef:       raw.PriceText,
	}, nil
}

type symbolRule struct {
	marker string // matched case-insensitively
	code   string
}

var symbolRules = []symbolRule{
	{"₹", "INR"},
	{"rs.", "INR"},
	{"rs ", "INR"},
	{"inr", "INR"},
	{"usd", "USD"},
	{"$", "USD"},
	{"eur", "EUR"},
	{"€", "EUR"},
	{"gbp", "GBP"},
	{"£", "GBP"},
}

// Price parses raw price text into a decimal plus the currency implied by
// any symbol in the text ("" when none). Ranges keep the leading figure,
// which the sites list as the low end.
func Price(text string) (decimal.Decimal, string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return decimal.Zero, "", ErrNoPrice
	}

	implied := detectCurrency(trimmed)

	token := firstNumericToken(trimmed)
	if token == "" {
		return decimal.Zero, implied, fmt.Errorf("%q: %w", text, ErrNoPrice)
	}

	cleaned := cleanSeparators(token)
	price, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, implied, fmt.Errorf("%q: %w", text, ErrBadPrice)
	}

	return price, implied, nil
}

func detectCurrency(text string) string {
	lower := strings.ToLower(text)
	for _, r := range symbolRules {
		if strings.Contains(lower, r.marker) {
			return r.code
		}
	}
	return ""
}

// firstNumericToken extracts the first run of digits with embedded
// separators. "₹1,299 - ₹1,499" yields "1,299".
func firstNumericToken(text string) string {
	start := -1
	for i, r := range text {
		if unicode.IsDigit(r) {
			start = i
			break
		}
	}
	if start < 0 {
		return ""
	}

	end := start
	for _, r := range text[start:] {
		if !unicode.IsDigit(r) && r != ',' && r != '.' {
			break
		}
		end += len(string(r))
	}

	return strings.Trim(text[start:end], ",.")
}

// cleanSeparators reduces a numeric token to plain decimal form. When both
// separators appear the rightmost one is the decimal mark; a lone comma
// followed by exactly two digits reads as a decimal comma, anything else
// as grouping.
func cleanSeparators(token string) string {
	lastComma := strings.LastIndex(token, ",")
	lastDot := strings.LastIndex(token, ".")

	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastDot > lastComma {
			// 1,29,999.00 - commas group, dot is decimal
			return strings.ReplaceAll(token, ",", "")
		}
		// 1.299,00 - dots group, comma is decimal
		return strings.ReplaceAll(strings.ReplaceAll(token, ".", ""), ",", ".")

	case lastComma >= 0:
		if strings.Count(token, ",") == 1 && len(token)-lastComma-1 == 2 {
			// 1299,00 - decimal comma
			return strings.ReplaceAll(token, ",", ".")
		}
		// 12,999 or 1,29,999 - grouping
		return strings.ReplaceAll(token, ",", "")

	case lastDot >= 0 && strings.Count(token, ".") > 1:
		// 1.299.999 - grouping dots; only a two-digit tail reads as decimals
		if len(token)-lastDot-1 == 2 {
			head := strings.ReplaceAll(token[:lastDot], ".", "")
			return head + token[lastDot:]
		}
		return strings.ReplaceAll(token, ".", "")

	default:
		return token
	}
}

var outOfStockMarkers = []string{
	"out of stock",
	"currently unavailable",
	"sold out",
	"temporarily unavailable",
	"unavailable",
}

var inStockMarkers = []string{
	"in stock",
	"add to cart",
	"buy now",
	"left in stock",
	"available",
}

// Availability maps raw availability wording onto the enum. Wording the
// vocabulary does not cover is unknown, never a failure. The negative
// markers are checked first: "currently unavailable" contains "available".
func Availability(text string) model.Availability {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return model.AvailabilityUnknown
	}

	for _, marker := range outOfStockMarkers {
		if strings.Contains(lower, marker) {
			return model.AvailabilityOutOfStock
		}
	}
	for _, marker := range inStockMarkers {
		if strings.Contains(lower, marker) {
			return model.AvailabilityInStock
		}
	}

	return model.AvailabilityUnknown
}
