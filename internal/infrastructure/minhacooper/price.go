package minhacooper

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/comparador/backend/internal/domain"
)

var priceNumber = regexp.MustCompile(`[\d.,]+`)

// ParsePrice reads a Brazilian formatted price such as "R$ 12.345,67".
// The first numeric run is taken, thousands separators are dropped and the
// decimal comma becomes a point.
func ParsePrice(text string) (decimal.Decimal, error) {
	match := priceNumber.FindString(text)
	if match == "" {
		return decimal.Decimal{}, fmt.Errorf("%w: no number in price %q", domain.ErrMalformedOffer, text)
	}

	normalized := strings.ReplaceAll(match, ".", "")
	normalized = strings.ReplaceAll(normalized, ",", ".")

	price, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: price %q: %v", domain.ErrMalformedOffer, text, err)
	}
	return price, nil
}
