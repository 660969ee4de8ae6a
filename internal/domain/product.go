package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Product is one offer for a search term at one retailer, at the time it was scraped.
type Product struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	// OriginalPrice is the list price shown by the retailer. Invalid means unknown,
	// not "no discount".
	OriginalPrice decimal.NullDecimal `json:"originalPrice"`
	Market        string              `json:"market"`
	URL           string              `json:"url"`
	Image         string              `json:"image"`
}

// NewProduct validates the invariants shared by every provider and returns the product.
func NewProduct(name string, price decimal.Decimal, market, url, image string) (Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Product{}, fmt.Errorf("%w: empty name", ErrInvalidProduct)
	}
	if price.IsNegative() {
		return Product{}, fmt.Errorf("%w: negative price %s for %q", ErrInvalidProduct, price, name)
	}
	if market == "" {
		return Product{}, fmt.Errorf("%w: empty market for %q", ErrInvalidProduct, name)
	}

	return Product{
		Name:   name,
		Price:  price,
		Market: market,
		URL:    url,
		Image:  image,
	}, nil
}

// WithOriginalPrice returns a copy of p carrying the given list price.
func (p Product) WithOriginalPrice(original decimal.Decimal) Product {
	p.OriginalPrice = decimal.NewNullDecimal(original)
	return p
}

// HasDiscount reports whether the retailer shows a list price above the sale price.
func (p Product) HasDiscount() bool {
	return p.OriginalPrice.Valid && p.OriginalPrice.Decimal.GreaterThan(p.Price)
}
