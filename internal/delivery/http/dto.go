package http

import (
	"encoding/json"

	"github.com/comparador/backend/internal/domain"
)

// ProductResponse is the wire form of a product. Prices are JSON numbers with
// two decimals; originalPrice is null when the store shows no list price.
type ProductResponse struct {
	Name          string       `json:"name"`
	Price         json.Number  `json:"price"`
	OriginalPrice *json.Number `json:"originalPrice"`
	Market        string       `json:"market"`
	URL           string       `json:"url"`
	Image         string       `json:"image"`
}

// ErrorResponse is returned for rejected requests
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse reports service liveness
type HealthResponse struct {
	Status       string   `json:"status"`
	Service      string   `json:"service"`
	Version      string   `json:"version"`
	Markets      []string `json:"markets"`
	CacheEntries int      `json:"cache_entries"`
}

// ToProductResponse converts a product to its wire form
func ToProductResponse(p domain.Product) ProductResponse {
	resp := ProductResponse{
		Name:   p.Name,
		Price:  json.Number(p.Price.StringFixed(2)),
		Market: p.Market,
		URL:    p.URL,
		Image:  p.Image,
	}
	if p.OriginalPrice.Valid {
		original := json.Number(p.OriginalPrice.Decimal.StringFixed(2))
		resp.OriginalPrice = &original
	}
	return resp
}

// ToProductResponses converts products preserving order
func ToProductResponses(products []domain.Product) []ProductResponse {
	out := make([]ProductResponse, len(products))
	for i, p := range products {
		out[i] = ToProductResponse(p)
	}
	return out
}
