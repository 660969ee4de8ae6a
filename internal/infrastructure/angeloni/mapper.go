package angeloni

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/buger/jsonparser"
	"github.com/shopspring/decimal"

	"github.com/comparador/backend/internal/domain"
)

// MapSearchResponse walks data.productSearch.products[] and converts every
// purchasable product into a domain.Product. A product that cannot be read is
// skipped and logged; only a broken envelope fails the whole batch.
func MapSearchResponse(ctx context.Context, body []byte, storeURL string, logger *slog.Logger) ([]domain.Product, error) {
	products, dataType, _, err := jsonparser.Get(body, "data", "productSearch", "products")
	if err != nil {
		if msg, gqlErr := jsonparser.GetString(body, "errors", "[0]", "message"); gqlErr == nil {
			return nil, fmt.Errorf("%w: graphql error: %s", domain.ErrSourceFailure, msg)
		}
		return nil, fmt.Errorf("%w: data.productSearch.products: %v", domain.ErrMalformedOffer, err)
	}
	if dataType != jsonparser.Array {
		return nil, fmt.Errorf("%w: data.productSearch.products is %s, want array", domain.ErrMalformedOffer, dataType)
	}

	result := []domain.Product{}
	index := 0
	_, err = jsonparser.ArrayEach(products, func(value []byte, _ jsonparser.ValueType, _ int, _ error) {
		defer func() { index++ }()

		product, err := mapProduct(value, storeURL)
		switch {
		case err == nil:
			result = append(result, product)
		case errors.Is(err, domain.ErrUnavailable):
			logger.DebugContext(ctx, "Skipping unavailable product",
				slog.Int("index", index),
				slog.String("reason", err.Error()),
			)
		default:
			logger.WarnContext(ctx, "Skipping malformed product",
				slog.Int("index", index),
				slog.String("error", err.Error()),
			)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("%w: products array: %v", domain.ErrMalformedOffer, err)
	}

	return result, nil
}

// mapProduct extracts one product: first SKU, first image, first seller's offer
func mapProduct(value []byte, storeURL string) (domain.Product, error) {
	name, err := jsonparser.GetString(value, "productName")
	if err != nil {
		return domain.Product{}, fmt.Errorf("%w: productName: %v", domain.ErrMalformedOffer, err)
	}
	link, _ := jsonparser.GetString(value, "link")

	item, _, _, err := jsonparser.Get(value, "items", "[0]")
	if err != nil {
		return domain.Product{}, fmt.Errorf("%w: %q has no items", domain.ErrUnavailable, name)
	}

	image, _ := jsonparser.GetString(item, "images", "[0]", "imageUrl")

	seller, _, _, err := jsonparser.Get(item, "sellers", "[0]")
	if err != nil {
		return domain.Product{}, fmt.Errorf("%w: %q has no sellers", domain.ErrUnavailable, name)
	}

	offer, _, _, err := jsonparser.Get(seller, "commertialOffer")
	if err != nil {
		return domain.Product{}, fmt.Errorf("%w: %q commertialOffer: %v", domain.ErrMalformedOffer, name, err)
	}

	price, err := getDecimal(offer, "Price")
	if err != nil {
		return domain.Product{}, fmt.Errorf("%w: %q Price: %v", domain.ErrMalformedOffer, name, err)
	}
	listPrice, err := getDecimal(offer, "ListPrice")
	if err != nil {
		return domain.Product{}, fmt.Errorf("%w: %q ListPrice: %v", domain.ErrMalformedOffer, name, err)
	}
	available, err := jsonparser.GetInt(offer, "AvailableQuantity")
	if err != nil {
		return domain.Product{}, fmt.Errorf("%w: %q AvailableQuantity: %v", domain.ErrMalformedOffer, name, err)
	}
	if available <= 0 {
		return domain.Product{}, fmt.Errorf("%w: %q is out of stock", domain.ErrUnavailable, name)
	}

	product, err := domain.NewProduct(name, price, MarketName, productURL(storeURL, link), image)
	if err != nil {
		return domain.Product{}, err
	}
	return product.WithOriginalPrice(listPrice), nil
}

// getDecimal reads a JSON number without going through float64
func getDecimal(data []byte, key string) (decimal.Decimal, error) {
	raw, dataType, _, err := jsonparser.Get(data, key)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if dataType != jsonparser.Number {
		return decimal.Decimal{}, fmt.Errorf("got %s, want number", dataType)
	}
	return decimal.NewFromString(string(raw))
}

func productURL(storeURL, link string) string {
	if link == "" {
		return ""
	}
	if strings.HasPrefix(link, "http://") || strings.HasPrefix(link, "https://") {
		return link
	}
	return strings.TrimRight(storeURL, "/") + "/" + strings.TrimLeft(link, "/")
}
