package minhacooper

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	productSelector = ".product-list-item, .product-variation"
	nameSelector    = ".product-variation__name"
	priceSelector   = ".product-variation__final-price"
	imageSelector   = ".product-variation__image"

	noResultsMarker = "Desculpe, não encontramos resultado"
	currencySymbol  = "R$"
)

// RawOffer is a product card as rendered by the store, before price parsing
type RawOffer struct {
	Name  string
	Price string
	URL   string
	Image string
}

// snapshot is a parsed copy of the rendered search page
type snapshot struct {
	doc *goquery.Document
}

func parseSnapshot(html string) (*snapshot, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}
	return &snapshot{doc: doc}, nil
}

// noResults reports whether the store rendered its "nothing found" message
func (s *snapshot) noResults() bool {
	return strings.Contains(s.doc.Text(), noResultsMarker)
}

// offers collects the product cards that carry a name and a price in reais,
// deduplicated by name and price text. Relative links resolve against the
// page URL, root-relative images against the page's origin.
func (s *snapshot) offers(pageURL *url.URL) []RawOffer {
	seen := make(map[string]struct{})
	var offers []RawOffer

	s.doc.Find(productSelector).Each(func(_ int, card *goquery.Selection) {
		name := cleanText(card.Find(nameSelector).First().Text())
		price := cleanText(card.Find(priceSelector).First().Text())
		if name == "" || price == "" || !strings.Contains(price, currencySymbol) {
			return
		}

		key := name + "|" + price
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}

		image, _ := card.Find(imageSelector).First().Attr("src")
		href, _ := card.Find("a[href]").First().Attr("href")

		offers = append(offers, RawOffer{
			Name:  name,
			Price: price,
			URL:   resolveLink(pageURL, href),
			Image: normalizeImage(pageURL, image),
		})
	})

	return offers
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func resolveLink(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

func normalizeImage(site *url.URL, src string) string {
	src = strings.TrimSpace(src)
	switch {
	case src == "":
		return ""
	case strings.HasPrefix(src, "//"):
		return "https:" + src
	case strings.HasPrefix(src, "/"):
		return site.Scheme + "://" + site.Host + src
	default:
		return src
	}
}
