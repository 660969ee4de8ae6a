package angeloni

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Persisted query identity of the VTEX productSearchV3 operation
const (
	operationName          = "productSearchV3"
	persistedQueryVersion  = 1
	persistedQuerySender   = "vtex.store-resources@0.x"
	persistedQueryProvider = "vtex.search-graphql@0.x"
	fullTextFacet          = "ft"
)

type persistedQuery struct {
	Version    int    `json:"version"`
	Sha256Hash string `json:"sha256Hash"`
	Sender     string `json:"sender"`
	Provider   string `json:"provider"`
}

type selectedFacet struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type advertisementOptions struct {
	ShowSponsored           bool   `json:"showSponsored"`
	SponsoredCount          int    `json:"sponsoredCount"`
	AdvertisementPlacement  string `json:"advertisementPlacement"`
	RepeatSponsoredProducts bool   `json:"repeatSponsoredProducts"`
}

// searchVariables is the variables payload of productSearchV3. The backend
// only matches when the term appears in query, fullText and the "ft" facet.
type searchVariables struct {
	HideUnavailableItems bool                 `json:"hideUnavailableItems"`
	SkusFilter           string               `json:"skusFilter"`
	SimulationBehavior   string               `json:"simulationBehavior"`
	InstallmentCriteria  string               `json:"installmentCriteria"`
	ProductOriginVtex    bool                 `json:"productOriginVtex"`
	Map                  string               `json:"map"`
	Query                string               `json:"query"`
	OrderBy              string               `json:"orderBy"`
	From                 int                  `json:"from"`
	To                   int                  `json:"to"`
	SelectedFacets       []selectedFacet      `json:"selectedFacets"`
	FullText             string               `json:"fullText"`
	FacetsBehavior       string               `json:"facetsBehavior"`
	CategoryTreeBehavior string               `json:"categoryTreeBehavior"`
	WithFacets           bool                 `json:"withFacets"`
	AdvertisementOptions advertisementOptions `json:"advertisementOptions"`
}

type extensions struct {
	PersistedQuery persistedQuery `json:"persistedQuery"`
	Variables      string         `json:"variables"`
}

func newSearchVariables(term string, pageSize int) searchVariables {
	return searchVariables{
		HideUnavailableItems: false,
		SkusFilter:           "FIRST_AVAILABLE",
		SimulationBehavior:   "default",
		InstallmentCriteria:  "MAX_WITHOUT_INTEREST",
		ProductOriginVtex:    false,
		Map:                  fullTextFacet,
		Query:                term,
		OrderBy:              "OrderByScoreDESC",
		From:                 0,
		To:                   pageSize,
		SelectedFacets:       []selectedFacet{{Key: fullTextFacet, Value: term}},
		FullText:             term,
		FacetsBehavior:       "Static",
		CategoryTreeBehavior: "default",
		WithFacets:           false,
		AdvertisementOptions: advertisementOptions{
			ShowSponsored:           true,
			SponsoredCount:          3,
			AdvertisementPlacement:  "top_search",
			RepeatSponsoredProducts: true,
		},
	}
}

// buildSearchParams returns the query string parameters of a persisted product search
func buildSearchParams(term string, cfg Config) (map[string]string, error) {
	variables, err := json.Marshal(newSearchVariables(term, cfg.PageSize))
	if err != nil {
		return nil, fmt.Errorf("failed to encode search variables: %w", err)
	}

	ext, err := json.Marshal(extensions{
		PersistedQuery: persistedQuery{
			Version:    persistedQueryVersion,
			Sha256Hash: cfg.SHA256Hash,
			Sender:     persistedQuerySender,
			Provider:   persistedQueryProvider,
		},
		Variables: base64.StdEncoding.EncodeToString(variables),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode extensions: %w", err)
	}

	return map[string]string{
		"workspace":     "master",
		"maxAge":        "short",
		"appsEtag":      "remove",
		"domain":        "store",
		"locale":        "pt-BR",
		"__bindingId":   cfg.BindingID,
		"operationName": operationName,
		"variables":     "{}",
		"extensions":    string(ext),
	}, nil
}
