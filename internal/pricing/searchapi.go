package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const searchAPIBaseURL = "https://www.searchapi.io"

// SearchAPIClient queries the SearchApi google_shopping engine by GTIN.
// Needs an API key; without one every call fails fast and the aggregator
// moves on.
type SearchAPIClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewSearchAPIClient(baseURL, apiKey string) *SearchAPIClient {
	if baseURL == "" {
		baseURL = searchAPIBaseURL
	}
	return &SearchAPIClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout:   15 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

func (c *SearchAPIClient) Name() string { return "searchapi" }

type shoppingResult struct {
	Seller        string `json:"seller"`
	Price         string `json:"price"`
	ProductLink   string `json:"product_link"`
	DeliveryNotes string `json:"delivery"`
}

type searchAPIResponse struct {
	ShoppingResults []shoppingResult `json:"shopping_results"`
}

func (c *SearchAPIClient) Quotes(ctx context.Context, barcode string) ([]Quote, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("searchapi key not configured")
	}

	params := url.Values{}
	params.Set("engine", "google_shopping")
	params.Set("q", barcode)
	params.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/api/v1/search?%s", c.baseURL, params.Encode()), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("searchapi request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("searchapi returned status %d: %s", resp.StatusCode, string(body))
	}

	var out searchAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode searchapi response: %w", err)
	}

	var quotes []Quote
	for _, result := range out.ShoppingResults {
		if result.Seller == "" || result.Price == "" {
			continue
		}
		availability := "in_stock"
		if strings.Contains(strings.ToLower(result.DeliveryNotes), "out of stock") {
			availability = "out_of_stock"
		}
		quotes = append(quotes, Quote{
			Retailer:     result.Seller,
			Price:        result.Price,
			Currency:     "USD",
			Availability: availability,
			ProductURL:   result.ProductLink,
			Source:       c.Name(),
		})
	}
	return quotes, nil
}
