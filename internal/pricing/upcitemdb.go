package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const upcItemDBBaseURL = "https://api.upcitemdb.com"

// UPCItemDBOffersClient pulls the offers array from UPCitemdb lookups. Same
// upstream as the barcode lookup source, but this client only cares about
// the merchant offers section of the payload.
type UPCItemDBOffersClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewUPCItemDBOffersClient(baseURL, apiKey string) *UPCItemDBOffersClient {
	if baseURL == "" {
		baseURL = upcItemDBBaseURL
	}
	return &UPCItemDBOffersClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

func (c *UPCItemDBOffersClient) Name() string { return "upcitemdb" }

type upcOffer struct {
	Merchant     string  `json:"merchant"`
	Price        float64 `json:"price"`
	Currency     string  `json:"currency"`
	Availability string  `json:"availability"`
	Link         string  `json:"link"`
}

type upcOffersResponse struct {
	Total int `json:"total"`
	Items []struct {
		Offers []upcOffer `json:"offers"`
	} `json:"items"`
}

func (c *UPCItemDBOffersClient) Quotes(ctx context.Context, barcode string) ([]Quote, error) {
	endpoint := "/prod/trial/lookup"
	if c.apiKey != "" {
		endpoint = "/prod/v1/lookup"
	}
	url := fmt.Sprintf("%s%s?upc=%s", c.baseURL, endpoint, barcode)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("user_key", c.apiKey)
		req.Header.Set("key_type", "3scale")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upcitemdb request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("upcitemdb returned status %d: %s", resp.StatusCode, string(body))
	}

	var out upcOffersResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode upcitemdb response: %w", err)
	}
	if out.Total == 0 || len(out.Items) == 0 {
		return nil, nil
	}

	var quotes []Quote
	for _, offer := range out.Items[0].Offers {
		if offer.Merchant == "" || offer.Price <= 0 {
			continue
		}
		currency := offer.Currency
		if currency == "" {
			currency = "USD"
		}
		availability := strings.ToLower(offer.Availability)
		if availability == "" {
			availability = "unknown"
		}
		quotes = append(quotes, Quote{
			Retailer:     offer.Merchant,
			Price:        fmt.Sprintf("%.2f", offer.Price),
			Currency:     currency,
			Availability: availability,
			ProductURL:   offer.Link,
			Source:       c.Name(),
		})
	}
	return quotes, nil
}
