package lookup

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

const barcodeSpiderBaseURL = "https://api.barcodespider.com"

// BarcodeSpiderClient queries the Barcode Spider UPC API. Requires a token;
// without one the client is still constructed but every lookup fails fast,
// which the aggregator tolerates.
type BarcodeSpiderClient struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
}

func NewBarcodeSpiderClient(baseURL, apiToken string) *BarcodeSpiderClient {
	if baseURL == "" {
		baseURL = barcodeSpiderBaseURL
	}
	return &BarcodeSpiderClient{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		apiToken: apiToken,
		httpClient: &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

func (c *BarcodeSpiderClient) Name() string { return "barcodespider" }

type spiderAttributes struct {
	Title       string `json:"title"`
	Brand       string `json:"brand"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

type spiderResponse struct {
	ItemResponse struct {
		Code    int    `json:"code"`
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"item_response"`
	ItemAttributes spiderAttributes `json:"item_attributes"`
}

func (c *BarcodeSpiderClient) Lookup(ctx context.Context, barcode string) (*ProductInfo, error) {
	if c.apiToken == "" {
		return nil, fmt.Errorf("barcodespider token not configured")
	}
	url := fmt.Sprintf("%s/v1/lookup?upc=%s", c.baseURL, barcode)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("token", c.apiToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("barcodespider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("barcodespider returned status %d: %s", resp.StatusCode, string(body))
	}

	var out spiderResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode barcodespider response: %w", err)
	}
	if out.ItemResponse.Code != http.StatusOK || out.ItemAttributes.Title == "" {
		return nil, ErrNotFound
	}

	return &ProductInfo{
		Barcode:     barcode,
		Name:        out.ItemAttributes.Title,
		Brand:       out.ItemAttributes.Brand,
		Category:    out.ItemAttributes.Category,
		Description: out.ItemAttributes.Description,
		ImageURL:    out.ItemAttributes.Image,
		Source:      c.Name(),
	}, nil
}
