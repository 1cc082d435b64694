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

const upcItemDBBaseURL = "https://api.upcitemdb.com"

// UPCItemDBClient queries the UPCitemdb lookup API. The trial tier works
// without a key; a paid key goes into the user_key header.
type UPCItemDBClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewUPCItemDBClient(baseURL, apiKey string) *UPCItemDBClient {
	if baseURL == "" {
		baseURL = upcItemDBBaseURL
	}
	return &UPCItemDBClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

func (c *UPCItemDBClient) Name() string { return "upcitemdb" }

type upcItem struct {
	Title       string   `json:"title"`
	Brand       string   `json:"brand"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Images      []string `json:"images"`
}

type upcResponse struct {
	Code  string    `json:"code"`
	Total int       `json:"total"`
	Items []upcItem `json:"items"`
}

func (c *UPCItemDBClient) Lookup(ctx context.Context, barcode string) (*ProductInfo, error) {
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
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("upcitemdb returned status %d: %s", resp.StatusCode, string(body))
	}

	var out upcResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode upcitemdb response: %w", err)
	}
	if out.Total == 0 || len(out.Items) == 0 {
		return nil, ErrNotFound
	}

	item := out.Items[0]
	info := &ProductInfo{
		Barcode:     barcode,
		Name:        item.Title,
		Brand:       item.Brand,
		Category:    lastCategorySegment(item.Category),
		Description: item.Description,
		Source:      c.Name(),
	}
	if len(item.Images) > 0 {
		info.ImageURL = item.Images[0]
	}
	return info, nil
}

// lastCategorySegment trims UPCitemdb's "A > B > C" chains down to "C"
func lastCategorySegment(category string) string {
	if category == "" {
		return ""
	}
	parts := strings.Split(category, ">")
	return strings.TrimSpace(parts[len(parts)-1])
}
