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

const openFoodFactsBaseURL = "https://world.openfoodfacts.org"

// OpenFoodFactsClient queries the Open Food Facts public product database.
// It is the only source that carries eco scores, so it sits first in the
// aggregator's source list.
type OpenFoodFactsClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewOpenFoodFactsClient(baseURL string) *OpenFoodFactsClient {
	if baseURL == "" {
		baseURL = openFoodFactsBaseURL
	}
	return &OpenFoodFactsClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

func (c *OpenFoodFactsClient) Name() string { return "openfoodfacts" }

type offProduct struct {
	ProductName   string  `json:"product_name"`
	Brands        string  `json:"brands"`
	Categories    string  `json:"categories"`
	GenericName   string  `json:"generic_name"`
	ImageURL      string  `json:"image_url"`
	EcoScoreScore *int    `json:"ecoscore_score"`
	EcoScoreGrade string  `json:"ecoscore_grade"`
	NutriScore    string  `json:"nutriscore_grade"`
}

type offResponse struct {
	Status  int        `json:"status"`
	Code    string     `json:"code"`
	Product offProduct `json:"product"`
}

func (c *OpenFoodFactsClient) Lookup(ctx context.Context, barcode string) (*ProductInfo, error) {
	url := fmt.Sprintf("%s/api/v2/product/%s.json", c.baseURL, barcode)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "ShopSmartly/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openfoodfacts request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("openfoodfacts returned status %d: %s", resp.StatusCode, string(body))
	}

	var out offResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode openfoodfacts response: %w", err)
	}
	if out.Status != 1 || out.Product.ProductName == "" {
		return nil, ErrNotFound
	}

	info := &ProductInfo{
		Barcode:     barcode,
		Name:        out.Product.ProductName,
		Brand:       out.Product.Brands,
		Category:    firstCategory(out.Product.Categories),
		Description: out.Product.GenericName,
		ImageURL:    out.Product.ImageURL,
		EcoScore:    out.Product.EcoScoreScore,
		EcoDetails:  ecoDetails(out.Product.EcoScoreGrade, out.Product.NutriScore),
		Source:      c.Name(),
	}
	return info, nil
}

// ecoDetails folds the letter grades into one display string:
// ("b", "c") -> "eco grade b, nutri-score c"
func ecoDetails(ecoGrade, nutriGrade string) string {
	var parts []string
	if g := strings.ToLower(strings.TrimSpace(ecoGrade)); g != "" && g != "unknown" && g != "not-applicable" {
		parts = append(parts, "eco grade "+g)
	}
	if g := strings.ToLower(strings.TrimSpace(nutriGrade)); g != "" && g != "unknown" && g != "not-applicable" {
		parts = append(parts, "nutri-score "+g)
	}
	return strings.Join(parts, ", ")
}

// firstCategory keeps the most specific entry of a comma separated
// category chain ("Beverages, Sodas, Colas" -> "Colas")
func firstCategory(categories string) string {
	if categories == "" {
		return ""
	}
	parts := strings.Split(categories, ",")
	return strings.TrimSpace(parts[len(parts)-1])
}
