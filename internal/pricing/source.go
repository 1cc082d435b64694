package pricing

import "context"

// Quote is one retailer's offer for a product. Price stays a string all the
// way to the API response; parsing happens only for sorting and best-price
// selection so odd formats ("$4.99", "4,99 €") survive round trips intact.
type Quote struct {
	Retailer     string `json:"retailer"`
	Price        string `json:"price"`
	Currency     string `json:"currency"`
	Availability string `json:"availability"`
	ProductURL   string `json:"product_url"`
	Source       string `json:"source"`
}

// Source is one external price comparison API
type Source interface {
	Name() string

	// Quotes returns every offer the source knows for a barcode. An empty
	// slice with a nil error means the source simply has no offers.
	Quotes(ctx context.Context, barcode string) ([]Quote, error)
}
