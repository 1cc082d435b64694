package lookup

import (
	"context"
	"errors"
)

// ErrNotFound is returned by a Source when it has no record for a barcode.
// It is not a failure - other sources may still know the product.
var ErrNotFound = errors.New("product not found")

// ProductInfo is the normalized shape every lookup source resolves into
type ProductInfo struct {
	Barcode     string `json:"barcode"`
	Name        string `json:"name"`
	Brand       string `json:"brand"`
	Category    string `json:"category"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
	EcoScore    *int   `json:"eco_score,omitempty"`
	EcoDetails  string `json:"eco_details,omitempty"`
	Source      string `json:"source"`
}

// Source is one external barcode database
type Source interface {
	// Name identifies the source in logs, metrics and Product.DataSource
	Name() string

	// Lookup resolves a barcode. Returns ErrNotFound when the source has no
	// record; any other error means the source itself failed.
	Lookup(ctx context.Context, barcode string) (*ProductInfo, error)
}
