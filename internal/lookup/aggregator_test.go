package lookup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	name  string
	info  *ProductInfo
	err   error
	delay time.Duration
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Lookup(ctx context.Context, barcode string) (*ProductInfo, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.info, nil
}

func intPtr(v int) *int { return &v }

func TestMergeFirstSourceWins(t *testing.T) {
	results := []*ProductInfo{
		{Name: "Cola Classic", Brand: "", Category: "Sodas", Source: "openfoodfacts"},
		{Name: "Cola Classic 12oz", Brand: "AcmeCo", Category: "Beverages", ImageURL: "https://img.example/cola.jpg", Source: "upcitemdb"},
	}

	merged := Merge("0123456789012", results)
	require.NotNil(t, merged)

	// first source keeps its fields, later sources only fill gaps
	assert.Equal(t, "Cola Classic", merged.Name)
	assert.Equal(t, "Sodas", merged.Category)
	assert.Equal(t, "AcmeCo", merged.Brand)
	assert.Equal(t, "https://img.example/cola.jpg", merged.ImageURL)
	assert.Equal(t, "0123456789012", merged.Barcode)
	assert.Equal(t, "openfoodfacts", merged.Source)
}

func TestMergeSkipsNilResults(t *testing.T) {
	results := []*ProductInfo{
		nil,
		{Name: "Granola Bar", Brand: "Trailhead", Source: "upcitemdb"},
		nil,
	}

	merged := Merge("0987654321098", results)
	require.NotNil(t, merged)
	assert.Equal(t, "Granola Bar", merged.Name)
	assert.Equal(t, "upcitemdb", merged.Source)
}

func TestMergeEcoScoreFromLaterSource(t *testing.T) {
	results := []*ProductInfo{
		{Name: "Oat Milk", Source: "upcitemdb"},
		{Name: "Oat Milk 1L", EcoScore: intPtr(82), EcoDetails: "eco grade b", Source: "openfoodfacts"},
	}

	merged := Merge("4006381333931", results)
	require.NotNil(t, merged)
	require.NotNil(t, merged.EcoScore)
	assert.Equal(t, 82, *merged.EcoScore)
	assert.Equal(t, "eco grade b", merged.EcoDetails)
}

func TestMergeAllEmpty(t *testing.T) {
	assert.Nil(t, Merge("0123456789012", []*ProductInfo{nil, nil}))
	// a result without a name is not a usable product
	assert.Nil(t, Merge("0123456789012", []*ProductInfo{{Brand: "Ghost"}}))
}

func TestAggregatorMergesAcrossSources(t *testing.T) {
	agg := NewAggregator([]Source{
		&stubSource{name: "primary", info: &ProductInfo{Name: "Trail Mix", EcoScore: intPtr(55), Source: "primary"}},
		&stubSource{name: "secondary", info: &ProductInfo{Name: "Trail Mix 200g", Brand: "Summit", Source: "secondary"}},
	}, nil)

	info, err := agg.Lookup(context.Background(), "0123456789012")
	require.NoError(t, err)
	assert.Equal(t, "Trail Mix", info.Name)
	assert.Equal(t, "Summit", info.Brand)
	require.NotNil(t, info.EcoScore)
	assert.Equal(t, 55, *info.EcoScore)
}

func TestAggregatorToleratesSourceFailure(t *testing.T) {
	agg := NewAggregator([]Source{
		&stubSource{name: "broken", err: errors.New("connection refused")},
		&stubSource{name: "working", info: &ProductInfo{Name: "Sparkling Water", Source: "working"}},
	}, nil)

	info, err := agg.Lookup(context.Background(), "0123456789012")
	require.NoError(t, err)
	assert.Equal(t, "Sparkling Water", info.Name)
}

func TestAggregatorNotFoundWhenNoSourceResolves(t *testing.T) {
	agg := NewAggregator([]Source{
		&stubSource{name: "a", err: ErrNotFound},
		&stubSource{name: "b", err: errors.New("timeout")},
	}, nil)

	_, err := agg.Lookup(context.Background(), "0123456789012")
	assert.ErrorIs(t, err, ErrNotFound)
}
