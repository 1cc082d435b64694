package pricing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPriceSource struct {
	name   string
	quotes []Quote
	err    error
}

func (s *stubPriceSource) Name() string { return s.name }

func (s *stubPriceSource) Quotes(ctx context.Context, barcode string) ([]Quote, error) {
	return s.quotes, s.err
}

func TestBuildComparisonSortsAscending(t *testing.T) {
	ordered := [][]Quote{{
		{Retailer: "Target", Price: "5.49", Currency: "USD"},
		{Retailer: "Walmart", Price: "4.99", Currency: "USD"},
		{Retailer: "Costco", Price: "12.99", Currency: "USD"},
	}}

	comparison := buildComparison("0123456789012", ordered)
	require.Len(t, comparison.Quotes, 3)
	assert.Equal(t, "Walmart", comparison.Quotes[0].Retailer)
	assert.Equal(t, "Target", comparison.Quotes[1].Retailer)
	assert.Equal(t, "Costco", comparison.Quotes[2].Retailer)
	require.NotNil(t, comparison.Best)
	assert.Equal(t, "Walmart", comparison.Best.Retailer)
}

func TestBuildComparisonDedupesByRetailerFirstWins(t *testing.T) {
	ordered := [][]Quote{
		{{Retailer: "Walmart", Price: "4.99", Source: "upcitemdb"}},
		{{Retailer: "walmart", Price: "3.99", Source: "searchapi"}},
	}

	comparison := buildComparison("0123456789012", ordered)
	require.Len(t, comparison.Quotes, 1)
	// earlier source's quote survives even when the later one is cheaper
	assert.Equal(t, "4.99", comparison.Quotes[0].Price)
	assert.Equal(t, "upcitemdb", comparison.Quotes[0].Source)
}

func TestBuildComparisonCurrencySymbolsAndFormats(t *testing.T) {
	ordered := [][]Quote{{
		{Retailer: "US Store", Price: "$4.99"},
		{Retailer: "EU Store", Price: "3,49 €"},
		{Retailer: "Plain", Price: "10.00"},
	}}

	comparison := buildComparison("0123456789012", ordered)
	require.Len(t, comparison.Quotes, 3)
	assert.Equal(t, "EU Store", comparison.Quotes[0].Retailer)
	assert.Equal(t, "US Store", comparison.Quotes[1].Retailer)
	assert.Equal(t, "Plain", comparison.Quotes[2].Retailer)
}

func TestBuildComparisonUnparsableSortsLast(t *testing.T) {
	ordered := [][]Quote{{
		{Retailer: "Mystery", Price: "call for price"},
		{Retailer: "Walmart", Price: "4.99"},
	}}

	comparison := buildComparison("0123456789012", ordered)
	require.Len(t, comparison.Quotes, 2)
	assert.Equal(t, "Walmart", comparison.Quotes[0].Retailer)
	assert.Equal(t, "Mystery", comparison.Quotes[1].Retailer)
	require.NotNil(t, comparison.Best)
	assert.Equal(t, "Walmart", comparison.Best.Retailer)
}

func TestBuildComparisonAllUnparsableHasNoBest(t *testing.T) {
	ordered := [][]Quote{{
		{Retailer: "Mystery", Price: "contact us"},
	}}

	comparison := buildComparison("0123456789012", ordered)
	require.Len(t, comparison.Quotes, 1)
	assert.Nil(t, comparison.Best)
}

func TestCompareToleratesSourceFailure(t *testing.T) {
	agg := NewAggregator([]Source{
		&stubPriceSource{name: "broken", err: errors.New("upstream down")},
		&stubPriceSource{name: "working", quotes: []Quote{
			{Retailer: "Target", Price: "7.99", Source: "working"},
		}},
	}, nil)

	comparison, err := agg.Compare(context.Background(), "0123456789012")
	require.NoError(t, err)
	require.Len(t, comparison.Quotes, 1)
	assert.Equal(t, "Target", comparison.Quotes[0].Retailer)
}

func TestCompareEmptyWhenNoSources(t *testing.T) {
	agg := NewAggregator(nil, nil)
	comparison, err := agg.Compare(context.Background(), "0123456789012")
	require.NoError(t, err)
	assert.Empty(t, comparison.Quotes)
	assert.Nil(t, comparison.Best)
}
