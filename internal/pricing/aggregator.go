package pricing

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/magickw/ShopSmartly-sub000/internal/cache"
	"github.com/magickw/ShopSmartly-sub000/internal/logger"
	"github.com/magickw/ShopSmartly-sub000/internal/metrics"
	"github.com/magickw/ShopSmartly-sub000/internal/util"
)

const (
	priceCacheTTL      = time.Hour
	defaultFanOutLimit = 12 * time.Second
)

var tracer = otel.Tracer("shopsmartly/pricing")

// Comparison is the merged view across every price source
type Comparison struct {
	Barcode string `json:"barcode"`
	Quotes  []Quote `json:"quotes"`
	Best    *Quote  `json:"best,omitempty"`
}

// Aggregator fans a barcode out to every price source concurrently, then
// dedupes, sorts and picks the cheapest offer. Source order is priority
// order: when two sources quote the same retailer, the earlier source's
// quote survives.
type Aggregator struct {
	sources []Source
	cache   *cache.RedisClient
	timeout time.Duration
}

func NewAggregator(sources []Source, redisClient *cache.RedisClient) *Aggregator {
	return &Aggregator{
		sources: sources,
		cache:   redisClient,
		timeout: defaultFanOutLimit,
	}
}

type sourceQuotes struct {
	index  int
	quotes []Quote
	err    error
}

// Compare gathers quotes for a barcode. Source failures are logged and
// counted but never fail the comparison; worst case is an empty quote list.
func (a *Aggregator) Compare(ctx context.Context, barcode string) (*Comparison, error) {
	ctx, span := tracer.Start(ctx, "pricing.Aggregator.Compare")
	defer span.End()
	span.SetAttributes(attribute.String("barcode", barcode))

	if cached, ok := a.fromCache(ctx, barcode); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return cached, nil
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	results := make(chan sourceQuotes, len(a.sources))
	var wg sync.WaitGroup
	for i, src := range a.sources {
		wg.Add(1)
		go func(index int, src Source) {
			defer wg.Done()
			quotes, err := src.Quotes(ctx, barcode)
			m := metrics.Get()
			if err != nil {
				m.PriceSourceErrors.WithLabelValues(src.Name()).Inc()
			} else {
				m.PriceQuotesTotal.WithLabelValues(src.Name()).Add(float64(len(quotes)))
			}
			results <- sourceQuotes{index: index, quotes: quotes, err: err}
		}(i, src)
	}
	wg.Wait()
	close(results)

	ordered := make([][]Quote, len(a.sources))
	for res := range results {
		if res.err != nil {
			logger.WarnWithFields("Price source failed", res.err,
				logger.WithSource(a.sources[res.index].Name()),
				logger.WithBarcode(barcode))
			continue
		}
		ordered[res.index] = res.quotes
	}

	comparison := buildComparison(barcode, ordered)
	result := "empty"
	if len(comparison.Quotes) > 0 {
		result = "quotes"
	}
	metrics.Get().AggregationSeconds.WithLabelValues(result).Observe(time.Since(start).Seconds())

	if len(comparison.Quotes) > 0 {
		a.toCache(ctx, barcode, comparison)
	}
	return comparison, nil
}

// buildComparison dedupes quotes by retailer (first source wins), sorts
// ascending by parsed price with unparsable prices last, and marks the
// cheapest parsable quote as best.
func buildComparison(barcode string, ordered [][]Quote) *Comparison {
	seen := make(map[string]bool)
	var quotes []Quote
	for _, batch := range ordered {
		for _, q := range batch {
			key := strings.ToLower(strings.TrimSpace(q.Retailer))
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			quotes = append(quotes, q)
		}
	}

	sort.SliceStable(quotes, func(i, j int) bool {
		pi, erri := util.ParsePrice(quotes[i].Price)
		pj, errj := util.ParsePrice(quotes[j].Price)
		if erri != nil {
			return false
		}
		if errj != nil {
			return true
		}
		return pi < pj
	})

	comparison := &Comparison{Barcode: barcode, Quotes: quotes}
	if len(quotes) > 0 {
		if _, err := util.ParsePrice(quotes[0].Price); err == nil {
			best := quotes[0]
			comparison.Best = &best
		}
	}
	return comparison
}

func priceCacheKey(barcode string) string {
	return "pricing:compare:" + barcode
}

func (a *Aggregator) fromCache(ctx context.Context, barcode string) (*Comparison, bool) {
	if a.cache == nil {
		return nil, false
	}
	var comparison Comparison
	err := a.cache.GetJSON(ctx, priceCacheKey(barcode), &comparison)
	if err != nil {
		if !cache.IsNil(err) {
			logger.WarnWithFields("Price cache read failed", err, logger.WithBarcode(barcode))
		}
		metrics.Get().CacheMissesTotal.WithLabelValues("pricing").Inc()
		return nil, false
	}
	metrics.Get().CacheHitsTotal.WithLabelValues("pricing").Inc()
	return &comparison, true
}

func (a *Aggregator) toCache(ctx context.Context, barcode string, comparison *Comparison) {
	if a.cache == nil {
		return
	}
	if err := a.cache.SetJSON(ctx, priceCacheKey(barcode), comparison, priceCacheTTL); err != nil {
		logger.WarnWithFields("Price cache write failed", err, logger.WithBarcode(barcode))
	}
}
