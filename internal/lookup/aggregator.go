package lookup

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/magickw/ShopSmartly-sub000/internal/cache"
	"github.com/magickw/ShopSmartly-sub000/internal/logger"
	"github.com/magickw/ShopSmartly-sub000/internal/metrics"
)

const (
	lookupCacheTTL     = 24 * time.Hour
	defaultFanOutLimit = 8 * time.Second
)

var tracer = otel.Tracer("shopsmartly/lookup")

// Aggregator fans a barcode out to every configured source concurrently and
// merges whatever comes back. Source order is priority order: when two
// sources disagree on a field, the earlier source wins.
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

type sourceResult struct {
	index int
	info  *ProductInfo
	err   error
}

// Lookup resolves a barcode across all sources. Returns ErrNotFound only
// when no source knows the product; individual source failures are logged
// and counted but never fail the whole lookup.
func (a *Aggregator) Lookup(ctx context.Context, barcode string) (*ProductInfo, error) {
	ctx, span := tracer.Start(ctx, "lookup.Aggregator.Lookup")
	defer span.End()
	span.SetAttributes(attribute.String("barcode", barcode))

	if cached, ok := a.fromCache(ctx, barcode); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return cached, nil
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	results := make(chan sourceResult, len(a.sources))
	var wg sync.WaitGroup
	for i, src := range a.sources {
		wg.Add(1)
		go func(index int, src Source) {
			defer wg.Done()
			start := time.Now()
			info, err := src.Lookup(ctx, barcode)
			m := metrics.Get()
			m.LookupRequestsTotal.WithLabelValues(src.Name()).Inc()
			m.LookupDuration.WithLabelValues(src.Name()).Observe(time.Since(start).Seconds())
			if err != nil && !errors.Is(err, ErrNotFound) {
				m.LookupErrorsTotal.WithLabelValues(src.Name()).Inc()
			}
			results <- sourceResult{index: index, info: info, err: err}
		}(i, src)
	}
	wg.Wait()
	close(results)

	ordered := make([]*ProductInfo, len(a.sources))
	for res := range results {
		if res.err != nil {
			if !errors.Is(res.err, ErrNotFound) {
				logger.WarnWithFields("Barcode source failed", res.err,
					logger.WithSource(a.sources[res.index].Name()),
					logger.WithBarcode(barcode))
			}
			continue
		}
		ordered[res.index] = res.info
	}

	merged := Merge(barcode, ordered)
	if merged == nil {
		return nil, ErrNotFound
	}

	a.toCache(ctx, barcode, merged)
	return merged, nil
}

// Merge folds per-source results into one record. Results must be in source
// priority order; the first non-empty value wins for every field. A nil
// return means nothing resolved.
func Merge(barcode string, results []*ProductInfo) *ProductInfo {
	var merged *ProductInfo
	for _, info := range results {
		if info == nil {
			continue
		}
		if merged == nil {
			copied := *info
			copied.Barcode = barcode
			merged = &copied
			continue
		}
		if merged.Name == "" {
			merged.Name = info.Name
		}
		if merged.Brand == "" {
			merged.Brand = info.Brand
		}
		if merged.Category == "" {
			merged.Category = info.Category
		}
		if merged.Description == "" {
			merged.Description = info.Description
		}
		if merged.ImageURL == "" {
			merged.ImageURL = info.ImageURL
		}
		if merged.EcoScore == nil {
			merged.EcoScore = info.EcoScore
		}
		if merged.EcoDetails == "" {
			merged.EcoDetails = info.EcoDetails
		}
	}
	if merged != nil && merged.Name == "" {
		return nil
	}
	return merged
}

func lookupCacheKey(barcode string) string {
	return fmt.Sprintf("lookup:product:%s", barcode)
}

func (a *Aggregator) fromCache(ctx context.Context, barcode string) (*ProductInfo, bool) {
	if a.cache == nil {
		return nil, false
	}
	var info ProductInfo
	err := a.cache.GetJSON(ctx, lookupCacheKey(barcode), &info)
	if err != nil {
		if !cache.IsNil(err) {
			logger.WarnWithFields("Lookup cache read failed", err, logger.WithBarcode(barcode))
		}
		metrics.Get().CacheMissesTotal.WithLabelValues("lookup").Inc()
		return nil, false
	}
	metrics.Get().CacheHitsTotal.WithLabelValues("lookup").Inc()
	return &info, true
}

func (a *Aggregator) toCache(ctx context.Context, barcode string, info *ProductInfo) {
	if a.cache == nil {
		return
	}
	if err := a.cache.SetJSON(ctx, lookupCacheKey(barcode), info, lookupCacheTTL); err != nil {
		logger.WarnWithFields("Lookup cache write failed", err, logger.WithBarcode(barcode))
	}
}
