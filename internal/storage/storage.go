package storage

import "context"

// ImageMirror copies a remote product image into storage we control and
// returns the durable URL. External barcode databases rot their image links;
// mirroring on first scan keeps the catalog rendering.
type ImageMirror interface {
	Mirror(ctx context.Context, productID, sourceURL string) (string, error)
}

// NoopMirror returns the source URL untouched. Used when object storage is
// not configured (local development, tests).
type NoopMirror struct{}

func (NoopMirror) Mirror(ctx context.Context, productID, sourceURL string) (string, error) {
	return sourceURL, nil
}
