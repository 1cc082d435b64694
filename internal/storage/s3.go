package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Ensure S3ImageMirror implements ImageMirror
var _ ImageMirror = (*S3ImageMirror)(nil)

const maxImageBytes = 10 << 20 // 10 MB

// S3ImageMirror downloads product images from external catalogs and
// re-hosts them in an S3 bucket fronted by a CDN
type S3ImageMirror struct {
	client     *s3.Client
	httpClient *http.Client
	bucket     string
	region     string
	baseURL    string
}

// NewS3ImageMirror creates a new S3-backed image mirror
func NewS3ImageMirror(region, bucket, baseURL string) (*S3ImageMirror, error) {
	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &S3ImageMirror{
		client: s3.NewFromConfig(cfg),
		httpClient: &http.Client{
			Timeout:   20 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		bucket:  bucket,
		region:  region,
		baseURL: baseURL,
	}, nil
}

// Mirror fetches sourceURL and stores it under products/{productID}{ext},
// returning the public URL. Re-mirroring the same product overwrites the
// previous copy, which is what we want when a catalog updates its image.
func (u *S3ImageMirror) Mirror(ctx context.Context, productID, sourceURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create image request: %w", err)
	}

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch product image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("image fetch returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read image body: %w", err)
	}
	if len(data) > maxImageBytes {
		return "", fmt.Errorf("image exceeds %d byte limit", maxImageBytes)
	}

	extension := path.Ext(strings.Split(sourceURL, "?")[0])
	if extension == "" {
		extension = ".jpg"
	}
	key := fmt.Sprintf("products/%s%s", productID, extension)

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = getContentType(extension)
	}

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(u.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("max-age=86400"),
		Metadata: map[string]string{
			"product-id": productID,
			"source-url": sourceURL,
			"mirrored":   time.Now().Format(time.RFC3339),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	return fmt.Sprintf("%s/%s", strings.TrimSuffix(u.baseURL, "/"), key), nil
}

// CheckBucketAccess verifies that we can access the S3 bucket
func (u *S3ImageMirror) CheckBucketAccess(ctx context.Context) error {
	_, err := u.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(u.bucket),
	})
	if err != nil {
		return fmt.Errorf("cannot access S3 bucket %s: %w", u.bucket, err)
	}
	return nil
}

// getContentType returns the appropriate MIME type for image extensions
func getContentType(extension string) string {
	switch strings.ToLower(extension) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	default:
		return "application/octet-stream"
	}
}
