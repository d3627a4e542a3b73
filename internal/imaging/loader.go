package imaging

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/webp" // Register WebP format decoder

	"github.com/ironsheep/annotation-mcp/internal/transform"
)

// ErrImageLoadFailure is returned when an image source cannot be fetched or
// decoded. The annotation widget shows a placeholder in that case.
var ErrImageLoadFailure = errors.New("image load failed")

// LoaderOptions controls how remote images are fetched.
type LoaderOptions struct {
	// Attempts is the number of fetch attempts for http(s) sources.
	Attempts uint

	// Delay is the base delay between attempts.
	Delay time.Duration

	// Timeout bounds a single http request.
	Timeout time.Duration

	// MaxBytes caps the size of a fetched or read image.
	MaxBytes int64
}

// DefaultLoaderOptions returns the stock loader settings.
func DefaultLoaderOptions() LoaderOptions {
	return LoaderOptions{
		Attempts: 3,
		Delay:    250 * time.Millisecond,
		Timeout:  10 * time.Second,
		MaxBytes: 32 << 20,
	}
}

type cachedImage struct {
	img    image.Image
	format string
	size   int64
}

// ImageCache provides thread-safe caching of loaded images to avoid redundant
// reads and downloads.
//
// Images are keyed by their source string, which may be:
//   - a file path (absolute or relative)
//   - an http:// or https:// URL
//   - a data: URI with base64 payload
//
// Once an image is loaded, subsequent Load calls for the same source return the
// cached copy. Failed loads are not cached, so a later call retries.
//
// ImageCache is safe for concurrent use by multiple goroutines.
//
// # Memory Management
//
// Cached images remain in memory until explicitly removed via Evict or Clear.
// Closing an annotation workspace evicts its image.
//
// # Example Usage
//
//	cache := imaging.NewImageCache(imaging.DefaultLoaderOptions())
//	size, err := cache.Dimensions(ctx, "https://example.com/street.jpg")
//	if errors.Is(err, imaging.ErrImageLoadFailure) {
//	    // show placeholder
//	}
type ImageCache struct {
	mu     sync.RWMutex
	images map[string]cachedImage
	opts   LoaderOptions
	client *http.Client
}

// NewImageCache creates and initializes a new empty image cache.
//
// Zero fields in opts fall back to DefaultLoaderOptions.
func NewImageCache(opts LoaderOptions) *ImageCache {
	def := DefaultLoaderOptions()
	if opts.Attempts == 0 {
		opts.Attempts = def.Attempts
	}
	if opts.Delay <= 0 {
		opts.Delay = def.Delay
	}
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = def.MaxBytes
	}
	return &ImageCache{
		images: make(map[string]cachedImage),
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout},
	}
}

// Load retrieves an image from the cache or loads it from its source.
//
// Supported formats are PNG, JPEG, GIF, BMP and WebP.
//
// # Errors
//
// Every failure wraps ErrImageLoadFailure:
//   - the file does not exist or cannot be read
//   - the URL cannot be fetched after the configured attempts, or answers
//     with a non-2xx status (4xx responses are not retried)
//   - the data is larger than MaxBytes
//   - the data is not a supported image
func (c *ImageCache) Load(ctx context.Context, source string) (image.Image, error) {
	entry, err := c.load(ctx, source)
	if err != nil {
		return nil, err
	}
	return entry.img, nil
}

func (c *ImageCache) load(ctx context.Context, source string) (cachedImage, error) {
	c.mu.RLock()
	if entry, ok := c.images[source]; ok {
		c.mu.RUnlock()
		return entry, nil
	}
	c.mu.RUnlock()

	data, err := c.read(ctx, source)
	if err != nil {
		return cachedImage{}, fmt.Errorf("%w: %s: %v", ErrImageLoadFailure, describe(source), err)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return cachedImage{}, fmt.Errorf("%w: %s: failed to decode image: %v", ErrImageLoadFailure, describe(source), err)
	}

	entry := cachedImage{img: img, format: format, size: int64(len(data))}
	c.mu.Lock()
	c.images[source] = entry
	c.mu.Unlock()

	return entry, nil
}

func (c *ImageCache) read(ctx context.Context, source string) ([]byte, error) {
	switch {
	case source == "":
		return nil, errors.New("empty image source")
	case strings.HasPrefix(source, "data:"):
		return decodeDataURI(source, c.opts.MaxBytes)
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		return c.fetch(ctx, source)
	}

	f, err := os.Open(source)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()
	return readLimited(f, c.opts.MaxBytes)
}

// fetch downloads url, retrying transport errors and 5xx responses.
func (c *ImageCache) fetch(ctx context.Context, url string) ([]byte, error) {
	var data []byte
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			resp, err := c.client.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				return retry.Unrecoverable(fmt.Errorf("unexpected status: %d", resp.StatusCode))
			}
			if resp.StatusCode < 200 || resp.StatusCode > 299 {
				return fmt.Errorf("unexpected status: %d", resp.StatusCode)
			}

			body, err := readLimited(resp.Body, c.opts.MaxBytes)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			data = body
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.opts.Attempts),
		retry.Delay(c.opts.Delay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("image exceeds %d bytes", limit)
	}
	return data, nil
}

// decodeDataURI accepts data:[<mediatype>];base64,<payload>. The payload is
// decoded as a stream so it is held to limit like any other source.
func decodeDataURI(uri string, limit int64) ([]byte, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok || !strings.HasSuffix(header, ";base64") {
		return nil, errors.New("data URI must be base64 encoded")
	}
	return readLimited(base64.NewDecoder(base64.StdEncoding, strings.NewReader(payload)), limit)
}

// describe shortens data URIs in error messages.
func describe(source string) string {
	if strings.HasPrefix(source, "data:") {
		if header, _, ok := strings.Cut(source, ","); ok {
			return header + ",..."
		}
	}
	return source
}

// Clear removes all images from the cache, freeing the associated memory.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]cachedImage)
	c.mu.Unlock()
}

// Evict removes a specific image from the cache by its source.
//
// If the source is not in the cache, this method does nothing.
func (c *ImageCache) Evict(source string) {
	c.mu.Lock()
	delete(c.images, source)
	c.mu.Unlock()
}

// Len returns the number of cached images.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

// ImageInfo contains metadata about a loaded image.
type ImageInfo struct {
	// Width is the natural image width in pixels.
	Width int `json:"width"`

	// Height is the natural image height in pixels.
	Height int `json:"height"`

	// Format is the decoder that recognized the data: "png", "jpeg", "gif",
	// "bmp" or "webp".
	Format string `json:"format"`

	// HasAlpha indicates whether the decoded image carries an alpha channel.
	HasAlpha bool `json:"has_alpha"`

	// SizeBytes is the size of the encoded image.
	SizeBytes int64 `json:"size_bytes"`
}

// Size returns the natural size as a transform.Size.
func (i ImageInfo) Size() transform.Size {
	return transform.Size{Width: float64(i.Width), Height: float64(i.Height)}
}

// Info loads an image (if not already cached) and returns its metadata.
func (c *ImageCache) Info(ctx context.Context, source string) (*ImageInfo, error) {
	entry, err := c.load(ctx, source)
	if err != nil {
		return nil, err
	}

	hasAlpha := false
	switch entry.img.(type) {
	case *image.RGBA, *image.NRGBA, *image.RGBA64, *image.NRGBA64, *image.Paletted:
		hasAlpha = true
	}

	bounds := entry.img.Bounds()
	return &ImageInfo{
		Width:     bounds.Dx(),
		Height:    bounds.Dy(),
		Format:    entry.format,
		HasAlpha:  hasAlpha,
		SizeBytes: entry.size,
	}, nil
}

// Dimensions returns the natural size of an image. The image is loaded into
// the cache if not already present.
func (c *ImageCache) Dimensions(ctx context.Context, source string) (transform.Size, error) {
	img, err := c.Load(ctx, source)
	if err != nil {
		return transform.Size{}, err
	}
	b := img.Bounds()
	size := transform.Size{Width: float64(b.Dx()), Height: float64(b.Dy())}
	if !size.Valid() {
		return transform.Size{}, fmt.Errorf("%w: %s: %w", ErrImageLoadFailure, describe(source), transform.ErrNoDimensions)
	}
	return size, nil
}
