package storage

import (
	"context"
	"fmt"
	"image"
	"net/http"
	"time"

	"github.com/disintegration/imaging"
)

// SlideFetcher retrieves a decoded slide image from a backing store.
type SlideFetcher interface {
	FetchSlide(ctx context.Context, slideURL string) (image.Image, error)
}

// HTTPSlideFetcher implements SlideFetcher over plain HTTP(S).
type HTTPSlideFetcher struct {
	client *http.Client
}

// NewHTTPSlideFetcher creates an HTTP slide fetcher tuned for single large
// image downloads.
func NewHTTPSlideFetcher() SlideFetcher {
	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		DisableCompression:     false,
		MaxResponseHeaderBytes: 4096,
	}

	return &HTTPSlideFetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   30 * time.Second,

			// Prevent redirect chains to unexpected hosts
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		},
	}
}

// FetchSlide downloads and decodes a slide. 5xx responses are retried up to
// three attempts with linear backoff; 4xx responses fail immediately.
// Decoding honors EXIF orientation so scanner rotation does not skew the
// morphometry downstream.
func (h *HTTPSlideFetcher) FetchSlide(ctx context.Context, slideURL string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, slideURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	req.Header.Set("Accept", "image/jpeg, image/png, image/tiff, */*")
	req.Header.Set("User-Agent", "Go-Histopath/1.0")

	var resp *http.Response
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		resp, err = h.client.Do(req)
		if err != nil {
			lastErr = err
		} else if resp.StatusCode == http.StatusOK {
			break
		} else {
			code := resp.StatusCode
			resp.Body.Close()
			resp = nil
			lastErr = fmt.Errorf("unexpected status code %d", code)
			if code >= 400 && code < 500 {
				// Client errors are not retryable.
				break
			}
		}
		if attempt < 2 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt+1) * time.Second):
			}
		}
	}
	if resp == nil {
		return nil, fmt.Errorf("failed to fetch slide after retries: %w", lastErr)
	}
	defer resp.Body.Close()

	img, err := imaging.Decode(resp.Body, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode slide: %w", err)
	}
	return img, nil
}
