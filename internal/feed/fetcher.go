// Package feed retrieves the shipment list from a file, an HTTP endpoint or
// the built-in demo data.
package feed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/litescript/ls-freight/internal/shipment"
	"github.com/litescript/ls-freight/internal/version"
)

const (
	// DefaultTimeout for HTTP requests.
	DefaultTimeout = 15 * time.Second

	// maxBodyBytes bounds a feed response.
	maxBodyBytes = 8 << 20
)

// Source names reported in FetchResult.
const (
	SourceDemo = "demo"
	SourceFile = "file"
	SourceHTTP = "http"
)

// ErrFeedTooLarge is returned for a response body over maxBodyBytes.
var ErrFeedTooLarge = errors.New("feed exceeds 8 MiB")

// Fetcher retrieves shipment lists.
type Fetcher struct {
	client  *http.Client
	url     string
	path    string
	timeout time.Duration
	now     func() time.Time
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithURL fetches the list from an HTTP endpoint serving JSON.
func WithURL(url string) FetcherOption {
	return func(f *Fetcher) {
		f.url = url
	}
}

// WithPath reads the list from a JSON file. A path takes precedence over a
// URL.
func WithPath(path string) FetcherOption {
	return func(f *Fetcher) {
		f.path = path
	}
}

// WithTimeout sets the HTTP request timeout.
func WithTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) FetcherOption {
	return func(f *Fetcher) {
		f.client = client
	}
}

// NewFetcher creates a fetcher. With neither a path nor a URL it serves the
// demo shipments.
func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		timeout: DefaultTimeout,
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(f)
	}

	if f.client == nil {
		f.client = &http.Client{
			Timeout: f.timeout,
		}
	}

	return f
}

// FetchResult contains the result of a fetch operation.
type FetchResult struct {
	Shipments []shipment.Shipment
	Source    string
	RawBytes  []byte
	FetchedAt time.Time
	Duration  time.Duration
	Error     error
}

// Fetch retrieves and decodes the shipment list.
func (f *Fetcher) Fetch(ctx context.Context) FetchResult {
	start := f.now()
	result := FetchResult{
		FetchedAt: start,
		Source:    f.Source(),
	}

	if result.Source == SourceDemo {
		result.Shipments = shipment.DemoShipments(start)
		result.Duration = time.Since(start)
		return result
	}

	raw, err := f.fetchRaw(ctx)
	result.Duration = time.Since(start)
	if err != nil {
		result.Error = err
		return result
	}
	result.RawBytes = raw

	list, err := shipment.DecodeList(bytes.NewReader(raw))
	if err != nil {
		result.Error = fmt.Errorf("decode shipments: %w", err)
		return result
	}
	// An empty list is valid: every shipment was removed.
	if list == nil {
		list = []shipment.Shipment{}
	}
	result.Shipments = list

	return result
}

func (f *Fetcher) fetchRaw(ctx context.Context) ([]byte, error) {
	if f.path != "" {
		data, err := os.ReadFile(f.path)
		if err != nil {
			return nil, fmt.Errorf("read shipments file: %w", err)
		}
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", "ls-freight/"+version.Version+" (shipment map)")
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch shipments: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if len(body) > maxBodyBytes {
		return nil, ErrFeedTooLarge
	}

	return body, nil
}

// Source reports where the fetcher reads from.
func (f *Fetcher) Source() string {
	switch {
	case f.path != "":
		return SourceFile
	case f.url != "":
		return SourceHTTP
	default:
		return SourceDemo
	}
}

// Location returns the configured path or URL, empty for demo data.
func (f *Fetcher) Location() string {
	if f.path != "" {
		return f.path
	}
	return f.url
}
