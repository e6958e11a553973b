package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxDescriptorSize caps the off-chain JSON body.
const maxDescriptorSize = 1 << 20

// Descriptor is the off-chain JSON document referenced by a Metaplex URI.
type Descriptor struct {
	Name        string                 `json:"name"`
	Symbol      string                 `json:"symbol"`
	Description string                 `json:"description"`
	Image       string                 `json:"image"`
	Extensions  map[string]interface{} `json:"extensions"`
}

// HasSocials reports whether any extension entry carries a non-empty value.
func (d *Descriptor) HasSocials() bool {
	for _, v := range d.Extensions {
		switch val := v.(type) {
		case nil:
		case string:
			if strings.TrimSpace(val) != "" {
				return true
			}
		default:
			return true
		}
	}
	return false
}

// DescriptorFetcher retrieves off-chain descriptors.
type DescriptorFetcher interface {
	FetchDescriptor(ctx context.Context, uri string) (*Descriptor, error)
}

// HTTPDescriptorFetcher fetches descriptors over HTTP(S).
type HTTPDescriptorFetcher struct {
	client *http.Client
}

// NewHTTPDescriptorFetcher creates a fetcher with the given request timeout.
func NewHTTPDescriptorFetcher(timeout time.Duration) *HTTPDescriptorFetcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPDescriptorFetcher{client: &http.Client{Timeout: timeout}}
}

// FetchDescriptor GETs and decodes the JSON at uri.
func (f *HTTPDescriptorFetcher) FetchDescriptor(ctx context.Context, uri string) (*Descriptor, error) {
	if uri == "" {
		return nil, fmt.Errorf("empty descriptor uri")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch descriptor: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch descriptor: unexpected status %d", resp.StatusCode)
	}

	var d Descriptor
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxDescriptorSize)).Decode(&d); err != nil {
		return nil, fmt.Errorf("decode descriptor: %w", err)
	}
	return &d, nil
}
