package browser

import (
	"net/url"
	"strings"
	"sync"

	"github.com/tabgrab/tabgrab/internal/models"
)

// Capture accumulates the network requests observed while a page loads.
// It is scoped to a single load: created before navigation, drained once
// the load window closes, then discarded. Observe is safe to call from the
// browser's event goroutines.
type Capture struct {
	cdnHostPattern string

	mu       sync.Mutex
	seen     map[string]struct{}
	requests []models.CapturedRequest
}

// NewCapture creates a capture scope classifying against the given CDN
// host pattern.
func NewCapture(cdnHostPattern string) *Capture {
	return &Capture{
		cdnHostPattern: cdnHostPattern,
		seen:           make(map[string]struct{}),
	}
}

// Observe records one request URL, deduplicating by exact URL. The same
// URL commonly shows up twice, once for requestWillBeSent and once for
// responseReceived.
func (c *Capture) Observe(rawURL string) {
	if rawURL == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.seen[rawURL]; ok {
		return
	}
	c.seen[rawURL] = struct{}{}
	c.requests = append(c.requests, models.CapturedRequest{
		URL:  rawURL,
		Kind: Classify(rawURL, c.cdnHostPattern),
	})
}

// Requests returns a copy of the captured set in observation order.
func (c *Capture) Requests() []models.CapturedRequest {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]models.CapturedRequest, len(c.requests))
	copy(out, c.requests)
	return out
}

// Classify decides whether a request URL looks like a track payload: the
// host must match the CDN pattern and the path must end in .json, which
// separates track data from page assets on the same CDN. Misclassified
// JSON assets are filtered later, when the fetched body fails to parse.
func Classify(rawURL, cdnHostPattern string) models.ResourceKind {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return models.KindOther
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return models.KindOther
	}
	if !strings.Contains(parsed.Host, cdnHostPattern) {
		return models.KindOther
	}
	if !strings.HasSuffix(parsed.Path, ".json") {
		return models.KindOther
	}
	return models.KindTrackData
}
