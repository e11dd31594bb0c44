package browser

import (
	"context"

	"github.com/tabgrab/tabgrab/internal/models"
)

// LoadResult is what a session produces for one song page load: the final
// page source and every network request observed during the load window.
type LoadResult struct {
	PageSource string
	Requests   []models.CapturedRequest
}

// Session is the browser capability the downloader consumes: navigate to a
// song page, wait for it to settle, and report the page source together
// with the captured network traffic. Implementations must attach their
// network listener before navigation begins; requests fired during the
// initial load are the primary source of track data.
type Session interface {
	Load(ctx context.Context, songURL string) (*LoadResult, error)

	// Close releases the underlying browser process. Safe to call on every
	// exit path, including after a failed Load.
	Close() error
}
