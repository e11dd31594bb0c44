package services

import (
	"context"

	"github.com/tabgrab/tabgrab/internal/models"
)

// SongDownloader defines the interface for downloading all tabs of a song
type SongDownloader interface {
	// Download runs the whole pipeline for one song URL: load the page,
	// read its state, capture and resolve the CDN requests, fetch every
	// track payload and write the output directory. Fatal failures abort
	// before any file is written; per-track fetch failures degrade the
	// report instead.
	Download(ctx context.Context, songURL string) (*models.DownloadReport, error)
}
