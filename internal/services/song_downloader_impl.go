package services

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/tabgrab/tabgrab/internal/apperrors"
	"github.com/tabgrab/tabgrab/internal/browser"
	"github.com/tabgrab/tabgrab/internal/config"
	"github.com/tabgrab/tabgrab/internal/fetch"
	"github.com/tabgrab/tabgrab/internal/models"
	"github.com/tabgrab/tabgrab/internal/parser"
	"github.com/tabgrab/tabgrab/internal/pdf"
	"github.com/tabgrab/tabgrab/internal/resolver"
	"github.com/tabgrab/tabgrab/internal/storage"
)

// SessionFactory opens a browser session. Injected so tests can substitute
// a fixture-backed session and never need a live browser.
type SessionFactory func(ctx context.Context, cfg *config.Config) (browser.Session, error)

// defaultSongDownloader implements SongDownloader on top of a real Chrome
// session.
type defaultSongDownloader struct {
	cfg        *config.Config
	newSession SessionFactory
	parser     *parser.StateParser
	resolver   *resolver.TrackResolver
	fetcher    *fetch.TrackFetcher
	renderer   *pdf.Renderer
	now        func() time.Time
}

// NewSongDownloader creates a downloader that drives a real Chrome
// process.
func NewSongDownloader(cfg *config.Config) SongDownloader {
	return &defaultSongDownloader{
		cfg: cfg,
		newSession: func(ctx context.Context, cfg *config.Config) (browser.Session, error) {
			return browser.NewChromeSession(ctx, cfg)
		},
		parser:   parser.NewStateParser(),
		resolver: resolver.NewTrackResolver(),
		fetcher:  fetch.NewTrackFetcher(cfg),
		renderer: pdf.NewRenderer(),
		now:      time.Now,
	}
}

// ValidateSongURL checks that a URL points at a song page: http(s), the
// configured host, and the tab path prefix.
func ValidateSongURL(songURL, hostPattern string) error {
	parsed, err := url.Parse(songURL)
	if err != nil {
		return apperrors.NewInvalidSongURLError(songURL)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return apperrors.NewInvalidSongURLError(songURL)
	}
	if !strings.Contains(parsed.Host, hostPattern) {
		return apperrors.NewInvalidSongURLError(songURL)
	}
	if !strings.Contains(parsed.Path, "/a/wsa/") {
		return apperrors.NewInvalidSongURLError(songURL)
	}
	return nil
}

// Download implements SongDownloader.
func (d *defaultSongDownloader) Download(ctx context.Context, songURL string) (*models.DownloadReport, error) {
	logger := config.GetLogger()

	if err := ValidateSongURL(songURL, d.cfg.SongHostPattern); err != nil {
		return nil, err
	}

	session, err := d.newSession(ctx, d.cfg)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			logger.Warn().Err(closeErr).Msg("Failed to close browser session")
		}
	}()

	loaded, err := session.Load(ctx, songURL)
	if err != nil {
		return nil, fmt.Errorf("song page load failed: %w", err)
	}

	info, err := d.parser.Parse(songURL, strings.NewReader(loaded.PageSource))
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("artist", info.Artist).
		Str("title", info.Title).
		Int("tracks", len(info.Tracks)).
		Msg("Song state extracted")

	resolved, err := d.resolver.Resolve(songURL, info.Tracks, loaded.Requests)
	if err != nil {
		return nil, err
	}

	outputDir := d.cfg.Output.Dir
	if outputDir == "" {
		outputDir = storage.DefaultOutputDir(info)
	}
	if err := storage.PrepareOutputDir(outputDir, d.cfg.Output.Force); err != nil {
		return nil, err
	}

	writer := storage.NewWriter(outputDir)
	failed := d.fetcher.FetchAll(ctx, resolved, writer)

	meta := models.NewMetadata(songURL, *info, d.now(), writer.Files())
	if err := writer.WriteMetadata(meta); err != nil {
		return nil, err
	}

	report := &models.DownloadReport{
		SongInfo:   *info,
		OutputDir:  outputDir,
		Files:      writer.Files(),
		TotalBytes: writer.TotalBytes(),
	}
	for _, f := range failed {
		report.FailedTracks = append(report.FailedTracks, f.Track.LocalFilename)
	}

	if d.cfg.GeneratePDF {
		report.PDFCount = d.renderTabs(info, resolved, failed, outputDir)
	}

	logger.Info().
		Int("tracks", len(report.Files)).
		Int("failed", len(report.FailedTracks)).
		Int64("bytes", report.TotalBytes).
		Str("output_dir", outputDir).
		Msg("Download finished")

	return report, nil
}

// renderTabs renders a PDF for each successfully written track file. PDF
// failures are logged and skipped; the JSON outputs are already on disk
// and stay untouched.
func (d *defaultSongDownloader) renderTabs(info *models.SongInfo, resolved []models.ResolvedTrack, failed []fetch.FailedTrack, outputDir string) int {
	logger := config.GetLogger()

	failedNames := make(map[string]struct{}, len(failed))
	for _, f := range failed {
		failedNames[f.Track.LocalFilename] = struct{}{}
	}

	count := 0
	for _, track := range resolved {
		if _, isFailed := failedNames[track.LocalFilename]; isFailed {
			continue
		}

		jsonPath := filepath.Join(outputDir, track.LocalFilename)
		pdfPath := strings.TrimSuffix(jsonPath, ".json") + ".pdf"

		trackInfo := &pdf.TrackInfo{
			Title:      info.Title,
			Artist:     info.Artist,
			Instrument: track.Descriptor.Instrument,
			Tuning:     track.Descriptor.Tuning,
		}
		if err := d.renderer.RenderFile(jsonPath, pdfPath, trackInfo); err != nil {
			logger.Warn().Err(err).Str("file", track.LocalFilename).Msg("PDF rendering failed for track")
			continue
		}
		count++
	}

	logger.Info().Int("pdfs", count).Msg("Rendered tab PDFs")
	return count
}
