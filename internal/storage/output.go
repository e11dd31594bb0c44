package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/tabgrab/tabgrab/internal/apperrors"
	"github.com/tabgrab/tabgrab/internal/config"
	"github.com/tabgrab/tabgrab/internal/models"
)

// MetadataFilename is the name of the summary file written at the end of
// every successful run.
const MetadataFilename = "metadata.json"

var (
	unsafeChars    = regexp.MustCompile(`[^\p{L}\p{N}_\s-]`)
	separatorRuns  = regexp.MustCompile(`[-\s]+`)
	underscoreRuns = regexp.MustCompile(`_+`)
)

// SanitizeName turns a free-form instrument or song label into a safe
// filename fragment: lowercased, punctuation stripped, separator runs
// collapsed to single underscores.
func SanitizeName(name string) string {
	safe := unsafeChars.ReplaceAllString(name, "")
	safe = separatorRuns.ReplaceAllString(safe, "_")
	safe = underscoreRuns.ReplaceAllString(safe, "_")
	return strings.ToLower(strings.Trim(safe, "_"))
}

// TrackFilename derives the local filename for a track descriptor. The
// index prefix alone guarantees uniqueness since indices are unique.
func TrackFilename(desc models.TrackDescriptor) string {
	name := SanitizeName(desc.Instrument)
	if name == "" {
		name = "track"
	}
	return fmt.Sprintf("%02d_%s.json", desc.Index, name)
}

// DefaultOutputDir derives the output directory used when the caller does
// not name one: <artist>_<title> under the working directory.
func DefaultOutputDir(info *models.SongInfo) string {
	return fmt.Sprintf("%s_%s", SanitizeName(info.Artist), SanitizeName(info.Title))
}

// PrepareOutputDir creates the output directory if absent. An existing
// non-empty directory is refused unless force is set, so a previous run's
// output is never silently overwritten.
func PrepareOutputDir(path string, force bool) error {
	entries, err := os.ReadDir(path)
	if err != nil {
		if os.IsNotExist(err) {
			if mkErr := os.MkdirAll(path, 0o755); mkErr != nil {
				return apperrors.NewOutputDirectoryError(path, fmt.Sprintf("cannot create: %v", mkErr))
			}
			return nil
		}
		return apperrors.NewOutputDirectoryError(path, fmt.Sprintf("cannot read: %v", err))
	}

	if len(entries) > 0 && !force {
		return apperrors.NewOutputDirectoryError(path, "already exists and is not empty (use --force to overwrite)")
	}
	return nil
}

// Writer persists track payloads and run metadata into one output
// directory. WriteTrack is safe for concurrent use; the written-file
// accumulator is synchronized so parallel fetch workers can record their
// results directly.
type Writer struct {
	dir string

	mu      sync.Mutex
	written map[int]string // descriptor index -> filename
	bytes   int64
}

// NewWriter creates a writer rooted at the prepared output directory.
func NewWriter(dir string) *Writer {
	return &Writer{
		dir:     dir,
		written: make(map[int]string),
	}
}

// Dir returns the output directory path.
func (w *Writer) Dir() string {
	return w.dir
}

// WriteTrack writes one track payload verbatim and records it in the
// accumulator under its descriptor index.
func (w *Writer) WriteTrack(index int, filename string, body []byte) error {
	logger := config.GetLogger()

	path := filepath.Join(w.dir, filename)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("failed to write track file %s: %w", filename, err)
	}

	w.mu.Lock()
	w.written[index] = filename
	w.bytes += int64(len(body))
	w.mu.Unlock()

	logger.Debug().Str("file", filename).Int("size", len(body)).Msg("Wrote track file")
	return nil
}

// Files returns the filenames written so far, ordered by descriptor index.
func (w *Writer) Files() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	indices := make([]int, 0, len(w.written))
	for idx := range w.written {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	files := make([]string, 0, len(indices))
	for _, idx := range indices {
		files = append(files, w.written[idx])
	}
	return files
}

// TotalBytes returns the byte total of all written track files.
func (w *Writer) TotalBytes() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.bytes
}

// WriteMetadata writes the metadata.json summary. Called once, after all
// fetch attempts completed, whatever their outcome.
func (w *Writer) WriteMetadata(meta models.Metadata) error {
	raw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	raw = append(raw, '\n')

	path := filepath.Join(w.dir, MetadataFilename)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", MetadataFilename, err)
	}
	return nil
}
