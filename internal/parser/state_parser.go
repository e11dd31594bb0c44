package parser

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/tabgrab/tabgrab/internal/apperrors"
	"github.com/tabgrab/tabgrab/internal/config"
	"github.com/tabgrab/tabgrab/internal/models"

	"github.com/PuerkitoBio/goquery"
)

// StateParser extracts the embedded song state payload from a loaded page.
//
// The song page embeds a percent-encoded JSON snapshot of its state in a
// <script id="state"> element. The parser locates that element, decodes
// the payload and maps the meta.current object into a SongInfo.
type StateParser struct{}

// NewStateParser creates a new state parser instance
func NewStateParser() *StateParser {
	return &StateParser{}
}

// stateDocument mirrors the fragment of the page state we care about.
type stateDocument struct {
	Meta struct {
		Current *struct {
			Title        string       `json:"title"`
			Artist       string       `json:"artist"`
			SongID       int          `json:"songId"`
			RevisionID   int          `json:"revisionId"`
			DefaultTrack int          `json:"defaultTrack"`
			Tracks       []stateTrack `json:"tracks"`
		} `json:"current"`
	} `json:"meta"`
}

type stateTrack struct {
	Title      string `json:"title"`
	Name       string `json:"name"`
	Instrument string `json:"instrument"`
	Tuning     []int  `json:"tuning"`
}

// label returns the best available instrument label for a track, falling
// back to a positional placeholder when the state carries none.
func (t *stateTrack) label(index int) string {
	switch {
	case t.Title != "":
		return t.Title
	case t.Name != "":
		return t.Name
	case t.Instrument != "":
		return t.Instrument
	default:
		return fmt.Sprintf("track_%d", index)
	}
}

// Parse reads a page source and produces the SongInfo it embeds.
// The pageURL is only used for error context.
// A page without a state payload fails with *apperrors.ErrStateNotFound; a
// state payload without a track list yields a SongInfo with zero tracks.
func (p *StateParser) Parse(pageURL string, body io.Reader) (*models.SongInfo, error) {
	logger := config.GetLogger()

	utf8Body, err := NewUTF8Reader(body)
	if err != nil {
		return nil, fmt.Errorf("failed to detect page charset: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(utf8Body)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to parse HTML document")
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	stateText := strings.TrimSpace(doc.Find("script#state").First().Text())
	if stateText == "" {
		logger.Debug().Str("url", pageURL).Msg("No state script found in page")
		return nil, apperrors.NewStateNotFoundError(pageURL, "state script missing")
	}

	payload := decodeStatePayload(stateText)

	var state stateDocument
	if err := json.Unmarshal([]byte(payload), &state); err != nil {
		logger.Debug().Err(err).Str("url", pageURL).Msg("Failed to parse state JSON")
		return nil, apperrors.NewStateNotFoundError(pageURL, fmt.Sprintf("state payload is not valid JSON: %v", err))
	}

	current := state.Meta.Current
	if current == nil {
		return nil, apperrors.NewStateNotFoundError(pageURL, "state payload has no current song")
	}

	info := &models.SongInfo{
		Title:      current.Title,
		Artist:     current.Artist,
		SongID:     current.SongID,
		RevisionID: current.RevisionID,
		Tracks:     make([]models.TrackDescriptor, 0, len(current.Tracks)),
	}

	for i, track := range current.Tracks {
		info.Tracks = append(info.Tracks, models.TrackDescriptor{
			Index:      i,
			Instrument: track.label(i),
			Tuning:     track.Tuning,
		})
	}

	if len(info.Tracks) == 0 {
		logger.Warn().Str("url", pageURL).Msg("State payload carries no track list")
	}

	logger.Debug().
		Str("artist", info.Artist).
		Str("title", info.Title).
		Int("song_id", info.SongID).
		Int("revision_id", info.RevisionID).
		Int("tracks", len(info.Tracks)).
		Msg("Extracted song state")

	return info, nil
}

// decodeStatePayload percent-decodes the state script contents. The page
// stores the JSON percent-encoded; if decoding fails the raw text is
// returned so plain-JSON payloads still parse.
func decodeStatePayload(text string) string {
	decoded, err := url.PathUnescape(text)
	if err != nil {
		return text
	}
	return decoded
}
