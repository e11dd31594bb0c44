package resolver

import (
	"regexp"
	"sort"
	"strconv"

	"github.com/tabgrab/tabgrab/internal/apperrors"
	"github.com/tabgrab/tabgrab/internal/config"
	"github.com/tabgrab/tabgrab/internal/models"
	"github.com/tabgrab/tabgrab/internal/storage"
)

// trackIndexPattern matches the trailing numeric path segment the CDN uses
// to address a track payload, e.g. .../27/123456/2.json -> index 2.
var trackIndexPattern = regexp.MustCompile(`/(\d+)\.json$`)

// TrackResolver matches captured track data URLs to track descriptors.
//
// The alignment rule is deterministic: a URL whose final path segment is a
// bare number claims the descriptor with that index, since that is how the
// source site addresses revisions' track payloads. URLs without a numeric
// segment fall back to positional alignment, capture order against
// ascending unclaimed descriptor index. This is the one place where silent
// misattribution would be possible, so the rule is fixed rather than
// heuristic per run.
type TrackResolver struct{}

// NewTrackResolver creates a new track resolver instance
func NewTrackResolver() *TrackResolver {
	return &TrackResolver{}
}

// Resolve pairs descriptors with captured track data URLs. It produces at
// most one ResolvedTrack per descriptor, ordered by descriptor index.
// A count mismatch between descriptors and captures degrades to
// best-effort alignment with a warning; zero captured track data requests
// fails with *apperrors.ErrNoTracksFound.
func (r *TrackResolver) Resolve(songURL string, tracks []models.TrackDescriptor, captured []models.CapturedRequest) ([]models.ResolvedTrack, error) {
	logger := config.GetLogger()

	trackData := make([]models.CapturedRequest, 0, len(captured))
	for _, req := range captured {
		if req.Kind == models.KindTrackData {
			trackData = append(trackData, req)
		}
	}

	if len(trackData) == 0 {
		return nil, apperrors.NewNoTracksFoundError(songURL, len(captured))
	}

	if len(trackData) != len(tracks) {
		logger.Warn().
			Int("descriptors", len(tracks)).
			Int("captured", len(trackData)).
			Msg("Track count mismatch between page state and captured requests, resolving best-effort")
	}

	descriptors := make(map[int]models.TrackDescriptor, len(tracks))
	for _, desc := range tracks {
		descriptors[desc.Index] = desc
	}

	claimed := make(map[int]string, len(tracks)) // descriptor index -> URL

	// First pass: URLs that carry an explicit track index claim it.
	var unindexed []models.CapturedRequest
	for _, req := range trackData {
		idx, ok := extractTrackIndex(req.URL)
		if !ok {
			unindexed = append(unindexed, req)
			continue
		}
		if _, exists := descriptors[idx]; !exists {
			logger.Warn().Str("url", req.URL).Int("index", idx).Msg("Captured URL addresses an unknown track index, skipping")
			continue
		}
		if _, taken := claimed[idx]; taken {
			logger.Warn().Str("url", req.URL).Int("index", idx).Msg("Track index claimed twice, keeping first capture")
			continue
		}
		claimed[idx] = req.URL
	}

	// Second pass: positional alignment for the rest, capture order against
	// ascending unclaimed descriptor index.
	unclaimedIndices := make([]int, 0, len(tracks))
	for _, desc := range tracks {
		if _, taken := claimed[desc.Index]; !taken {
			unclaimedIndices = append(unclaimedIndices, desc.Index)
		}
	}
	sort.Ints(unclaimedIndices)

	for i, req := range unindexed {
		if i >= len(unclaimedIndices) {
			logger.Warn().Str("url", req.URL).Msg("More captured track URLs than descriptors, dropping extra capture")
			continue
		}
		claimed[unclaimedIndices[i]] = req.URL
	}

	resolved := make([]models.ResolvedTrack, 0, len(claimed))
	for _, desc := range tracks {
		sourceURL, ok := claimed[desc.Index]
		if !ok {
			logger.Warn().
				Int("index", desc.Index).
				Str("instrument", desc.Instrument).
				Msg("No captured URL resolved for track, it will not be downloaded")
			continue
		}
		resolved = append(resolved, models.ResolvedTrack{
			Descriptor:    desc,
			SourceURL:     sourceURL,
			LocalFilename: storage.TrackFilename(desc),
		})
	}

	sort.Slice(resolved, func(i, j int) bool {
		return resolved[i].Descriptor.Index < resolved[j].Descriptor.Index
	})

	logger.Debug().
		Int("resolved", len(resolved)).
		Int("descriptors", len(tracks)).
		Msg("Resolved captured URLs to tracks")

	return resolved, nil
}

// extractTrackIndex pulls the numeric track index out of a payload URL.
func extractTrackIndex(url string) (int, bool) {
	match := trackIndexPattern.FindStringSubmatch(url)
	if match == nil {
		return 0, false
	}
	idx, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}
	return idx, true
}
