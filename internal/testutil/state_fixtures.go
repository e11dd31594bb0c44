package testutil

import (
	"encoding/json"
	"fmt"
	"strings"
)

// TrackOptions describes one track entry in a generated state payload.
type TrackOptions struct {
	Title      string
	Name       string
	Instrument string
	Tuning     []int
}

// StatePageOptions contains options for generating a song page with an
// embedded state payload, matching the structure the real site emits.
type StatePageOptions struct {
	Title         string
	Artist        string
	SongID        int
	RevisionID    int
	DefaultTrack  int
	Tracks        []TrackOptions
	OmitTracks    bool   // emit a current object without a tracks field
	OmitState     bool   // emit a page without the state script entirely
	RawState      string // when set, used verbatim as the script body
	PercentEncode bool   // percent-encode the state JSON like the real page
}

// GenerateStatePage builds an HTML page in the shape the song site serves,
// with song metadata embedded in a <script id="state"> element.
func GenerateStatePage(opts StatePageOptions) string {
	var sb strings.Builder

	sb.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>")
	sb.WriteString(fmt.Sprintf("%s - %s", opts.Artist, opts.Title))
	sb.WriteString("</title></head>\n<body>\n<div id=\"apd\"></div>\n")

	if !opts.OmitState {
		sb.WriteString(`<script id="state" type="application/json">`)
		sb.WriteString(stateScriptBody(opts))
		sb.WriteString("</script>\n")
	}

	sb.WriteString("<script src=\"/bundle.js\"></script>\n</body></html>")
	return sb.String()
}

func stateScriptBody(opts StatePageOptions) string {
	if opts.RawState != "" {
		return opts.RawState
	}

	current := map[string]any{
		"title":        opts.Title,
		"artist":       opts.Artist,
		"songId":       opts.SongID,
		"revisionId":   opts.RevisionID,
		"defaultTrack": opts.DefaultTrack,
	}
	if !opts.OmitTracks {
		tracks := make([]map[string]any, 0, len(opts.Tracks))
		for _, track := range opts.Tracks {
			entry := map[string]any{}
			if track.Title != "" {
				entry["title"] = track.Title
			}
			if track.Name != "" {
				entry["name"] = track.Name
			}
			if track.Instrument != "" {
				entry["instrument"] = track.Instrument
			}
			if len(track.Tuning) > 0 {
				entry["tuning"] = track.Tuning
			}
			tracks = append(tracks, entry)
		}
		current["tracks"] = tracks
	}

	state := map[string]any{
		"meta": map[string]any{
			"current": current,
		},
		"route": map[string]any{"name": "tab"},
	}

	raw, err := json.Marshal(state)
	if err != nil {
		panic(fmt.Sprintf("marshal state fixture: %v", err))
	}

	if opts.PercentEncode {
		return percentEncodeJSON(string(raw))
	}
	return string(raw)
}

// percentEncodeJSON escapes the JSON the way the real page does: most
// characters survive, quotes, braces and spaces are percent-encoded.
func percentEncodeJSON(raw string) string {
	var sb strings.Builder
	for _, r := range raw {
		switch r {
		case '"', '{', '}', '[', ']', ' ':
			sb.WriteString(fmt.Sprintf("%%%02X", r))
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// TrackPayload builds a minimal valid track payload body, the JSON blob a
// CDN URL would serve for one track.
func TrackPayload(instrument string, measureCount int) []byte {
	measures := make([]map[string]any, 0, measureCount)
	for i := 0; i < measureCount; i++ {
		measures = append(measures, map[string]any{
			"index": i,
			"voices": []map[string]any{
				{
					"beats": []map[string]any{
						{
							"type":     4,
							"duration": []int{1, 4},
							"notes": []map[string]any{
								{"string": 0, "fret": i % 12},
							},
						},
					},
				},
			},
		})
	}

	payload := map[string]any{
		"instrument": instrument,
		"strings":    6,
		"tuning":     []int{64, 59, 55, 50, 45, 40},
		"measures":   measures,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		panic(fmt.Sprintf("marshal track payload fixture: %v", err))
	}
	return raw
}

// IntPtr is a helper for creating *int values in tests
func IntPtr(v int) *int {
	return &v
}
