package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/tabgrab/tabgrab/internal/apperrors"
	"github.com/tabgrab/tabgrab/internal/testutil"
)

const testPageURL = "https://www.songsterr.com/a/wsa/metallica-enter-sandman-tab-s27"

func TestStateParser_Parse(t *testing.T) {
	page := testutil.GenerateStatePage(testutil.StatePageOptions{
		Title:      "Enter Sandman",
		Artist:     "Metallica",
		SongID:     27,
		RevisionID: 123456,
		Tracks: []testutil.TrackOptions{
			{Title: "Lead Guitar", Tuning: []int{64, 59, 55, 50, 45, 40}},
			{Name: "Bass", Tuning: []int{43, 38, 33, 28}},
			{Instrument: "Drums"},
		},
		PercentEncode: true,
	})

	parser := NewStateParser()
	info, err := parser.Parse(testPageURL, strings.NewReader(page))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if info.Title != "Enter Sandman" {
		t.Errorf("Title = %q, want %q", info.Title, "Enter Sandman")
	}
	if info.Artist != "Metallica" {
		t.Errorf("Artist = %q, want %q", info.Artist, "Metallica")
	}
	if info.SongID != 27 {
		t.Errorf("SongID = %d, want 27", info.SongID)
	}
	if info.RevisionID != 123456 {
		t.Errorf("RevisionID = %d, want 123456", info.RevisionID)
	}

	if len(info.Tracks) != 3 {
		t.Fatalf("Expected 3 tracks, got %d", len(info.Tracks))
	}

	expectedInstruments := []string{"Lead Guitar", "Bass", "Drums"}
	for i, track := range info.Tracks {
		if track.Index != i {
			t.Errorf("Track %d: Index = %d, want %d", i, track.Index, i)
		}
		if track.Instrument != expectedInstruments[i] {
			t.Errorf("Track %d: Instrument = %q, want %q", i, track.Instrument, expectedInstruments[i])
		}
	}

	if len(info.Tracks[1].Tuning) != 4 {
		t.Errorf("Bass tuning length = %d, want 4", len(info.Tracks[1].Tuning))
	}
}

func TestStateParser_Parse_PlainJSONState(t *testing.T) {
	// Some page variants embed the state without percent-encoding.
	page := testutil.GenerateStatePage(testutil.StatePageOptions{
		Title:  "Plush",
		Artist: "Stone Temple Pilots",
		SongID: 90,
		Tracks: []testutil.TrackOptions{{Title: "Guitar"}},
	})

	info, err := NewStateParser().Parse(testPageURL, strings.NewReader(page))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if info.Title != "Plush" || len(info.Tracks) != 1 {
		t.Errorf("Unexpected result: %+v", info)
	}
}

func TestStateParser_Parse_MissingState(t *testing.T) {
	page := testutil.GenerateStatePage(testutil.StatePageOptions{
		Title:     "Whatever",
		Artist:    "Nobody",
		OmitState: true,
	})

	_, err := NewStateParser().Parse(testPageURL, strings.NewReader(page))
	if !errors.Is(err, &apperrors.ErrStateNotFound{}) {
		t.Fatalf("Expected ErrStateNotFound, got: %v", err)
	}
}

func TestStateParser_Parse_MalformedState(t *testing.T) {
	page := testutil.GenerateStatePage(testutil.StatePageOptions{
		RawState: "%7Bnot valid json",
	})

	_, err := NewStateParser().Parse(testPageURL, strings.NewReader(page))
	if !errors.Is(err, &apperrors.ErrStateNotFound{}) {
		t.Fatalf("Expected ErrStateNotFound, got: %v", err)
	}
}

func TestStateParser_Parse_NoCurrentSong(t *testing.T) {
	page := testutil.GenerateStatePage(testutil.StatePageOptions{
		RawState: `{"meta":{},"route":{"name":"home"}}`,
	})

	_, err := NewStateParser().Parse(testPageURL, strings.NewReader(page))
	if !errors.Is(err, &apperrors.ErrStateNotFound{}) {
		t.Fatalf("Expected ErrStateNotFound, got: %v", err)
	}
}

func TestStateParser_Parse_MissingTrackList(t *testing.T) {
	page := testutil.GenerateStatePage(testutil.StatePageOptions{
		Title:      "One",
		Artist:     "Metallica",
		SongID:     31,
		OmitTracks: true,
	})

	info, err := NewStateParser().Parse(testPageURL, strings.NewReader(page))
	if err != nil {
		t.Fatalf("Expected no error for missing track list, got: %v", err)
	}
	if len(info.Tracks) != 0 {
		t.Errorf("Expected zero tracks, got %d", len(info.Tracks))
	}
	if info.Title != "One" {
		t.Errorf("Title = %q, want %q", info.Title, "One")
	}
}

func TestStateParser_Parse_TrackLabelFallbacks(t *testing.T) {
	page := testutil.GenerateStatePage(testutil.StatePageOptions{
		Title:  "Song",
		Artist: "Artist",
		Tracks: []testutil.TrackOptions{
			{Title: "Lead", Name: "ignored", Instrument: "ignored too"},
			{Name: "Rhythm"},
			{Instrument: "Drums"},
			{},
		},
	})

	info, err := NewStateParser().Parse(testPageURL, strings.NewReader(page))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	expected := []string{"Lead", "Rhythm", "Drums", "track_3"}
	if len(info.Tracks) != len(expected) {
		t.Fatalf("Expected %d tracks, got %d", len(expected), len(info.Tracks))
	}
	for i, want := range expected {
		if info.Tracks[i].Instrument != want {
			t.Errorf("Track %d: Instrument = %q, want %q", i, info.Tracks[i].Instrument, want)
		}
	}
}
