package pdf

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/tabgrab/tabgrab/internal/testutil"
)

func writePayload(t *testing.T, dir, name string, body []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatalf("Failed to write payload fixture: %v", err)
	}
	return path
}

func TestRenderFile(t *testing.T) {
	dir := t.TempDir()
	jsonPath := writePayload(t, dir, "00_lead_guitar.json", testutil.TrackPayload("Lead Guitar", 12))
	pdfPath := filepath.Join(dir, "00_lead_guitar.pdf")

	renderer := NewRenderer()
	info := &TrackInfo{
		Title:      "Enter Sandman",
		Artist:     "Metallica",
		Instrument: "Lead Guitar",
		Tuning:     []int{64, 59, 55, 50, 45, 40},
	}
	if err := renderer.RenderFile(jsonPath, pdfPath, info); err != nil {
		t.Fatalf("RenderFile failed: %v", err)
	}

	raw, err := os.ReadFile(pdfPath)
	if err != nil {
		t.Fatalf("Failed to read rendered PDF: %v", err)
	}
	if !bytes.HasPrefix(raw, []byte("%PDF-")) {
		t.Errorf("Rendered file does not start with a PDF header")
	}
	if len(raw) < 500 {
		t.Errorf("Rendered PDF suspiciously small: %d bytes", len(raw))
	}
}

func TestRenderFileManyMeasures(t *testing.T) {
	dir := t.TempDir()
	// Enough measures to force line wraps and a second page.
	jsonPath := writePayload(t, dir, "track.json", testutil.TrackPayload("Bass", 80))
	pdfPath := filepath.Join(dir, "track.pdf")

	if err := NewRenderer().RenderFile(jsonPath, pdfPath, nil); err != nil {
		t.Fatalf("RenderFile failed: %v", err)
	}
	if _, err := os.Stat(pdfPath); err != nil {
		t.Fatalf("Expected PDF output: %v", err)
	}
}

func TestRenderFileNoMeasures(t *testing.T) {
	dir := t.TempDir()
	jsonPath := writePayload(t, dir, "empty.json", []byte(`{"instrument":"Guitar","measures":[]}`))
	pdfPath := filepath.Join(dir, "empty.pdf")

	err := NewRenderer().RenderFile(jsonPath, pdfPath, nil)
	if err == nil {
		t.Fatal("Expected error for payload without measures")
	}
	if _, statErr := os.Stat(pdfPath); statErr == nil {
		t.Error("No PDF should be written for an empty payload")
	}
}

func TestRenderFileInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	jsonPath := writePayload(t, dir, "bad.json", []byte("not json at all"))

	if err := NewRenderer().RenderFile(jsonPath, filepath.Join(dir, "bad.pdf"), nil); err == nil {
		t.Fatal("Expected error for malformed payload")
	}
}

func TestRenderFileMissingInput(t *testing.T) {
	dir := t.TempDir()
	if err := NewRenderer().RenderFile(filepath.Join(dir, "absent.json"), filepath.Join(dir, "out.pdf"), nil); err == nil {
		t.Fatal("Expected error for a missing payload file")
	}
}

func TestStaffShape(t *testing.T) {
	r := NewRenderer()

	t.Run("uses payload strings and tuning", func(t *testing.T) {
		payload := &trackPayload{Strings: 4, Tuning: []int{43, 38, 33, 28}}
		numStrings, tuning, isDrums := r.staffShape(payload, nil)
		if numStrings != 4 {
			t.Errorf("Expected 4 strings, got %d", numStrings)
		}
		if len(tuning) != 4 || isDrums {
			t.Errorf("Unexpected shape: tuning=%v drums=%v", tuning, isDrums)
		}
	})

	t.Run("track info tuning overrides string count", func(t *testing.T) {
		payload := &trackPayload{Strings: 6}
		info := &TrackInfo{Instrument: "Bass", Tuning: []int{43, 38, 33, 28}}
		numStrings, tuning, _ := r.staffShape(payload, info)
		if numStrings != 4 {
			t.Errorf("Expected 4 strings, got %d", numStrings)
		}
		if len(tuning) != 4 {
			t.Errorf("Expected tuning from track info, got %v", tuning)
		}
	})

	t.Run("drum staff sized from used lanes", func(t *testing.T) {
		lane := 6.0
		fret := 0
		payload := &trackPayload{
			Measures: []measure{{
				Voices: []voice{{Beats: []beat{{
					Notes: []note{{Fret: &fret, String: &lane}},
				}}}},
			}},
		}
		info := &TrackInfo{Instrument: "Drums"}
		numStrings, _, isDrums := r.staffShape(payload, info)
		if !isDrums {
			t.Fatal("Expected drum track detection")
		}
		if numStrings != 7 {
			t.Errorf("Expected 7 lanes, got %d", numStrings)
		}
	})

	t.Run("drum staff has a minimum size", func(t *testing.T) {
		payload := &trackPayload{Measures: []measure{{Rest: true}}}
		numStrings, _, _ := r.staffShape(payload, &TrackInfo{Instrument: "Drums"})
		if numStrings != 5 {
			t.Errorf("Expected minimum of 5 lanes, got %d", numStrings)
		}
	})
}

func TestTempoAtMeasure(t *testing.T) {
	a := automations{Tempo: []tempoChange{
		{Measure: 0, BPM: 100},
		{Measure: 8, BPM: 140},
	}}

	tests := []struct {
		measure int
		want    int
	}{
		{0, 100},
		{7, 100},
		{8, 140},
		{20, 140},
	}
	for _, tt := range tests {
		if got := tempoAtMeasure(a, tt.measure); got != tt.want {
			t.Errorf("tempoAtMeasure(%d) = %d, want %d", tt.measure, got, tt.want)
		}
	}

	if got := tempoAtMeasure(automations{}, 0); got != 120 {
		t.Errorf("Expected default tempo 120, got %d", got)
	}
}

func TestFirstContentMeasure(t *testing.T) {
	measures := []measure{{Rest: true}, {Rest: true}, {}, {Rest: true}}
	if got := firstContentMeasure(measures); got != 2 {
		t.Errorf("Expected first content measure 2, got %d", got)
	}

	allRests := []measure{{Rest: true}, {Rest: true}}
	if got := firstContentMeasure(allRests); got != 0 {
		t.Errorf("Expected fallback to 0, got %d", got)
	}
}

func TestTuningLabel(t *testing.T) {
	if got := tuningLabel([]int{64, 59, 55, 50, 45, 40}); got != "E A D G B e" {
		t.Errorf("Unexpected tuning label: %q", got)
	}
	if got := noteName(99); got != "?" {
		t.Errorf("Unknown MIDI note should label as ?, got %q", got)
	}
}
