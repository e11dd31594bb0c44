// Package pdf renders downloaded track payloads as printable tablature.
package pdf

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/tabgrab/tabgrab/internal/config"
)

// TrackInfo carries the song-level context a rendered page is headed with.
type TrackInfo struct {
	Title      string
	Artist     string
	Instrument string
	Tuning     []int
}

// Layout constants, all in millimetres on an A4 page.
const (
	pageMargin      = 15.0
	stringSpacing   = 3.2
	measuresPerLine = 4
	lineSpacing     = 18.0
)

// midiNoteNames maps the MIDI numbers of common open-string tunings to
// their note names for the staff labels.
var midiNoteNames = map[int]string{
	28: "E", 33: "A", 38: "D", 43: "G", 48: "C",
	40: "E", 45: "A", 50: "D", 55: "G", 59: "B", 64: "e",
	36: "C", 41: "F", 46: "B",
}

// drumLaneLabels labels the percussion lanes top to bottom.
var drumLaneLabels = []string{"HH", "SD", "BD", "T1", "T2", "CR", "RD", "CH"}

// standardTuning labels a six-string staff when the payload carries no
// tuning of its own.
var standardTuning = []string{"e", "B", "G", "D", "A", "E"}

// trackPayload mirrors the fragment of a track payload the renderer needs.
type trackPayload struct {
	Instrument  string      `json:"instrument"`
	Strings     int         `json:"strings"`
	Tuning      []int       `json:"tuning"`
	Measures    []measure   `json:"measures"`
	Automations automations `json:"automations"`
}

type automations struct {
	Tempo []tempoChange `json:"tempo"`
}

type tempoChange struct {
	Measure int `json:"measure"`
	BPM     int `json:"bpm"`
}

type measure struct {
	Rest      bool    `json:"rest"`
	Signature []int   `json:"signature"`
	Voices    []voice `json:"voices"`
}

type voice struct {
	Beats []beat `json:"beats"`
}

type beat struct {
	Type     int    `json:"type"`
	Duration []int  `json:"duration"`
	Notes    []note `json:"notes"`
}

// durationRatio is the fraction of a whole note this beat lasts.
func (b *beat) durationRatio() float64 {
	if len(b.Duration) != 2 || b.Duration[1] == 0 {
		return 0.25
	}
	return float64(b.Duration[0]) / float64(b.Duration[1])
}

type note struct {
	Rest   bool     `json:"rest"`
	Fret   *int     `json:"fret"`
	String *float64 `json:"string"`
}

// Renderer converts track payload JSON files into PDF tablature.
type Renderer struct{}

// NewRenderer creates a new renderer instance
func NewRenderer() *Renderer {
	return &Renderer{}
}

// RenderFile reads a downloaded track payload and writes its tablature to
// pdfPath. A payload without measures is reported as an error so the
// caller can skip it.
func (r *Renderer) RenderFile(jsonPath, pdfPath string, info *TrackInfo) error {
	raw, err := os.ReadFile(jsonPath)
	if err != nil {
		return fmt.Errorf("failed to read track payload: %w", err)
	}

	var payload trackPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("failed to parse track payload: %w", err)
	}
	if len(payload.Measures) == 0 {
		return fmt.Errorf("track payload %s has no measures", jsonPath)
	}

	doc := fpdf.New("P", "mm", "A4", "")
	r.render(doc, &payload, info)
	if err := doc.OutputFileAndClose(pdfPath); err != nil {
		return fmt.Errorf("failed to write PDF: %w", err)
	}

	logger := config.GetLogger()
	logger.Debug().Str("pdf", pdfPath).Msg("Rendered tab PDF")
	return nil
}

// render draws the whole track onto the document.
func (r *Renderer) render(doc *fpdf.Fpdf, payload *trackPayload, info *TrackInfo) {
	doc.AddPage()
	pageWidth, pageHeight := doc.GetPageSize()

	numStrings, tuning, isDrums := r.staffShape(payload, info)

	y := pageMargin + 5

	// Header: song, instrument, tuning.
	doc.SetFont("Helvetica", "B", 16)
	if info != nil && info.Artist != "" && info.Title != "" {
		doc.Text(pageMargin, y, fmt.Sprintf("%s - %s", info.Artist, info.Title))
	}
	y += 7

	doc.SetFont("Helvetica", "", 11)
	doc.Text(pageMargin, y, r.instrumentLabel(payload, info))
	y += 5

	if len(tuning) > 0 && !isDrums {
		doc.SetFont("Helvetica", "", 9)
		doc.Text(pageMargin, y, "Tuning: "+tuningLabel(tuning))
	}
	y += 8

	startMeasure := firstContentMeasure(payload.Measures)

	tabXStart := pageMargin + 15
	usableWidth := pageWidth - 2*pageMargin - 15
	measureWidth := usableWidth / measuresPerLine

	currentX := tabXStart
	currentY := y
	measureCount := 0
	lineHeight := float64(numStrings)*stringSpacing + lineSpacing

	var currentSignature []int
	lastShownTempo := -1
	isFirstLine := true

	for measureIdx := startMeasure; measureIdx < len(payload.Measures); measureIdx++ {
		m := &payload.Measures[measureIdx]

		if measureCount >= measuresPerLine {
			measureCount = 0
			currentX = tabXStart
			currentY += lineHeight
			isFirstLine = false

			if currentY+lineHeight > pageHeight-pageMargin {
				doc.AddPage()
				currentY = pageMargin + 10
				isFirstLine = true
			}
		}

		if len(m.Signature) == 2 {
			currentSignature = m.Signature
		}

		if measureCount == 0 {
			r.drawStaffLabels(doc, tabXStart, currentY, numStrings, tuning, isDrums)

			if len(currentSignature) == 2 && (isFirstLine || measureIdx == startMeasure) {
				r.drawTimeSignature(doc, tabXStart-10, currentY, currentSignature, numStrings)
			}

			tempo := tempoAtMeasure(payload.Automations, measureIdx)
			if tempo != lastShownTempo {
				doc.SetFont("Helvetica", "", 8)
				doc.SetTextColor(0, 0, 0)
				doc.Text(currentX, currentY-4, fmt.Sprintf("%d bpm", tempo))
				lastShownTempo = tempo
			}
		}

		r.drawMeasureGrid(doc, currentX, currentY, measureWidth, numStrings, measureIdx)
		r.drawBeats(doc, m, currentX, currentY, measureWidth, numStrings)

		currentX += measureWidth
		measureCount++
	}
}

// staffShape decides how many staff lines the track gets and which tuning
// labels them. Drum tracks size the staff from the lanes actually used.
func (r *Renderer) staffShape(payload *trackPayload, info *TrackInfo) (numStrings int, tuning []int, isDrums bool) {
	numStrings = payload.Strings
	if numStrings == 0 {
		numStrings = 6
	}

	tuning = payload.Tuning
	if info != nil && len(info.Tuning) > 0 {
		numStrings = len(info.Tuning)
		if len(tuning) == 0 {
			tuning = info.Tuning
		}
	}

	isDrums = strings.Contains(strings.ToLower(r.instrumentLabel(payload, info)), "drum")
	if isDrums {
		maxLane := 0
		scan := payload.Measures
		if len(scan) > 30 {
			scan = scan[:30]
		}
		for _, m := range scan {
			for _, v := range m.Voices {
				for _, b := range v.Beats {
					for _, n := range b.Notes {
						if n.String != nil && int(*n.String)+1 > maxLane {
							maxLane = int(*n.String) + 1
						}
					}
				}
			}
		}
		numStrings = maxLane
		if numStrings < 5 {
			numStrings = 5
		}
	}

	return numStrings, tuning, isDrums
}

func (r *Renderer) instrumentLabel(payload *trackPayload, info *TrackInfo) string {
	if info != nil && info.Instrument != "" {
		return info.Instrument
	}
	return payload.Instrument
}

// drawStaffLabels writes the string names (or drum lane codes) right
// aligned before the first measure of a line.
func (r *Renderer) drawStaffLabels(doc *fpdf.Fpdf, tabXStart, topY float64, numStrings int, tuning []int, isDrums bool) {
	doc.SetFont("Helvetica", "B", 8)
	doc.SetTextColor(0, 0, 0)

	label := func(i int) string {
		switch {
		case isDrums:
			if i < len(drumLaneLabels) {
				return drumLaneLabels[i]
			}
			return fmt.Sprintf("%d", i+1)
		case len(tuning) > 0:
			if i < len(tuning) {
				return noteName(tuning[i])
			}
			return "?"
		default:
			if i < len(standardTuning) {
				return standardTuning[i]
			}
			return "?"
		}
	}

	for i := 0; i < numStrings; i++ {
		text := label(i)
		w := doc.GetStringWidth(text)
		doc.Text(tabXStart-3-w, topY+float64(i)*stringSpacing+1, text)
	}
}

// drawTimeSignature stacks the two signature numbers before the staff.
func (r *Renderer) drawTimeSignature(doc *fpdf.Fpdf, x, topY float64, signature []int, numStrings int) {
	centerY := topY + float64(numStrings-1)*stringSpacing/2

	doc.SetFont("Helvetica", "B", 10)
	doc.SetTextColor(0, 0, 0)

	top := fmt.Sprintf("%d", signature[0])
	bottom := fmt.Sprintf("%d", signature[1])
	doc.Text(x-doc.GetStringWidth(top)/2, centerY-1, top)
	doc.Text(x-doc.GetStringWidth(bottom)/2, centerY+4, bottom)
}

// drawMeasureGrid draws the staff lines, barlines and measure number for
// one measure.
func (r *Renderer) drawMeasureGrid(doc *fpdf.Fpdf, x, topY, width float64, numStrings, measureIdx int) {
	bottomY := topY + float64(numStrings-1)*stringSpacing

	doc.SetDrawColor(128, 128, 128)
	doc.SetLineWidth(0.18)
	for i := 0; i < numStrings; i++ {
		lineY := topY + float64(i)*stringSpacing
		doc.Line(x, lineY, x+width, lineY)
	}

	doc.SetDrawColor(0, 0, 0)
	doc.SetLineWidth(0.35)
	doc.Line(x, topY, x, bottomY)
	doc.Line(x+width, topY, x+width, bottomY)

	doc.SetFont("Helvetica", "", 7)
	doc.SetTextColor(128, 128, 128)
	doc.Text(x+1, topY-2, fmt.Sprintf("%d", measureIdx+1))
	doc.SetTextColor(0, 0, 0)
}

// drawBeats lays the first voice's beats across the measure, spacing each
// proportionally to its duration, and stems the rhythm below the staff.
func (r *Renderer) drawBeats(doc *fpdf.Fpdf, m *measure, x, topY, width float64, numStrings int) {
	if len(m.Voices) == 0 {
		return
	}
	beats := m.Voices[0].Beats
	if len(beats) == 0 {
		return
	}

	totalDuration := 0.0
	for i := range beats {
		totalDuration += beats[i].durationRatio()
	}
	if totalDuration == 0 {
		totalDuration = 1
	}

	usableWidth := width - 6
	beatX := x + 3

	for i := range beats {
		b := &beats[i]
		beatWidth := usableWidth * b.durationRatio() / totalDuration
		noteX := beatX + beatWidth*0.3

		hasNotes := false
		for _, n := range b.Notes {
			if n.Rest || n.Fret == nil || n.String == nil {
				continue
			}
			stringIdx := int(*n.String)
			if stringIdx >= numStrings {
				continue
			}
			hasNotes = true

			noteY := topY + float64(stringIdx)*stringSpacing
			fretStr := fmt.Sprintf("%d", *n.Fret)

			doc.SetFont("Courier", "B", 9)
			textWidth := doc.GetStringWidth(fretStr)

			// Blank out the staff line behind the fret number.
			doc.SetFillColor(255, 255, 255)
			doc.Rect(noteX-textWidth/2-0.35, noteY-1.3, textWidth+0.7, 2.6, "F")

			doc.SetTextColor(0, 0, 0)
			doc.Text(noteX-textWidth/2, noteY+1.1, fretStr)
		}

		if hasNotes {
			rhythmY := topY + float64(numStrings-1)*stringSpacing
			r.drawRhythmStem(doc, noteX, rhythmY, b.Type)
		}

		beatX += beatWidth
	}
}

// drawRhythmStem draws the duration stem below the staff, with flags for
// eighth notes and shorter.
func (r *Renderer) drawRhythmStem(doc *fpdf.Fpdf, x, staffBottomY float64, durationType int) {
	stemTop := staffBottomY + 3
	stemHeight := 4.0

	doc.SetDrawColor(0, 0, 0)
	doc.SetLineWidth(0.28)
	doc.Line(x, stemTop, x, stemTop+stemHeight)

	if durationType < 8 {
		return
	}

	flagY := stemTop + stemHeight
	flags := 1
	if durationType == 16 {
		flags = 2
	} else if durationType >= 32 {
		flags = 3
	}
	for i := 0; i < flags; i++ {
		offset := float64(i) * 1.1
		doc.Line(x, flagY-offset, x+2, flagY-offset-1.5)
	}
}

// firstContentMeasure finds the first measure carrying actual notes rather
// than rests, so rendering starts where the part does.
func firstContentMeasure(measures []measure) int {
	for i := range measures {
		if !measures[i].Rest {
			return i
		}
	}
	return 0
}

// tempoAtMeasure resolves the BPM in effect at a given measure from the
// tempo automation table.
func tempoAtMeasure(a automations, measureIdx int) int {
	bpm := 120
	for _, tc := range a.Tempo {
		if tc.Measure <= measureIdx {
			if tc.BPM != 0 {
				bpm = tc.BPM
			}
		} else {
			break
		}
	}
	return bpm
}

// tuningLabel renders a tuning as note names, highest string first.
func tuningLabel(tuning []int) string {
	names := make([]string, 0, len(tuning))
	for i := len(tuning) - 1; i >= 0; i-- {
		names = append(names, noteName(tuning[i]))
	}
	return strings.Join(names, " ")
}

func noteName(midi int) string {
	if name, ok := midiNoteNames[midi]; ok {
		return name
	}
	return "?"
}
