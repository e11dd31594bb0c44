package models

// SongInfo holds the song metadata extracted from the page state payload.
// It is produced once per run and never mutated afterwards.
type SongInfo struct {
	Title      string            `json:"title"`
	Artist     string            `json:"artist"`
	SongID     int               `json:"song_id"`
	RevisionID int               `json:"revision_id"`
	Tracks     []TrackDescriptor `json:"tracks"`
}

// TrackDescriptor identifies one instrument track within a song.
// Index is 0-based and follows the ordering the source page presents;
// indices are unique and contiguous from 0.
type TrackDescriptor struct {
	Index      int    `json:"index"`
	Instrument string `json:"instrument"`
	Tuning     []int  `json:"tuning,omitempty"` // MIDI note numbers, low to high; empty for drums
}
