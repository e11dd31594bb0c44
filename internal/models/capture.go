package models

// ResourceKind classifies a request captured during page load.
type ResourceKind int

const (
	// KindOther is any request that does not look like track data (page
	// assets, analytics, stylesheets, images).
	KindOther ResourceKind = iota
	// KindTrackData is a CDN request whose URL looks like a track payload.
	KindTrackData
)

// String returns the human-readable name of the resource kind.
func (k ResourceKind) String() string {
	switch k {
	case KindTrackData:
		return "track_data"
	default:
		return "other"
	}
}

// CapturedRequest is one network request observed while the song page
// loaded. The set of captured requests is transient: it only lives between
// navigation and track resolution.
type CapturedRequest struct {
	URL  string
	Kind ResourceKind
}
