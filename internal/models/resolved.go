package models

// ResolvedTrack pairs a track descriptor with the CDN URL that serves its
// payload and the filename it will be written to.
type ResolvedTrack struct {
	Descriptor    TrackDescriptor
	SourceURL     string
	LocalFilename string
}
