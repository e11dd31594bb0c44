package models

import "time"

// DownloadedAtLayout is the timestamp format used in metadata.json.
const DownloadedAtLayout = "2006-01-02 15:04:05"

// Metadata is the summary record written to metadata.json at the end of a
// run. Files lists only the track files that were actually written, in
// descriptor-index order.
type Metadata struct {
	URL          string   `json:"url"`
	SongInfo     SongInfo `json:"song_info"`
	DownloadedAt string   `json:"downloaded_at"`
	Files        []string `json:"files"`
}

// NewMetadata builds a metadata record stamped with the given time.
func NewMetadata(url string, info SongInfo, at time.Time, files []string) Metadata {
	if files == nil {
		files = []string{}
	}
	return Metadata{
		URL:          url,
		SongInfo:     info,
		DownloadedAt: at.Format(DownloadedAtLayout),
		Files:        files,
	}
}
