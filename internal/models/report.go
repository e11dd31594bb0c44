package models

// DownloadReport summarises a completed run for the caller.
type DownloadReport struct {
	SongInfo     SongInfo
	OutputDir    string
	Files        []string // track files written, descriptor order
	FailedTracks []string // filenames of tracks whose fetch ultimately failed
	TotalBytes   int64
	PDFCount     int
}
