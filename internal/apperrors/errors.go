package apperrors

import "fmt"

// ErrStateNotFound is returned when the loaded page does not contain a
// parseable state payload.
type ErrStateNotFound struct {
	URL    string
	Reason string
}

// Error implements the error interface.
func (e *ErrStateNotFound) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("no song state found in page %s: %s", e.URL, e.Reason)
	}
	return fmt.Sprintf("no song state found in page %s", e.URL)
}

// Is allows for error checking with errors.Is().
func (e *ErrStateNotFound) Is(target error) bool {
	_, ok := target.(*ErrStateNotFound)
	return ok
}

// NewStateNotFoundError creates a new ErrStateNotFound.
func NewStateNotFoundError(url, reason string) *ErrStateNotFound {
	return &ErrStateNotFound{URL: url, Reason: reason}
}

// ErrNoTracksFound is returned when no track data requests were captured
// during page load. A zero-track capture always indicates a page-load or
// blocking failure, never a valid empty song.
type ErrNoTracksFound struct {
	URL      string
	Captured int // total requests observed, of any kind
}

// Error implements the error interface.
func (e *ErrNoTracksFound) Error() string {
	return fmt.Sprintf("no track data requests captured while loading %s (%d requests observed)", e.URL, e.Captured)
}

// Is allows for error checking with errors.Is().
func (e *ErrNoTracksFound) Is(target error) bool {
	_, ok := target.(*ErrNoTracksFound)
	return ok
}

// NewNoTracksFoundError creates a new ErrNoTracksFound.
func NewNoTracksFoundError(url string, captured int) *ErrNoTracksFound {
	return &ErrNoTracksFound{URL: url, Captured: captured}
}

// ErrOutputDirectory is returned when the output directory cannot be used,
// typically because it already exists and is non-empty and overwrite was
// not requested.
type ErrOutputDirectory struct {
	Path   string
	Reason string
}

// Error implements the error interface.
func (e *ErrOutputDirectory) Error() string {
	return fmt.Sprintf("output directory %s: %s", e.Path, e.Reason)
}

// Is allows for error checking with errors.Is().
func (e *ErrOutputDirectory) Is(target error) bool {
	_, ok := target.(*ErrOutputDirectory)
	return ok
}

// NewOutputDirectoryError creates a new ErrOutputDirectory.
func NewOutputDirectoryError(path, reason string) *ErrOutputDirectory {
	return &ErrOutputDirectory{Path: path, Reason: reason}
}

// ErrBrowserLaunch is returned when the browser session cannot be started
// or the initial navigation fails.
type ErrBrowserLaunch struct {
	Err error
}

// Error implements the error interface.
func (e *ErrBrowserLaunch) Error() string {
	return fmt.Sprintf("failed to launch browser session: %v", e.Err)
}

// Unwrap exposes the underlying launch error.
func (e *ErrBrowserLaunch) Unwrap() error {
	return e.Err
}

// Is allows for error checking with errors.Is().
func (e *ErrBrowserLaunch) Is(target error) bool {
	_, ok := target.(*ErrBrowserLaunch)
	return ok
}

// NewBrowserLaunchError creates a new ErrBrowserLaunch.
func NewBrowserLaunchError(err error) *ErrBrowserLaunch {
	return &ErrBrowserLaunch{Err: err}
}

// ErrInvalidSongURL is returned when the input URL does not look like a
// song page URL.
type ErrInvalidSongURL struct {
	URL string
}

// Error implements the error interface.
func (e *ErrInvalidSongURL) Error() string {
	return fmt.Sprintf("invalid song URL: %s (expected https://<host>/a/wsa/<artist>-<song>-tab-s<id>)", e.URL)
}

// Is allows for error checking with errors.Is().
func (e *ErrInvalidSongURL) Is(target error) bool {
	_, ok := target.(*ErrInvalidSongURL)
	return ok
}

// NewInvalidSongURLError creates a new ErrInvalidSongURL.
func NewInvalidSongURLError(url string) *ErrInvalidSongURL {
	return &ErrInvalidSongURL{URL: url}
}
