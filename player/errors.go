package player

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/nvaillant/quaver/resource"
)

// ErrorCode classifies load and playback failures.
type ErrorCode int

const (
	// CodePlaybackFailed is the generic failure bucket.
	CodePlaybackFailed ErrorCode = iota
	// CodeInvalidSourceURL marks a source that could not be resolved at
	// all (malformed URL, missing file, unsupported scheme).
	CodeInvalidSourceURL
	// CodeUnplayable marks a source that resolved but cannot be played.
	CodeUnplayable
	// CodeMetadataLoadFailed marks a failure to load the item's
	// descriptive key/value data.
	CodeMetadataLoadFailed
	// CodeNetworkUnreachable marks a remote source that could not be
	// reached.
	CodeNetworkUnreachable
)

func (c ErrorCode) String() string {
	switch c {
	case CodeInvalidSourceURL:
		return "invalid source url"
	case CodeUnplayable:
		return "unplayable"
	case CodeMetadataLoadFailed:
		return "metadata load failed"
	case CodeNetworkUnreachable:
		return "network unreachable"
	default:
		return "playback failed"
	}
}

// Error is a typed playback failure. It is retained by the engine until
// the next successful load and delivered through the Fail event.
type Error struct {
	Code ErrorCode
	URL  string
	Err  error
}

func (e *Error) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("%s (%s): %v", e.Code, e.URL, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// classifyError maps a resource failure onto the error taxonomy.
func classifyError(err error, sourceURL string) *Error {
	code := CodePlaybackFailed
	var urlErr *url.Error
	switch {
	case errors.Is(err, resource.ErrInvalidSource):
		code = CodeInvalidSourceURL
	case errors.Is(err, resource.ErrUnplayable):
		code = CodeUnplayable
	case errors.Is(err, resource.ErrMetadataLoad):
		code = CodeMetadataLoadFailed
	case errors.As(err, &urlErr):
		code = CodeNetworkUnreachable
	}
	return &Error{Code: code, URL: sourceURL, Err: err}
}
