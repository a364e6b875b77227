package worker

import (
	"errors"
	"strings"
)

// The failure classes of a delivery. Each one is terminal: the worker
// reports the cause verbatim in the status message and never retries.

type DownloadError struct {
	Err error
}

func (e *DownloadError) Error() string { return e.Err.Error() }
func (e *DownloadError) Unwrap() error { return e.Err }

type AccessError struct {
	Err error
}

func (e *AccessError) Error() string { return e.Err.Error() }
func (e *AccessError) Unwrap() error { return e.Err }

type UploadError struct {
	Err error
}

func (e *UploadError) Error() string { return e.Err.Error() }
func (e *UploadError) Unwrap() error { return e.Err }

type SplitError struct {
	Err error
}

func (e *SplitError) Error() string { return e.Err.Error() }
func (e *SplitError) Unwrap() error { return e.Err }

// FailKind names the failure class of err for logs and events.
func FailKind(err error) string {
	var (
		downloadErr *DownloadError
		accessErr   *AccessError
		uploadErr   *UploadError
		splitErr    *SplitError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &downloadErr):
		return "download"
	case errors.As(err, &accessErr):
		return "access"
	case errors.As(err, &uploadErr):
		return "upload"
	case errors.As(err, &splitErr):
		return "split"
	default:
		return "internal"
	}
}

var restrictionKeywords = []string{"age-restricted", "login", "private"}

const cookieHint = "\n\nHint: This video may require login/cookies. " +
	"Set YTDLP_COOKIES_CONTENT (exported cookies.txt content) in env and restart."

// RestrictionHint returns the cookie hint when the failure text points
// at access-restricted content, or an empty string.
func RestrictionHint(msg string) string {
	lower := strings.ToLower(msg)
	for _, keyword := range restrictionKeywords {
		if strings.Contains(lower, keyword) {
			return cookieHint
		}
	}
	return ""
}
