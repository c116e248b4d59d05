package source

import (
	"errors"
	"fmt"
)

// ErrMalformedPayload is wrapped by FetchError when the response body is not a ticker object.
var ErrMalformedPayload = errors.New("malformed ticker payload")

// maxErrorBody limits how much of a response body is rendered by Error.
const maxErrorBody = 512

// FetchError describes a failed upstream fetch.
// StatusCode is 0 and Body is nil when no response was received.
type FetchError struct {
	URL        string
	StatusCode int
	Body       []byte
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	if len(e.Body) == 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: status %d: %v: %s", e.URL, e.StatusCode, e.Err, e.BodySnippet())
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// BodySnippet returns the response body truncated for logging.
func (e *FetchError) BodySnippet() string {
	if len(e.Body) <= maxErrorBody {
		return string(e.Body)
	}
	return string(e.Body[:maxErrorBody]) + "..."
}

// IsRetryable returns true for transport failures, 5xx and 429 responses.
func (e *FetchError) IsRetryable() bool {
	if errors.Is(e.Err, ErrMalformedPayload) {
		return false
	}
	return e.StatusCode == 0 || e.StatusCode >= 500 || e.StatusCode == 429
}
