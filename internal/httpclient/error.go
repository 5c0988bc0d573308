package httpclient

import (
	"errors"
	"fmt"
	"net/http"

	ierr "github.com/condohub/billing/internal/errors"
)

// maxErrorBody bounds how much of a failed response is kept on the error
const maxErrorBody = 4 << 10

// Error is returned by Send for any response with status >= 400
type Error struct {
	StatusCode int
	Response   []byte
	Method     string
	URL        string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d %s", e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Is lets ierr.Is(err, ierr.ErrHTTPClient) match every status error
func (e *Error) Is(target error) bool {
	return target == ierr.ErrHTTPClient
}

// Rejected reports whether the remote side refused the request itself, as
// opposed to failing while handling it
func (e *Error) Rejected() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500 && e.StatusCode != http.StatusTooManyRequests
}

func newStatusError(req *http.Request, statusCode int, body []byte) *Error {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return &Error{
		StatusCode: statusCode,
		Response:   body,
		Method:     req.Method,
		URL:        req.URL.Redacted(),
	}
}

// IsHTTPError unwraps err down to a status error
func IsHTTPError(err error) (*Error, bool) {
	var httpErr *Error
	if errors.As(err, &httpErr) {
		return httpErr, true
	}
	return nil, false
}
