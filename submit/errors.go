package submit

import "errors"

// Error taxonomy surfaced to the respondent. NotFound and Closed render as
// terminal full-screen states with no retry; the rest put the session into a
// recoverable failed state.
var (
	ErrNotFound       = errors.New("form not found")
	ErrClosed         = errors.New("form is closed")
	ErrDomainRejected = errors.New("referrer domain not allowed")
	ErrTokenInvalid   = errors.New("submit token invalid")
)

// Terminal reports whether the error ends the respondent session outright.
func Terminal(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrClosed)
}
