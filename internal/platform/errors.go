package platform

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/oauth2"
)

var (
	ErrProcessingTimeout = errors.New("processing timed out")
	ErrProcessingFailed  = errors.New("processing failed")
	ErrUnsupported       = errors.New("operation not supported by platform")
	// ErrTransport marks failures where no platform response was received.
	ErrTransport = errors.New("platform unreachable")
)

var credentialParam = regexp.MustCompile(`((?:access_token|refresh_token|client_secret|input_token)=)[^&\s"]+`)

func redact(s string) string {
	return credentialParam.ReplaceAllString(s, "${1}REDACTED")
}

// transportError wraps a round trip that never produced a response. The
// request URL is left out of the message since its query can carry tokens.
func transportError(platform string, err error) *Error {
	op, cause := "request", err
	var uerr *url.Error
	if errors.As(err, &uerr) {
		op, cause = uerr.Op, uerr.Err
	}
	return &Error{
		Platform: platform,
		Message:  redact(fmt.Sprintf("%s %s failed: %v", platform, strings.ToLower(op), cause)),
		Err:      errors.Join(ErrTransport, cause),
	}
}

// Error is the normalized form of every platform failure. Message is the
// platform's human-readable text and is what ends up on a failed post.
type Error struct {
	Platform   string
	StatusCode int
	Code       int
	Subcode    int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err carries one of the retryable signatures the
// Graph and Pinterest APIs use for temporary failures.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrProcessingTimeout) || errors.Is(err, ErrProcessingFailed) {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unexpected error") || strings.Contains(msg, "retry")
}

// IsAuthRejected reports whether the platform refused the credentials
// themselves, as opposed to failing or being unreachable.
func IsAuthRejected(err error) bool {
	var perr *Error
	if !errors.As(err, &perr) || errors.Is(err, ErrTransport) {
		return false
	}
	switch {
	case perr.Code == 190 || perr.Code == 102:
		return true
	case perr.StatusCode == http.StatusUnauthorized:
		return true
	case perr.StatusCode == http.StatusBadRequest:
		var rerr *oauth2.RetrieveError
		return errors.As(perr.Err, &rerr)
	}
	return false
}

// Message returns the platform message carried by err, or err's own text.
// Credential query values are masked.
func Message(err error) string {
	var perr *Error
	if errors.As(err, &perr) && perr.Message != "" {
		return redact(perr.Message)
	}
	return redact(err.Error())
}
