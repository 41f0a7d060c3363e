// Package provider defines the error class shared by all LLM provider
// adapters, plus credential plausibility checks performed before any
// provider is contacted.
//
// A *provider.Error means the provider (or the caller's provider inputs)
// misbehaved: a bad HTTP status, a missing response field, malformed JSON,
// an empty slide list, an unsupported provider name, or an implausible
// credential. Callers use AsError to tell these apart from internal faults.
package provider

import (
	"errors"
	"fmt"
	"strings"
)

// excerptLimit bounds how much of a provider response body may appear in an
// error message. Bodies can echo request content, so they are never included
// in full.
const excerptLimit = 200

// Error is the distinguishable error class for provider failures.
type Error struct {
	// Provider is the lowercase provider identifier, or "" when the failure
	// happened before a provider was selected.
	Provider string

	// StatusCode is the HTTP status returned by the provider, or 0 when the
	// failure was not an HTTP-status failure.
	StatusCode int

	Message string
}

func (e *Error) Error() string {
	switch {
	case e.Provider != "" && e.StatusCode != 0:
		return fmt.Sprintf("%s: %s (status %d)", e.Provider, e.Message, e.StatusCode)
	case e.Provider != "":
		return fmt.Sprintf("%s: %s", e.Provider, e.Message)
	default:
		return e.Message
	}
}

// Errorf builds a *Error with a formatted message.
func Errorf(providerName string, statusCode int, format string, args ...interface{}) *Error {
	return &Error{
		Provider:   providerName,
		StatusCode: statusCode,
		Message:    fmt.Sprintf(format, args...),
	}
}

// StatusError builds a *Error for a non-success HTTP status, embedding a
// truncated excerpt of the response body.
func StatusError(providerName string, statusCode int, body []byte) *Error {
	return &Error{
		Provider:   providerName,
		StatusCode: statusCode,
		Message:    fmt.Sprintf("API error %d: %s", statusCode, Excerpt(body)),
	}
}

// Excerpt returns at most excerptLimit bytes of body as a string.
func Excerpt(body []byte) string {
	if len(body) > excerptLimit {
		return string(body[:excerptLimit])
	}
	return string(body)
}

// AsError reports whether err is (or wraps) a *Error, returning it if so.
func AsError(err error) (*Error, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// ValidateKey screens a credential string for obvious paste mistakes before
// any request is made: quoted keys, "Bearer " prefixes, whole headers, or
// fragments of source code. The key itself never appears in the returned
// error.
func ValidateKey(providerName, key string) error {
	bad := []string{" ", "http", "Bearer "}
	for _, s := range bad {
		if strings.Contains(key, s) {
			return Errorf(providerName, 0, "API key looks invalid: paste only your provider token (no quotes/Bearer/spaces)")
		}
	}
	if len(key) < 20 {
		return Errorf(providerName, 0, "API key looks invalid: paste only your provider token (no quotes/Bearer/spaces)")
	}
	return nil
}
