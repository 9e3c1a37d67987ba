package adreal

import (
	"errors"
	"fmt"
)

// AuthError indicates the API rejected the configured credentials during
// the login handshake. Not retried at the client layer.
type AuthError struct {
	Username string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("adreal: authentication failed for %q", e.Username)
}

// HTTPError carries the status and a body snippet from a non-2xx response.
type HTTPError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("adreal: http %d from %s", e.StatusCode, e.URL)
}

// PermissionError is a 403 whose body explicitly signals that the account
// lacks rights to one or more of the requested brand ids. It triggers the
// bisection probe instead of a blind retry.
type PermissionError struct {
	URL  string
	Body string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("adreal: permission denied by %s", e.URL)
}

// AllForbiddenError is returned when the permission probe isolates every
// requested brand id as forbidden.
type AllForbiddenError struct {
	Forbidden []string
}

func (e *AllForbiddenError) Error() string {
	return fmt.Sprintf("adreal: account has no rights to any of the %d requested brand ids", len(e.Forbidden))
}

// IsPermissionDenied reports whether err is a "no permission" 403.
func IsPermissionDenied(err error) bool {
	var pe *PermissionError
	return errors.As(err, &pe)
}

// IsAuth reports whether err is a credential rejection.
func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// retryable reports whether err is worth a re-login and retry: transport
// failures, 5xx, and 403s that do not carry "no permission" semantics.
// Other HTTP statuses propagate immediately.
func retryable(err error) bool {
	if err == nil {
		return false
	}
	if IsPermissionDenied(err) || IsAuth(err) {
		return false
	}
	var he *HTTPError
	if errors.As(err, &he) {
		return he.StatusCode == 403 || he.StatusCode >= 500
	}
	// Transport-level errors (timeouts, resets) have no HTTPError.
	return true
}
