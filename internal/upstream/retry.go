package upstream

import (
	"errors"
	"fmt"
	"strings"
)

// retryKeywords mark a failure as an authentication or quota problem that an
// anonymous attempt may get around.
var retryKeywords = []string{"401", "429", "token", "limit", "quota"}

// InvocationError is a failed backend call. It unwraps to the backend error,
// so session.ErrAuthenticationFailed stays visible to errors.Is.
type InvocationError struct {
	Model     string
	Anonymous bool
	Err       error
}

func (e *InvocationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("backend %s failed", e.Model)
	}
	return e.Err.Error()
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}

// IsInvocationError reports whether err is a backend call failure.
func IsInvocationError(err error) bool {
	var ie *InvocationError
	return errors.As(err, &ie)
}

// shouldRetryAnonymously reports whether a credentialed failure looks like an
// authentication or quota error. Matching is case-insensitive on the message.
func shouldRetryAnonymously(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, kw := range retryKeywords {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}
