package portal

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// APIError is a non-2xx answer of the LMS API.
type APIError struct {
	Status  int
	Message string
	Fields  map[string]string // per field validation errors
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" && len(e.Fields) > 0 {
		msg = e.fieldsMessage()
	}
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("api error %d: %s", e.Status, msg)
}

func (e *APIError) fieldsMessage() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name])
	}
	return strings.Join(parts, "; ")
}

// NetworkError is a request that never got an answer.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return "network error: " + e.Err.Error() }
func (e *NetworkError) Cause() error  { return e.Err }
func (e *NetworkError) Unwrap() error { return e.Err }

type Kind int

const (
	KindGeneric Kind = iota
	KindAuth
	KindPermission
	KindNotFound
	KindValidation
	KindNetwork
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindPermission:
		return "permission"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindNetwork:
		return "network"
	default:
		return "generic"
	}
}

// Classify tells what kind of failure err is, so that callers can pick a message or a recovery.
func Classify(err error) Kind {
	if err == nil {
		return KindGeneric
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case http.StatusUnauthorized:
			return KindAuth
		case http.StatusForbidden:
			return KindPermission
		case http.StatusNotFound:
			return KindNotFound
		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			return KindValidation
		default:
			return KindGeneric
		}
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return KindNetwork
	}
	return KindGeneric
}

// Message returns the user facing text for err.
func Message(err error) string {
	switch Classify(err) {
	case KindAuth:
		return "Your session has expired, please log in again."
	case KindPermission:
		return "You do not have permission to do that."
	case KindNotFound:
		return "This item no longer exists."
	case KindValidation:
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			if len(apiErr.Fields) > 0 {
				return apiErr.fieldsMessage()
			}
			if apiErr.Message != "" {
				return apiErr.Message
			}
		}
		return "Some values are invalid."
	case KindNetwork:
		return "Could not reach the server, check your connection and try again."
	default:
		return "Something went wrong, please try again."
	}
}
