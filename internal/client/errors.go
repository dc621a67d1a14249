package client

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/claims-center/claimsapi/internal/apperrors"
)

// maxErrorBodySize caps how much of an error response body is kept in the error message
const maxErrorBodySize = 4096

// ErrHTTPStatus is wrapped by ClientErrors created from a non-2xx response
var ErrHTTPStatus = errors.New("unexpected http status")

// ClientError represents an error encountered when communicating with the claims API.
// StatusCode 0 = network/connection or internal error, >0 = HTTP response received
type ClientError struct {
	Code       apperrors.ErrorCode
	StatusCode int
	Endpoint   string
	Message    string
	Err        error
}

func (e *ClientError) Error() string {
	if e.StatusCode > 0 {
		if e.Message == "" {
			return fmt.Sprintf("claims api returned status %d for %s", e.StatusCode, e.Endpoint)
		}
		return fmt.Sprintf("claims api returned status %d for %s: %s", e.StatusCode, e.Endpoint, e.Message)
	}
	return fmt.Sprintf("%s for %s: %s", e.Code, e.Endpoint, e.Message)
}

func (e *ClientError) Unwrap() error {
	return e.Err
}

// NewClientConnectionError creates a ClientError for network/connection issues (including timeouts)
func NewClientConnectionError(err error, endpoint string) *ClientError {
	return &ClientError{
		Code:     apperrors.ErrCodeConnection,
		Endpoint: endpoint,
		Message:  fmt.Sprintf("network error: %v", err),
		Err:      err,
	}
}

// NewClientInternalError creates a ClientError for internal errors, supply the error and an explanation of what was being done when the error occurred
func NewClientInternalError(err error, endpoint string, while string) *ClientError {
	return &ClientError{
		Code:     apperrors.ErrCodeInternalError,
		Endpoint: endpoint,
		Message:  fmt.Sprintf("internal error: %v while %v", err, while),
		Err:      err,
	}
}

// NewClientAPIError creates a ClientError from a non-2xx HTTP response sent by the claims API
func NewClientAPIError(res *http.Response, endpoint string) *ClientError {
	var msg string
	if res.Body != nil {
		body, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBodySize))
		msg = strings.TrimSpace(string(body))
	}

	return &ClientError{
		Code:       apperrors.ErrCodeHTTP,
		StatusCode: res.StatusCode,
		Endpoint:   endpoint,
		Message:    msg,
		Err:        ErrHTTPStatus,
	}
}
