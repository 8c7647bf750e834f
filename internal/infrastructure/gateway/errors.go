package gateway

import (
	"errors"
	"fmt"
)

// GatewayError is a typed failure from the payment provider, resolved once
// here rather than re-parsed by every caller.
type GatewayError struct {
	Code       string
	Message    string
	StatusCode int
}

type gatewayErrorResponse struct {
	Err     string `json:"error"`
	Message string `json:"message"`
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway error [%s]: %s (status: %d)", e.Code, e.Message, e.StatusCode)
}

func (e *GatewayError) IsRetryable() bool {
	return e.StatusCode >= 500
}

func IsGatewayError(err error) (*GatewayError, bool) {
	var gwErr *GatewayError
	ok := errors.As(err, &gwErr)
	return gwErr, ok
}
