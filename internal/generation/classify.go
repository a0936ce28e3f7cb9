package generation

import (
	"context"
	"errors"
	"net"
	"net/http"

	openai "github.com/openai/openai-go"
	"google.golang.org/genai"
)

// IsTransient reports whether a generation failure is worth retrying:
// rate limiting, provider side errors and per-call timeouts. Degenerate
// output and client errors are not.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrEmptyOutput) || errors.Is(err, ErrDuplicateTitle) {
		return false
	}

	var oaErr *openai.Error
	if errors.As(err, &oaErr) {
		return retryableStatus(oaErr.StatusCode)
	}
	var gErr genai.APIError
	if errors.As(err, &gErr) {
		return retryableStatus(gErr.Code)
	}
	var gErrPtr *genai.APIError
	if errors.As(err, &gErrPtr) {
		return retryableStatus(gErrPtr.Code)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code == http.StatusRequestTimeout || code >= 500
}
