package errors

import (
	"context"
	"errors"
	"net"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/api/googleapi"
)

// HTTP statuses worth a retry: provider rate limits and server-side faults.
var transientHTTPCodes = map[int]bool{
	429: true,
	500: true,
	502: true,
	503: true,
	504: true,
}

// Retryable reports whether a collaborator error is transient. Authentication
// and validation failures are fatal and must surface immediately; timeouts,
// 5xx and provider rate limits are worth another attempt.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	// Business-logic categories are never retried at the collaborator boundary.
	if errors.Is(err, ErrValidation) || errors.Is(err, ErrConflict) || errors.Is(err, ErrNotFound) {
		return false
	}

	var anthErr *anthropic.Error
	if errors.As(err, &anthErr) {
		return transientHTTPCodes[anthErr.StatusCode]
	}

	var oaiErr *openai.APIError
	if errors.As(err, &oaiErr) {
		return transientHTTPCodes[oaiErr.HTTPStatusCode]
	}

	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return transientHTTPCodes[gErr.Code]
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	// Fall back to message sniffing for errors the SDKs did not type.
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unauthorized"),
		strings.Contains(msg, "forbidden"),
		strings.Contains(msg, "invalid request"),
		strings.Contains(msg, "bad request"):
		return false
	case strings.Contains(msg, "rate limit"),
		strings.Contains(msg, "too many requests"),
		strings.Contains(msg, "quota"),
		strings.Contains(msg, "timeout"),
		strings.Contains(msg, "connection"),
		strings.Contains(msg, "unreachable"),
		strings.Contains(msg, "temporar"):
		return true
	}

	return false
}
