// Package apierror maps pipeline errors onto HTTP responses.
package apierror

import (
	"context"
	"errors"
	"net/http"

	"github.com/echolabs-ai/echotwin/pkg/core"
)

// Envelope is the JSON error body: {"error": {...}}.
type Envelope struct {
	Error *core.Error `json:"error"`
}

// FromError converts any error into the canonical envelope error and its
// HTTP status.
func FromError(err error, requestID string) (*core.Error, int) {
	if err == nil {
		return nil, http.StatusOK
	}

	// Already canonical. Checked before the context branches: a provider
	// timeout is wrapped into its step's kind, and that kind must survive
	// even though the chain bottoms out in context.DeadlineExceeded.
	var coreErr *core.Error
	if errors.As(err, &coreErr) && coreErr != nil {
		out := *coreErr
		out.RequestID = requestID
		return &out, StatusFromType(coreErr.Type)
	}

	// Bare context timeouts/cancellation that escaped the pipeline's own
	// per-step bounds.
	if errors.Is(err, context.DeadlineExceeded) {
		return &core.Error{
			Type:      core.ErrStorage,
			Message:   "request timeout",
			RequestID: requestID,
		}, http.StatusGatewayTimeout
	}
	if errors.Is(err, context.Canceled) {
		return &core.Error{
			Type:      core.ErrStorage,
			Message:   "request cancelled",
			RequestID: requestID,
		}, http.StatusRequestTimeout
	}

	return &core.Error{
		Type:      core.ErrStorage,
		Message:   "internal error",
		RequestID: requestID,
	}, http.StatusInternalServerError
}

// StatusFromType maps an error kind to its HTTP status.
func StatusFromType(t core.ErrorType) int {
	switch t {
	case core.ErrValidation:
		return http.StatusBadRequest
	case core.ErrNotFound:
		return http.StatusNotFound
	case core.ErrTranscription, core.ErrReasoning, core.ErrSynthesis:
		return http.StatusBadGateway
	case core.ErrStorage:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
