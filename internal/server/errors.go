package server

import (
	"errors"
	"net/http"

	"github.com/howard-nolan/geminiproxy/internal/anthropicapi"
	"github.com/howard-nolan/geminiproxy/internal/translate"
)

// statusForKind maps a translate.Kind to its HTTP status per SPEC_FULL.md
// §7's table: Unavailable is 503, Internal is 500, everything else that
// shares the "api_error" wire type (Upstream, ProjectResolution) is 502.
func statusForKind(kind translate.Kind) int {
	switch kind {
	case translate.KindAuthentication:
		return http.StatusUnauthorized
	case translate.KindInvalidRequest, translate.KindTranslation:
		return http.StatusBadRequest
	case translate.KindRateLimited:
		return http.StatusTooManyRequests
	case translate.KindOverloaded:
		return 529
	case translate.KindUnavailable:
		return http.StatusServiceUnavailable
	case translate.KindInternal:
		return http.StatusInternalServerError
	default: // KindUpstream, KindProjectResolution
		return http.StatusBadGateway
	}
}

// writeError renders err as the standard {"type":"error","error":{...}}
// envelope at the appropriate status code. A *translate.Error carries its
// own kind; any other error is treated as Internal.
func writeError(w http.ResponseWriter, err error) {
	var translateErr *translate.Error
	kind := translate.KindInternal
	message := err.Error()
	if errors.As(err, &translateErr) {
		kind = translateErr.Kind
		message = translateErr.Message
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusForKind(kind))
	encodeJSON(w, anthropicapi.NewErrorBody(kind.WireType(), message))
}
