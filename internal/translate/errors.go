package translate

import "fmt"

// Kind is the SPEC_FULL.md §7 error taxonomy, shared by every translation
// stage. Each constant is a distinct internal value — used by the Request
// Handler to pick the right HTTP status — even where several of them share
// the same client-facing wire `type` string; use WireType, not a bare
// string conversion, to get that wire value.
type Kind string

const (
	KindAuthentication    Kind = "authentication_error"
	KindInvalidRequest    Kind = "invalid_request_error"
	KindTranslation       Kind = "invalid_request_error"
	KindRateLimited       Kind = "rate_limit_error"
	KindOverloaded        Kind = "overloaded_error"
	KindUnavailable       Kind = "unavailable_error"
	KindUpstream          Kind = "upstream_error"
	KindProjectResolution Kind = "project_resolution_error"
	KindInternal          Kind = "internal_error"
)

// WireType returns the client-facing Anthropic error `type` string for
// kind. Unavailable/Upstream/ProjectResolution/Internal all collapse onto
// the single "api_error" wire type Anthropic's own taxonomy uses, even
// though they remain distinct Kind values for HTTP-status purposes.
func (k Kind) WireType() string {
	switch k {
	case KindAuthentication, KindInvalidRequest, KindRateLimited, KindOverloaded:
		return string(k)
	default:
		return "api_error"
	}
}

// Error is a kind-tagged error usable all the way out to the HTTP layer.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.Message) }

func NewError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
