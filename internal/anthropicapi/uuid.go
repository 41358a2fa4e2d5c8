package anthropicapi

import (
	"strings"

	"github.com/google/uuid"
)

// newUUIDSimple returns a v4 UUID with hyphens stripped, matching the
// original Rust source's `Uuid::new_v4().simple()` formatting used for
// message/tool/user_prompt ids.
func newUUIDSimple() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// NewToolUseID mints a fresh tool_use id.
func NewToolUseID() string {
	return "toolu_" + newUUIDSimple()
}

// NewMessageID mints a fresh top-level message id.
func NewMessageID() string {
	return "msg_" + newUUIDSimple()
}
