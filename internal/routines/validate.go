package routines

import "github.com/go-playground/validator/v10"

// validate is shared across every routine that needs to check a
// decoded request against the protocol invariants of spec.md §3
// before running — non-empty exec argv, non-empty listdir path —
// turning a violation directly into a ProtocolError rather than a
// routine-specific crash. The NUL-byte check in exec.go and the
// va_list_index bound in call.go are plain Go checks.
var validate = validator.New()
