package a2a

import "fmt"

// ErrorKind is the semantic error taxonomy of §4.1 — a closed set of
// kinds, each mapping to a stable JSON-RPC error code.
type ErrorKind string

const (
	ErrNetwork                  ErrorKind = "network"
	ErrTimeout                  ErrorKind = "timeout"
	ErrAuthentication           ErrorKind = "authentication"
	ErrValidation               ErrorKind = "validation"
	ErrTaskNotFound             ErrorKind = "task_not_found"
	ErrTaskFailed               ErrorKind = "task_failed"
	ErrTaskCancelled            ErrorKind = "task_cancelled"
	ErrAgentNotFound            ErrorKind = "agent_not_found"
	ErrExtensionSupportRequired ErrorKind = "extension_support_required"
	ErrMaxHopsExceeded          ErrorKind = "max_hops_exceeded"
	ErrRoutingLoop              ErrorKind = "routing_loop"
	ErrCycleDetected            ErrorKind = "cycle_detected"
	ErrInternal                 ErrorKind = "internal"
)

// rpcCode maps each ErrorKind to its JSON-RPC error code. The
// A2A-specific kinds occupy the reserved range -32001..-32007 (§4.1);
// everything else not in this table is an envelope-level JSON-RPC error
// (-32700..-32603) produced by the rpcserver package directly, not by
// an a2a.Error.
var rpcCode = map[ErrorKind]int{
	ErrAuthentication:           -32001,
	ErrAgentNotFound:            -32002,
	ErrTaskNotFound:             -32003,
	ErrTaskFailed:               -32004,
	ErrTaskCancelled:            -32005,
	ErrExtensionSupportRequired: -32006,
	ErrValidation:               -32007,
	ErrMaxHopsExceeded:          -32007,
	ErrRoutingLoop:              -32007,
	ErrCycleDetected:            -32007,
	ErrNetwork:                  -32603,
	ErrTimeout:                  -32603,
	ErrInternal:                 -32603,
}

// Error is the concrete error type every A2A-semantic failure surfaced
// by the core takes. It carries enough structured detail (TaskID,
// AgentID, URI) to populate the JSON-RPC error's "data" field without
// ever leaking stack traces or credentials (§7).
type Error struct {
	Kind    ErrorKind
	Message string
	TaskID  string
	AgentID string
	URI     string
	Err     error // wrapped cause, if any
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	switch e.Kind {
	case ErrAgentNotFound:
		return fmt.Sprintf("agent not found: %s", e.AgentID)
	case ErrTaskNotFound:
		return fmt.Sprintf("task not found: %s", e.TaskID)
	case ErrExtensionSupportRequired:
		return fmt.Sprintf("extension support required: %s", e.URI)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code returns the JSON-RPC error code for e.Kind, defaulting to the
// generic Internal code (-32603) for any kind not in the table.
func (e *Error) Code() int {
	if c, ok := rpcCode[e.Kind]; ok {
		return c
	}
	return rpcCode[ErrInternal]
}

// Is supports errors.Is(err, &Error{Kind: ...}) comparisons by kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// NewError constructs an *Error of the given kind with a formatted
// message, following the teacher's *Error{Component,...} + fmt.Errorf
// wrapping convention, adapted to carry ErrorKind instead of a free-form
// component/operation pair.
func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError constructs an *Error of the given kind wrapping cause.
func WrapError(kind ErrorKind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: cause}
}

// AgentNotFoundError constructs the AgentNotFound{agent_id} kind.
func AgentNotFoundError(agentID string) *Error {
	return &Error{Kind: ErrAgentNotFound, AgentID: agentID}
}

// TaskNotFoundError constructs the TaskNotFound{task_id} kind.
func TaskNotFoundError(taskID string) *Error {
	return &Error{Kind: ErrTaskNotFound, TaskID: taskID}
}

// TaskFailedError constructs the TaskFailed{task_id, reason} kind.
func TaskFailedError(taskID, reason string) *Error {
	return &Error{Kind: ErrTaskFailed, TaskID: taskID, Message: reason}
}

// TaskCancelledError constructs the TaskCancelled{task_id} kind.
func TaskCancelledError(taskID string) *Error {
	return &Error{Kind: ErrTaskCancelled, TaskID: taskID}
}

// ExtensionSupportRequiredError constructs the ExtensionSupportRequired{uri} kind.
func ExtensionSupportRequiredError(uri string) *Error {
	return &Error{Kind: ErrExtensionSupportRequired, URI: uri}
}

// kindByCode is the reverse of rpcCode, used by transport to reconstruct
// a typed Error from a JSON-RPC error code received over the wire. Where
// several kinds share a code (the -32007 validation/max-hops/loop/cycle
// quartet), the most general kind (Validation) is picked; callers that
// need the precise kind rely on the structured "data" payload instead.
var kindByCode = map[int]ErrorKind{
	-32001: ErrAuthentication,
	-32002: ErrAgentNotFound,
	-32003: ErrTaskNotFound,
	-32004: ErrTaskFailed,
	-32005: ErrTaskCancelled,
	-32006: ErrExtensionSupportRequired,
	-32007: ErrValidation,
}

// ErrorFromCode reconstructs an *Error from a JSON-RPC error code and
// message, the inverse of Error.Code, for use by client-side transports
// translating a wire-level error back into the taxonomy.
func ErrorFromCode(code int, message string) *Error {
	kind, ok := kindByCode[code]
	if !ok {
		kind = ErrInternal
	}
	return &Error{Kind: kind, Message: message}
}
