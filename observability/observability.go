// Package observability provides the structured-logging and
// OpenTelemetry-tracing helpers the rest of the module builds on
// (ambient stack, §7.1, §4.5.1). It deliberately stops short of
// tracing/logging *setup* — wiring a TracerProvider, exporters, or a
// slog handler is left to whatever embeds this module (an explicit
// Non-goal) — and only gives callers a consistent place to get a named
// logger or start one of the module's well-known spans.
package observability

// Span names emitted by this module (§4.5.1).
const (
	// SpanRouterHop names the span each Router hop emits.
	SpanRouterHop = "ranch.router.hop"
)

// Span attribute keys, mirroring the teacher's v2/observability
// constants.go convention of naming attributes once and sharing them
// across every call site that emits them.
const (
	AttrRecipient      = "recipient"
	AttrHop            = "hop"
	AttrExtensionUsed  = "extension_used"
	AttrTeamID         = "team_id"
	AttrMemberCount    = "member_count"
	AttrErrorType      = "error.type"
	AttrErrorMessage   = "error.message"
)
