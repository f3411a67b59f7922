package service

// Logging standards for wp-bot
//
// Standard field names, log levels, and message patterns used across the
// bridge so log lines can be filtered the same way everywhere.

// Standard Field Names
const (
	// Core identifiers
	LogFieldMessageID = "message_id"
	LogFieldChatID    = "chat_id"
	LogFieldChatName  = "chat_name"
	LogFieldSenderID  = "sender_id"
	LogFieldForwardID = "forward_id"
	LogFieldTraceID   = "trace_id"

	// Component and operation fields
	LogFieldComponent = "component"
	LogFieldOperation = "operation"

	// Session lifecycle
	LogFieldEvent  = "event"
	LogFieldState  = "state"
	LogFieldReason = "reason"
	LogFieldScope  = "scope"

	// Message fields
	LogFieldMessageType = "message_type"
	LogFieldIsGroup     = "is_group"
	LogFieldHasMedia    = "has_media"

	// Performance
	LogFieldDuration = "duration_ms"
	LogFieldCount    = "count"

	// Outbound HTTP
	LogFieldEndpoint   = "endpoint"
	LogFieldStatusCode = "status_code"
	LogFieldOutcome    = "outcome"

	// Files
	LogFieldFilePath = "file_path"

	// Status server requests
	LogFieldRequestID = "request_id"
	LogFieldMethod    = "method"
	LogFieldURL       = "url"
	LogFieldRemoteIP  = "remote_ip"
	LogFieldUserAgent = "user_agent"
	LogFieldSize      = "response_size"
)

// Log Level Usage Guidelines
//
// DEBUG: filtered messages, raw lifecycle events, heartbeat ticks.
// INFO: lifecycle transitions, every in-scope message, forward successes.
// WARN: best-effort failures (state file writes), unresolved group scope,
//   transient disconnects.
// ERROR: forward failures, metadata lookup failures, authentication failures,
//   session identity loss.

// Standard Log Message Patterns
//
// Starting operations: "Starting [operation]"
// Failed operations: "Failed to [operation]"
// Skipping operations: "Skipping [operation]: [reason]"
// Lifecycle: "WhatsApp session [state]"
