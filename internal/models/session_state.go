package models

// SessionState is the externally visible state of the WhatsApp session.
// Its literal value is what gets written to the state file.
type SessionState string

const (
	StateQR             SessionState = "QR"
	StateAuthenticated  SessionState = "AUTHENTICATED"
	StateReady          SessionState = "READY"
	StateConnected      SessionState = "CONNECTED"
	StateDisconnected   SessionState = "DISCONNECTED"
	StateSessionExpired SessionState = "SESSION_EXPIRED"
	StateAuthFailure    SessionState = "AUTH_FAILURE"
	StateLoggedOut      SessionState = "LOGGED_OUT"
)

// String returns the literal state name
func (s SessionState) String() string {
	return string(s)
}

// IsTerminal reports whether the state ends the process
func (s SessionState) IsTerminal() bool {
	switch s {
	case StateSessionExpired, StateLoggedOut, StateAuthFailure:
		return true
	}
	return false
}

// IsLive reports whether the session is usable for receiving messages
func (s SessionState) IsLive() bool {
	return s == StateReady || s == StateConnected
}
