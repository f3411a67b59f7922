package constants

// State reassertion and shutdown timing
const (
	StateReassertIntervalSec   = 60
	AuthFailureExitDelayMs     = 2000
	DefaultGracefulShutdownSec = 10
	ClientDestroyTimeoutSec    = 15
)

// Forwarding
const (
	ForwardTimeoutSec        = 10
	ForwardResultChanSize    = 1
	ContentTypeJSON          = "application/json"
	AuthorizationScheme      = "Bearer"
	MetadataLookupTimeoutSec = 10
)

// Status server timeouts
const (
	DefaultServerReadTimeoutSec  = 15
	DefaultServerWriteTimeoutSec = 15
	DefaultServerIdleTimeoutSec  = 60
	ServerErrorChannelSize       = 1
)

// File permission constants
const (
	StateFilePermissions      = 0644
	StateDirectoryPermissions = 0755
)

// Privacy settings
const (
	MaskVisibleChars = 4
)
