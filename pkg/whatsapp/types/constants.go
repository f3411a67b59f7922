package types

// EventKind identifies a Session Client lifecycle event
type EventKind string

const (
	EventQR            EventKind = "qr"
	EventAuthenticated EventKind = "authenticated"
	EventAuthFailure   EventKind = "auth_failure"
	EventReady         EventKind = "ready"
	EventDisconnected  EventKind = "disconnected"
	EventStateChanged  EventKind = "state_changed"
)

// Disconnect reasons carried by EventDisconnected. NAVIGATION and LOGOUT
// mean the session identity is gone and a new QR pairing is required.
const (
	DisconnectNavigation     = "NAVIGATION"
	DisconnectLogout         = "LOGOUT"
	DisconnectConnectionLost = "CONNECTION_LOST"
)

// Connectivity substates carried by EventStateChanged
const (
	SubstateConnected = "CONNECTED"
	SubstateTimeout   = "TIMEOUT"
)

// Message types reported in the forward payload
const (
	MessageTypeChat     = "chat"
	MessageTypeImage    = "image"
	MessageTypeVideo    = "video"
	MessageTypeAudio    = "audio"
	MessageTypePTT      = "ptt"
	MessageTypeDocument = "document"
	MessageTypeSticker  = "sticker"
	MessageTypeLocation = "location"
	MessageTypeVCard    = "vcard"
	MessageTypeUnknown  = "unknown"
)

// JID servers
const (
	GroupServer = "g.us"
	UserServer  = "s.whatsapp.net"
)
