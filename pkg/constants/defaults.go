package constants

// Device store settings used by the WhatsApp client package
const (
	DeviceStoreDialect   = "sqlite3"
	DeviceStoreFileName  = "session.db"
	DeviceStoreDSNParams = "?_foreign_keys=on&_busy_timeout=5000"
)

// Timing constants used by the WhatsApp client package
const (
	DefaultGroupCacheTTLMinutes = 30
	DefaultStoreMaxBackoffSec   = 5
)

// File permission constants
const (
	DefaultDirectoryPermissions = 0700
)
