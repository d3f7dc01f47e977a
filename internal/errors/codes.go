package errors

// Generic error code definitions used as sensible defaults across modules.
const (
	CodeSystemGeneric = "SYS-000"
	CodeConfigGeneric = "CFG-000"
)

// Specific codes emitted by the manifest and download components.
const (
	CodeManifestRequest  = "NET-001"
	CodeManifestStatus   = "NET-002"
	CodeDownloadRequest  = "NET-003"
	CodeDownloadStatus   = "NET-004"
	CodeManifestInvalid  = "VAL-001"
	CodeEntryInvalid     = "VAL-002"
	CodeChecksumMismatch = "VAL-003"
	CodeFilesystem       = "SYS-001"
	CodeConfigInvalid    = "CFG-001"
)
