package constants

import (
	"io/fs"
	"time"
)

const (
	// DefaultDirPerm is the default permission used when creating directories.
	DefaultDirPerm fs.FileMode = 0o755
	// DefaultFilePerm is the default permission used when creating files.
	DefaultFilePerm fs.FileMode = 0o644
)

const (
	// SessionLogFileName is the per-folder browser state log inside a capture archive.
	SessionLogFileName = "browser_data_log.jsonl"
	// NetworkRequestsFileName is the optional per-folder network capture.
	NetworkRequestsFileName = "network_requests.json"
	// RootFolderName names sessions whose log sits at the archive root.
	RootFolderName = "root"
	// ScratchDirPattern is the os.MkdirTemp pattern for per-scan extraction directories.
	ScratchDirPattern = "privscan-*"
)

const (
	// MaxExtractBytes caps how much a single archive member may expand to on disk.
	MaxExtractBytes int64 = 512 << 20
	// MaxLogLineBytes caps a single JSONL record.
	MaxLogLineBytes = 16 << 20
)

const (
	// DefaultProbeTimeout bounds every HTTP request issued by the encryption prober.
	DefaultProbeTimeout = 10 * time.Second
	// DefaultHandshakeTimeout bounds each raw TLS/SSL handshake attempt.
	DefaultHandshakeTimeout = 10 * time.Second
	// DefaultTLSPort is the port legacy protocol handshakes are attempted on.
	DefaultTLSPort = 443
	// TLSSoonExpiryWindow flags certificates that expire inside this window.
	TLSSoonExpiryWindow = 14 * 24 * time.Hour
)

const (
	// ResultTimestampLayout is used in result document file names.
	ResultTimestampLayout = "20060102_150405"
)
