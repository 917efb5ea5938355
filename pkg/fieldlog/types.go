// Package fieldlog stores a sequence of scalar fields as an append-only file
// of back-to-back SF01 containers. A crash can leave a partial container at
// the tail; Scan finds it and Truncate removes it.
package fieldlog

import (
	"errors"
	"time"
)

// ErrCorruption is returned when the log holds bytes that are not a complete
// SF01 container. The codec error describing the damage is wrapped as well.
var ErrCorruption = errors.New("field log corruption detected")

// WriterConfig holds configuration for the log writer
type WriterConfig struct {
	Path          string
	FsyncInterval time.Duration // 0 syncs after every append
	BufferSize    int
}

// ReaderConfig holds configuration for the log reader
type ReaderConfig struct {
	Path        string
	StartOffset int64
}

// ScanResult describes the outcome of validating a log file
type ScanResult struct {
	Frames    int64 `json:"frames"`
	ValidSize int64 `json:"valid_size"`
	FileSize  int64 `json:"file_size"`
	Damaged   bool  `json:"damaged"`
	Truncated bool  `json:"truncated"`
}

const defaultBufferSize = 64 * 1024
