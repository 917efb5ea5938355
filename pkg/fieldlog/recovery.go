package fieldlog

import (
	"errors"
	"io"
	"os"
)

// Scan validates every frame in the log at path. ValidSize is the offset of
// the first damaged byte, or the file size when the log is intact. A missing
// file scans as an empty log.
func Scan(path string) (ScanResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ScanResult{}, nil
		}
		return ScanResult{}, err
	}

	result := ScanResult{FileSize: info.Size()}

	reader, err := NewReader(ReaderConfig{Path: path})
	if err != nil {
		return result, err
	}
	defer reader.Close()

	for {
		_, err := reader.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if errors.Is(err, ErrCorruption) {
				result.Damaged = true
				break
			}
			return result, err
		}
		result.Frames++
	}
	result.ValidSize = reader.Offset()

	return result, nil
}

// Truncate cuts any damaged tail from the log so that only whole frames
// remain.
func Truncate(path string) (ScanResult, error) {
	result, err := Scan(path)
	if err != nil || !result.Damaged {
		return result, err
	}

	if err := os.Truncate(path, result.ValidSize); err != nil {
		return result, err
	}
	result.Truncated = true
	return result, nil
}
