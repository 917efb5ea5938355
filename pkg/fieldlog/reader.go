package fieldlog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ssargent/scalarfield/pkg/codec"
)

// Reader provides sequential access to the fields in a log file
type Reader struct {
	file   *os.File
	reader *bufio.Reader
	codec  *codec.FieldCodec
	offset int64
	config ReaderConfig
}

// NewReader opens a log for reading from config.StartOffset
func NewReader(config ReaderConfig) (*Reader, error) {
	file, err := os.Open(config.Path)
	if err != nil {
		return nil, err
	}

	if config.StartOffset > 0 {
		if _, err := file.Seek(config.StartOffset, io.SeekStart); err != nil {
			file.Close()
			return nil, err
		}
	}

	return &Reader{
		file:   file,
		reader: bufio.NewReader(file),
		codec:  codec.NewFieldCodec(),
		offset: config.StartOffset,
		config: config,
	}, nil
}

// Next returns the next field. It returns io.EOF at a clean end of the log
// and ErrCorruption when the remaining bytes are not a complete container.
func (r *Reader) Next() (*codec.ScalarField, error) {
	field, err := r.decode(r.reader, r.offset)
	if err != nil {
		return nil, err
	}
	r.offset += int64(field.EncodedSize())
	return field, nil
}

// ReadAt decodes the field starting at offset without moving the read cursor
func (r *Reader) ReadAt(offset int64) (*codec.ScalarField, error) {
	section := io.NewSectionReader(r.file, offset, 1<<62)
	field, err := r.decode(bufio.NewReader(section), offset)
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: no field at offset %d", ErrCorruption, offset)
	}
	return field, err
}

func (r *Reader) decode(src io.Reader, offset int64) (*codec.ScalarField, error) {
	field, err := r.codec.DecodeFrom(src)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		var cerr *codec.CodecError
		if errors.As(err, &cerr) {
			return nil, fmt.Errorf("%w at offset %d: %w", ErrCorruption, offset, err)
		}
		return nil, err
	}
	return field, nil
}

// Offset returns the offset of the next field Next will return
func (r *Reader) Offset() int64 {
	return r.offset
}

// Close closes the log reader
func (r *Reader) Close() error {
	return r.file.Close()
}
