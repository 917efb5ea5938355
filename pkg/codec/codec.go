package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

const (
	// Magic identifies an encoded scalar field
	Magic = "SF01"
	// HeaderSize is the size of the magic tag plus width and height
	HeaderSize = 12
)

// Header is the fixed-size prefix of an encoded field
type Header struct {
	Width  uint32
	Height uint32
}

// PayloadSize returns the number of pixel bytes that follow the header
func (h Header) PayloadSize() uint64 {
	return 4 * uint64(h.Width) * uint64(h.Height)
}

// FieldCodec handles serialization and deserialization of scalar fields
type FieldCodec struct{}

// NewFieldCodec creates a new field codec instance
func NewFieldCodec() *FieldCodec {
	return &FieldCodec{}
}

var defaultCodec = NewFieldCodec()

// Encode serializes a field with the default codec
func Encode(field *ScalarField) ([]byte, error) {
	return defaultCodec.Encode(field)
}

// Decode deserializes a field with the default codec
func Decode(data []byte) (*ScalarField, error) {
	return defaultCodec.Decode(data)
}

// Encode serializes a field into the binary container format
// Format: [Magic(4)][Width(4)][Height(4)][Pixels(Width*Height*4)]
func (c *FieldCodec) Encode(field *ScalarField) ([]byte, error) {
	if field == nil {
		return nil, newError(KindInvalidShape, "nil field")
	}
	if err := field.Validate(); err != nil {
		return nil, err
	}

	buf := make([]byte, field.EncodedSize())
	putHeader(buf, field)
	putPixels(buf[HeaderSize:], field.Data)

	return buf, nil
}

// Decode deserializes a binary container into a ScalarField
func (c *FieldCodec) Decode(data []byte) (*ScalarField, error) {
	h, err := c.ReadHeader(data)
	if err != nil {
		return nil, err
	}

	payload := data[HeaderSize:]
	if uint64(len(payload)) != h.PayloadSize() {
		return nil, newError(KindTruncatedBuffer, fmt.Sprintf("%dx%d field needs %d pixel bytes, buffer has %d", h.Height, h.Width, h.PayloadSize(), len(payload)))
	}

	field := &ScalarField{
		Height: int(h.Height),
		Width:  int(h.Width),
		Data:   make([]float32, int(h.Width)*int(h.Height)),
	}
	readPixels(field.Data, payload)

	return field, nil
}

// ReadHeader parses and validates the 12-byte header at the start of data
func (c *FieldCodec) ReadHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, newError(KindTruncatedBuffer, fmt.Sprintf("%d bytes is too short for a %d byte header", len(data), HeaderSize))
	}
	if string(data[0:4]) != Magic {
		return Header{}, newError(KindBadMagic, fmt.Sprintf("found %q, want %q", data[0:4], Magic))
	}

	h := Header{
		Width:  binary.LittleEndian.Uint32(data[4:8]),
		Height: binary.LittleEndian.Uint32(data[8:12]),
	}
	if h.Width == 0 || h.Height == 0 {
		return Header{}, newError(KindInvalidDimensions, fmt.Sprintf("header declares %dx%d", h.Height, h.Width))
	}
	return h, nil
}

// EncodeTo writes the encoded field to w and returns the number of bytes written
func (c *FieldCodec) EncodeTo(w io.Writer, field *ScalarField) (int64, error) {
	data, err := c.Encode(field)
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}

// DecodeFrom reads exactly one encoded field from r. It returns io.EOF when r
// is exhausted before the first byte, and ErrTruncatedBuffer when r ends
// inside a field.
func (c *FieldCodec) DecodeFrom(r io.Reader) (*ScalarField, error) {
	header := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, newError(KindTruncatedBuffer, "stream ended inside the header")
		}
		return nil, err
	}

	h, err := c.ReadHeader(header)
	if err != nil {
		return nil, err
	}

	size := h.PayloadSize()
	if size > uint64(math.MaxInt) {
		return nil, newError(KindInvalidDimensions, fmt.Sprintf("%dx%d field is too large for this platform", h.Height, h.Width))
	}

	// Grow the buffer as data arrives rather than trusting the header up front.
	payload, err := io.ReadAll(io.LimitReader(r, int64(size)))
	if err != nil {
		return nil, err
	}
	if uint64(len(payload)) != size {
		return nil, newError(KindTruncatedBuffer, fmt.Sprintf("stream ended after %d of %d pixel bytes", len(payload), size))
	}

	field := &ScalarField{
		Height: int(h.Height),
		Width:  int(h.Width),
		Data:   make([]float32, len(payload)/4),
	}
	readPixels(field.Data, payload)

	return field, nil
}

func putHeader(buf []byte, field *ScalarField) {
	copy(buf[0:4], Magic)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(field.Width))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(field.Height))
}

func putPixels(buf []byte, values []float32) {
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
}

func readPixels(dst []float32, payload []byte) {
	for i := range dst {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(payload[i*4:]))
	}
}
