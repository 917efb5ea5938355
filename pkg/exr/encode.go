package exr

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/ssargent/scalarfield/pkg/codec"
)

// Encode writes field as a single-part scanline OpenEXR image with one
// uncompressed FLOAT channel.
func Encode(field *codec.ScalarField, opts ...func(o *Options)) ([]byte, error) {
	if field == nil {
		return nil, fmt.Errorf("encode exr: %w", codec.ErrInvalidShape)
	}
	if err := field.Validate(); err != nil {
		return nil, fmt.Errorf("encode exr: %w", err)
	}
	if field.Width > math.MaxInt32 || field.Height > math.MaxInt32 {
		return nil, fmt.Errorf("encode exr: %w: %dx%d exceeds the OpenEXR coordinate range", codec.ErrInvalidDimensions, field.Height, field.Width)
	}
	opt := applyOptions(opts)
	if len(opt.Channel) > 31 {
		return nil, fmt.Errorf("encode exr: %w: channel name %q is longer than 31 bytes", ErrUnsupported, opt.Channel)
	}

	var b bytes.Buffer
	writeU32(&b, exrMagic)
	writeU32(&b, exrVersion)
	writeHeader(&b, opt.Channel, int32(field.Width), int32(field.Height))

	lineBytes := field.Width * 4
	blockBytes := 8 + lineBytes
	tableStart := b.Len()
	firstBlock := tableStart + 8*field.Height
	b.Grow(8*field.Height + field.Height*blockBytes)

	for y := 0; y < field.Height; y++ {
		writeU64(&b, uint64(firstBlock+y*blockBytes))
	}

	line := make([]byte, lineBytes)
	for y := 0; y < field.Height; y++ {
		writeI32(&b, int32(y))
		writeI32(&b, int32(lineBytes))
		for x, v := range field.Row(y) {
			binary.LittleEndian.PutUint32(line[x*4:], math.Float32bits(v))
		}
		b.Write(line)
	}

	return b.Bytes(), nil
}

func writeHeader(b *bytes.Buffer, channel string, width, height int32) {
	var chlist bytes.Buffer
	chlist.WriteString(channel)
	chlist.WriteByte(0)
	writeI32(&chlist, exrPixelFloat)
	chlist.Write([]byte{0, 0, 0, 0}) // pLinear + reserved
	writeI32(&chlist, 1)
	writeI32(&chlist, 1)
	chlist.WriteByte(0)
	writeAttribute(b, "channels", "chlist", chlist.Bytes())

	writeAttribute(b, "compression", "compression", []byte{exrCompressionNone})

	window := box2i(0, 0, width-1, height-1)
	writeAttribute(b, "dataWindow", "box2i", window)
	writeAttribute(b, "displayWindow", "box2i", window)

	// INCREASING_Y
	writeAttribute(b, "lineOrder", "lineOrder", []byte{0})

	writeAttribute(b, "pixelAspectRatio", "float", float32Bytes(1))
	writeAttribute(b, "screenWindowCenter", "v2f", append(float32Bytes(0), float32Bytes(0)...))
	writeAttribute(b, "screenWindowWidth", "float", float32Bytes(1))

	b.WriteByte(0)
}

func writeAttribute(b *bytes.Buffer, name, typ string, payload []byte) {
	b.WriteString(name)
	b.WriteByte(0)
	b.WriteString(typ)
	b.WriteByte(0)
	writeI32(b, int32(len(payload)))
	b.Write(payload)
}

func box2i(xMin, yMin, xMax, yMax int32) []byte {
	out := make([]byte, 16)
	binary.LittleEndian.PutUint32(out[0:], uint32(xMin))
	binary.LittleEndian.PutUint32(out[4:], uint32(yMin))
	binary.LittleEndian.PutUint32(out[8:], uint32(xMax))
	binary.LittleEndian.PutUint32(out[12:], uint32(yMax))
	return out
}

func float32Bytes(v float32) []byte {
	out := make([]byte, 4)
	binary.LittleEndian.PutUint32(out, math.Float32bits(v))
	return out
}
