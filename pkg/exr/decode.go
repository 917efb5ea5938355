package exr

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/ssargent/scalarfield/pkg/codec"
)

// Errors
var (
	ErrNotEXR          = errors.New("not an OpenEXR file")
	ErrUnsupported     = errors.New("unsupported OpenEXR feature")
	ErrMissingChannel  = errors.New("OpenEXR channel not found")
	ErrMalformedHeader = errors.New("malformed OpenEXR header")
)

// Decode reads one channel of a scanline OpenEXR image into a scalar field.
// The whole image is validated before the field is returned.
func Decode(data []byte, opts ...func(o *Options)) (*codec.ScalarField, error) {
	opt := applyOptions(opts)

	r := bytes.NewReader(data)
	magic, err := readU32(r)
	if err != nil {
		return nil, ErrNotEXR
	}
	if magic != exrMagic {
		return nil, ErrNotEXR
	}
	version, err := readU32(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedHeader, err)
	}
	if version&0xFF != exrVersion {
		return nil, fmt.Errorf("%w: file format version %d", ErrUnsupported, version&0xFF)
	}
	if version&flagTiled != 0 {
		return nil, fmt.Errorf("%w: tiled images", ErrUnsupported)
	}
	if version&flagMultipart != 0 {
		return nil, fmt.Errorf("%w: multipart files", ErrUnsupported)
	}
	if version&flagDeep != 0 {
		return nil, fmt.Errorf("%w: deep data", ErrUnsupported)
	}

	hdr, err := readHeader(r)
	if err != nil {
		return nil, err
	}

	target := -1
	for i, ch := range hdr.channels {
		if ch.xSampling != 1 || ch.ySampling != 1 {
			return nil, fmt.Errorf("%w: subsampled channel %q", ErrUnsupported, ch.name)
		}
		if ch.name == opt.Channel {
			target = i
		}
	}
	if target < 0 {
		return nil, fmt.Errorf("%w: %q", ErrMissingChannel, opt.Channel)
	}

	width := int64(hdr.dataWindow[2]) - int64(hdr.dataWindow[0]) + 1
	height := int64(hdr.dataWindow[3]) - int64(hdr.dataWindow[1]) + 1
	if width <= 0 || height <= 0 || width > math.MaxInt32 || height > math.MaxInt32 {
		return nil, fmt.Errorf("decode exr: %w: data window %v", codec.ErrInvalidDimensions, hdr.dataWindow)
	}
	// width and height fit in 31 bits, so the product cannot overflow.
	pixels := width * height
	if pixels > opt.MaxPixels {
		return nil, fmt.Errorf("decode exr: %w: %dx%d image exceeds %d pixels", codec.ErrInvalidDimensions, height, width, opt.MaxPixels)
	}
	pixelBytes := int64(expectedBlockBytes(1, 1, hdr.channels))
	capacity := int64(len(data))
	if hdr.compression != exrCompressionNone {
		capacity *= maxInflateRatio
	}
	if pixels > capacity/pixelBytes {
		return nil, fmt.Errorf("decode exr: %w: %dx%d image in %d bytes", codec.ErrTruncatedBuffer, height, width, len(data))
	}

	blockLines := 1
	if hdr.compression == exrCompressionZip {
		blockLines = 16
	}
	blockCount := (int(height) + blockLines - 1) / blockLines
	if int64(blockCount)*8 > int64(r.Len()) {
		return nil, fmt.Errorf("decode exr: %w: offset table", codec.ErrTruncatedBuffer)
	}
	offsets := make([]uint64, blockCount)
	for i := range offsets {
		if offsets[i], err = readU64(r); err != nil {
			return nil, fmt.Errorf("decode exr: %w: offset table", codec.ErrTruncatedBuffer)
		}
	}

	blocks, err := readBlocks(data, offsets, hdr, int(width), int(height), blockLines)
	if err != nil {
		return nil, err
	}

	field, err := codec.NewScalarField(int(height), int(width))
	if err != nil {
		return nil, fmt.Errorf("decode exr: %w", err)
	}
	for _, b := range blocks {
		unpacked, err := decompress(hdr.compression, b.raw, b.expected)
		if err != nil {
			return nil, err
		}
		if err := decodeBlock(field, hdr.channels, target, b.startY, b.lines, unpacked); err != nil {
			return nil, err
		}
	}

	return field, nil
}

// scanlineBlock is a located but still compressed chunk of scanlines.
type scanlineBlock struct {
	startY   int
	lines    int
	expected int
	raw      []byte
}

// readBlocks walks the offset table and checks that block i holds scanlines
// starting at i*blockLines, so every row is present exactly once, and that
// no block claims more pixels than its payload can carry.
func readBlocks(data []byte, offsets []uint64, hdr *header, width, height, blockLines int) ([]scanlineBlock, error) {
	baseY := int64(hdr.dataWindow[1])
	blocks := make([]scanlineBlock, len(offsets))
	var claimed int64
	for i, offset := range offsets {
		if len(data) < 8 || offset == 0 || offset > uint64(len(data)-8) {
			return nil, fmt.Errorf("decode exr: %w: block %d offset %d", codec.ErrTruncatedBuffer, i, offset)
		}
		pos := int(offset)
		y := int32(binary.LittleEndian.Uint32(data[pos:]))
		dataSize := int32(binary.LittleEndian.Uint32(data[pos+4:]))
		pos += 8
		if dataSize < 0 || int(dataSize) > len(data)-pos {
			return nil, fmt.Errorf("decode exr: %w: block %d declares %d bytes", codec.ErrTruncatedBuffer, i, dataSize)
		}
		claimed += 8 + int64(dataSize)
		if claimed > int64(len(data)) {
			return nil, fmt.Errorf("decode exr: %w: blocks overlap", ErrMalformedHeader)
		}

		startY := int64(y) - baseY
		if startY != int64(i*blockLines) {
			return nil, fmt.Errorf("%w: block %d holds scanline %d, want %d", ErrMalformedHeader, i, y, baseY+int64(i*blockLines))
		}
		lines := blockLines
		if int(startY)+lines > height {
			lines = height - int(startY)
		}
		expected := expectedBlockBytes(width, lines, hdr.channels)
		if hdr.compression != exrCompressionNone && int(dataSize) != expected &&
			int64(expected) > int64(dataSize)*maxInflateRatio {
			return nil, fmt.Errorf("decode exr: %w: block %d cannot inflate %d bytes to %d", codec.ErrTruncatedBuffer, i, dataSize, expected)
		}
		blocks[i] = scanlineBlock{
			startY:   int(startY),
			lines:    lines,
			expected: expected,
			raw:      data[pos : pos+int(dataSize)],
		}
	}
	return blocks, nil
}

type header struct {
	channels    []exrChannel
	dataWindow  [4]int32
	compression byte
}

func readHeader(r *bytes.Reader) (*header, error) {
	hdr := &header{compression: exrCompressionNone}
	var hasDataWindow bool

	for {
		name, err := readNullString(r)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedHeader, err)
		}
		if name == "" {
			break
		}
		typ, err := readNullString(r)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedHeader, err)
		}
		size, err := readI32(r)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedHeader, err)
		}
		if size < 0 || int64(size) > int64(r.Len()) {
			return nil, fmt.Errorf("%w: attribute %q size %d", ErrMalformedHeader, name, size)
		}
		payload := make([]byte, size)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedHeader, err)
		}

		switch name {
		case "channels":
			if typ != "chlist" {
				return nil, fmt.Errorf("%w: channels attribute has type %q", ErrMalformedHeader, typ)
			}
			ch, err := parseChannels(payload)
			if err != nil {
				return nil, err
			}
			hdr.channels = ch
		case "dataWindow":
			if typ != "box2i" || len(payload) != 16 {
				return nil, fmt.Errorf("%w: invalid dataWindow", ErrMalformedHeader)
			}
			for i := range hdr.dataWindow {
				hdr.dataWindow[i] = int32(binary.LittleEndian.Uint32(payload[i*4:]))
			}
			hasDataWindow = true
		case "compression":
			if typ != "compression" || len(payload) < 1 {
				return nil, fmt.Errorf("%w: invalid compression attribute", ErrMalformedHeader)
			}
			hdr.compression = payload[0]
		case "tiles":
			return nil, fmt.Errorf("%w: tiled images", ErrUnsupported)
		}
	}

	if len(hdr.channels) == 0 {
		return nil, fmt.Errorf("%w: missing channels", ErrMalformedHeader)
	}
	if !hasDataWindow {
		return nil, fmt.Errorf("%w: missing dataWindow", ErrMalformedHeader)
	}
	switch hdr.compression {
	case exrCompressionNone, exrCompressionZips, exrCompressionZip:
	default:
		return nil, fmt.Errorf("%w: compression %d", ErrUnsupported, hdr.compression)
	}
	return hdr, nil
}

func parseChannels(data []byte) ([]exrChannel, error) {
	r := bytes.NewReader(data)
	var channels []exrChannel
	for {
		name, err := readNullString(r)
		if err != nil {
			return nil, fmt.Errorf("%w: channel list: %v", ErrMalformedHeader, err)
		}
		if name == "" {
			break
		}
		pixelType, err := readI32(r)
		if err != nil {
			return nil, fmt.Errorf("%w: channel list: %v", ErrMalformedHeader, err)
		}
		if bytesPerPixel(pixelType) == 0 {
			return nil, fmt.Errorf("%w: pixel type %d", ErrUnsupported, pixelType)
		}
		// pLinear + 3 reserved bytes
		if _, err := r.Seek(4, io.SeekCurrent); err != nil {
			return nil, fmt.Errorf("%w: channel list: %v", ErrMalformedHeader, err)
		}
		xSampling, err := readI32(r)
		if err != nil {
			return nil, fmt.Errorf("%w: channel list: %v", ErrMalformedHeader, err)
		}
		ySampling, err := readI32(r)
		if err != nil {
			return nil, fmt.Errorf("%w: channel list: %v", ErrMalformedHeader, err)
		}
		channels = append(channels, exrChannel{
			name:      name,
			pixelType: pixelType,
			xSampling: xSampling,
			ySampling: ySampling,
		})
	}
	return channels, nil
}

func expectedBlockBytes(width, lines int, channels []exrChannel) int {
	total := 0
	for _, ch := range channels {
		total += width * lines * bytesPerPixel(ch.pixelType)
	}
	return total
}

func decompress(compression byte, data []byte, expected int) ([]byte, error) {
	switch compression {
	case exrCompressionNone:
		if len(data) != expected {
			return nil, fmt.Errorf("decode exr: %w: block has %d bytes, want %d", codec.ErrTruncatedBuffer, len(data), expected)
		}
		return data, nil
	case exrCompressionZips, exrCompressionZip:
		// The format stores a block uncompressed when compression would not shrink it.
		if len(data) == expected {
			return data, nil
		}
		zr, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decode exr: zip block: %w", err)
		}
		defer zr.Close()
		uncompressed, err := io.ReadAll(io.LimitReader(zr, int64(expected)+1))
		if err != nil {
			return nil, fmt.Errorf("decode exr: zip block: %w", err)
		}
		if len(uncompressed) != expected {
			return nil, fmt.Errorf("decode exr: %w: zip block inflates to %d bytes, want %d", codec.ErrTruncatedBuffer, len(uncompressed), expected)
		}
		undoPredictor(uncompressed)
		return unshuffleBytes(uncompressed), nil
	default:
		return nil, fmt.Errorf("%w: compression %d", ErrUnsupported, compression)
	}
}

func undoPredictor(data []byte) {
	for i := 1; i < len(data); i++ {
		data[i] = byte(int(data[i]) + int(data[i-1]) - 128)
	}
}

// unshuffleBytes reverses the split of even and odd bytes into two halves.
func unshuffleBytes(data []byte) []byte {
	half := (len(data) + 1) / 2
	out := make([]byte, len(data))
	for i := range out {
		if i%2 == 0 {
			out[i] = data[i/2]
		} else {
			out[i] = data[half+i/2]
		}
	}
	return out
}

// decodeBlock copies the target channel out of lines interleaved scanlines.
// Within a scanline the channels are stored one after another.
func decodeBlock(dst *codec.ScalarField, channels []exrChannel, target, startY, lines int, data []byte) error {
	offset := 0
	for row := 0; row < lines; row++ {
		y := startY + row
		for i, ch := range channels {
			lineBytes := dst.Width * bytesPerPixel(ch.pixelType)
			if offset+lineBytes > len(data) {
				return fmt.Errorf("decode exr: %w: scanline %d", codec.ErrTruncatedBuffer, y)
			}
			if i == target {
				applyLine(dst.Row(y), ch.pixelType, data[offset:offset+lineBytes])
			}
			offset += lineBytes
		}
	}
	return nil
}

func applyLine(dst []float32, pixelType int32, line []byte) {
	for x := range dst {
		switch pixelType {
		case exrPixelHalf:
			dst[x] = halfToFloat32(binary.LittleEndian.Uint16(line[x*2:]))
		case exrPixelFloat:
			dst[x] = math.Float32frombits(binary.LittleEndian.Uint32(line[x*4:]))
		case exrPixelUint:
			dst[x] = float32(binary.LittleEndian.Uint32(line[x*4:]))
		}
	}
}

func readNullString(r *bytes.Reader) (string, error) {
	var buf []byte
	for {
		b, err := r.ReadByte()
		if err != nil {
			return "", err
		}
		if b == 0 {
			break
		}
		buf = append(buf, b)
		if len(buf) > 255 {
			return "", errors.New("name longer than 255 bytes")
		}
	}
	return string(buf), nil
}

func readU32(r *bytes.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func readU64(r *bytes.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func readI32(r *bytes.Reader) (int32, error) {
	v, err := readU32(r)
	return int32(v), err
}
