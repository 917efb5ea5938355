// Package exr converts scalar fields to and from single-channel OpenEXR files.
//
// Only the subset needed for single-channel float images is implemented: the
// writer emits uncompressed scanline files with one FLOAT channel, and the
// reader accepts scanline files with NONE, ZIPS or ZIP compression and HALF,
// FLOAT or UINT channels, extracting one channel by name. IsEXR sniffs the
// magic number so callers can route a buffer before decoding it.
//
// Decode never allocates a field larger than Options.MaxPixels (DefaultMaxPixels
// unless WithMaxPixels says otherwise), and only after the offset table and
// every block header have been checked against the input. An uncompressed
// file must carry every pixel; a ZIP file can claim at most 1032 times its
// block payload, the deflate limit. The decoded field therefore costs at most
// 4*MaxPixels bytes whatever the input size.
package exr

import (
	"bytes"
	"encoding/binary"
)

const exrMagic = 20000630

const exrVersion = 2

const (
	flagTiled     = 0x00000200
	flagDeep      = 0x00000800
	flagMultipart = 0x00001000
)

const (
	exrCompressionNone = 0
	exrCompressionZips = 2
	exrCompressionZip  = 3
)

const (
	exrPixelUint  = 0
	exrPixelHalf  = 1
	exrPixelFloat = 2
)

// DefaultChannel is the luminance channel used for grayscale images.
const DefaultChannel = "Y"

// DefaultMaxPixels caps decoded images at 64Mi pixels (256 MiB of float32).
const DefaultMaxPixels = 1 << 26

// deflate cannot expand data by more than this factor
const maxInflateRatio = 1032

// Options controls which channel is written or read and how large a decoded
// image may be.
type Options struct {
	Channel   string
	MaxPixels int64
}

// WithChannel selects the channel name, DefaultChannel when empty.
func WithChannel(name string) func(o *Options) {
	return func(o *Options) {
		o.Channel = name
	}
}

// WithMaxPixels limits the pixel count Decode accepts, DefaultMaxPixels when n <= 0.
func WithMaxPixels(n int64) func(o *Options) {
	return func(o *Options) {
		o.MaxPixels = n
	}
}

func applyOptions(opts []func(o *Options)) Options {
	opt := Options{Channel: DefaultChannel, MaxPixels: DefaultMaxPixels}
	for _, apply := range opts {
		apply(&opt)
	}
	if opt.Channel == "" {
		opt.Channel = DefaultChannel
	}
	if opt.MaxPixels <= 0 {
		opt.MaxPixels = DefaultMaxPixels
	}
	return opt
}

// IsEXR reports whether data starts with the OpenEXR magic number.
func IsEXR(data []byte) bool {
	return len(data) >= 4 && binary.LittleEndian.Uint32(data) == exrMagic
}

func bytesPerPixel(pixelType int32) int {
	switch pixelType {
	case exrPixelHalf:
		return 2
	case exrPixelFloat, exrPixelUint:
		return 4
	default:
		return 0
	}
}

type exrChannel struct {
	name      string
	pixelType int32
	xSampling int32
	ySampling int32
}

func writeU32(b *bytes.Buffer, v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	b.Write(buf[:])
}

func writeU64(b *bytes.Buffer, v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	b.Write(buf[:])
}

func writeI32(b *bytes.Buffer, v int32) {
	writeU32(b, uint32(v))
}
