package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"testing"
)

func mustField(t *testing.T, height, width int, data []float32) *ScalarField {
	t.Helper()
	return &ScalarField{Height: height, Width: width, Data: data}
}

func TestFieldCodec_EncodeDecodeRoundTrip(t *testing.T) {
	codec := NewFieldCodec()

	quietNaN := math.Float32frombits(0x7FC00000)
	payloadNaN := math.Float32frombits(0x7FA5A5A5)
	negNaN := math.Float32frombits(0xFFC00001)
	negZero := math.Float32frombits(0x80000000)

	testCases := []struct {
		name   string
		height int
		width  int
		data   []float32
	}{
		{
			name:   "single element",
			height: 1,
			width:  1,
			data:   []float32{42},
		},
		{
			name:   "column",
			height: 2,
			width:  1,
			data:   []float32{1.0, -2.5},
		},
		{
			name:   "row",
			height: 1,
			width:  4,
			data:   []float32{0.25, 0.5, 0.75, 1},
		},
		{
			name:   "rectangular",
			height: 3,
			width:  5,
			data:   ramp(15),
		},
		{
			name:   "special values",
			height: 2,
			width:  4,
			data: []float32{
				quietNaN, payloadNaN, negNaN, negZero,
				float32(math.Inf(1)), float32(math.Inf(-1)), math.SmallestNonzeroFloat32, math.MaxFloat32,
			},
		},
		{
			name:   "large field",
			height: 256,
			width:  256,
			data:   ramp(256 * 256),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			field := mustField(t, tc.height, tc.width, tc.data)

			encoded, err := codec.Encode(field)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}

			// Size law
			if want := 12 + 4*tc.height*tc.width; len(encoded) != want {
				t.Errorf("encoded length: got %d, want %d", len(encoded), want)
			}

			decoded, err := codec.Decode(encoded)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}

			if decoded.Height != tc.height || decoded.Width != tc.width {
				t.Errorf("dims mismatch: got %dx%d, want %dx%d", decoded.Height, decoded.Width, tc.height, tc.width)
			}

			// Compare bit patterns, not float equality
			for i := range tc.data {
				got := math.Float32bits(decoded.Data[i])
				want := math.Float32bits(tc.data[i])
				if got != want {
					t.Fatalf("element %d: got bits %#08x, want %#08x", i, got, want)
				}
			}

			if !decoded.Equal(field) {
				t.Error("decoded field is not bit-equal to the original")
			}
		})
	}
}

func TestFieldCodec_ConcreteExample(t *testing.T) {
	field := mustField(t, 2, 1, []float32{1.0, -2.5})

	encoded, err := Encode(field)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	expected := []byte{
		'S', 'F', '0', '1',
		0x01, 0x00, 0x00, 0x00, // width
		0x02, 0x00, 0x00, 0x00, // height
		0x00, 0x00, 0x80, 0x3F, // 1.0
		0x00, 0x00, 0x20, 0xC0, // -2.5
	}
	if !bytes.Equal(encoded, expected) {
		t.Fatalf("encoding mismatch:\n got  % x\n want % x", encoded, expected)
	}

	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !decoded.Equal(field) {
		t.Errorf("decoded %+v, want %+v", decoded, field)
	}
}

func TestFieldCodec_EncodeErrors(t *testing.T) {
	codec := NewFieldCodec()

	testCases := []struct {
		name    string
		field   *ScalarField
		wantErr error
	}{
		{
			name:    "nil field",
			field:   nil,
			wantErr: ErrInvalidShape,
		},
		{
			name:    "too few values",
			field:   &ScalarField{Height: 2, Width: 2, Data: []float32{1, 2, 3}},
			wantErr: ErrInvalidShape,
		},
		{
			name:    "too many values",
			field:   &ScalarField{Height: 1, Width: 2, Data: []float32{1, 2, 3}},
			wantErr: ErrInvalidShape,
		},
		{
			name:    "zero height",
			field:   &ScalarField{Height: 0, Width: 2, Data: nil},
			wantErr: ErrInvalidDimensions,
		},
		{
			name:    "zero width",
			field:   &ScalarField{Height: 3, Width: 0, Data: nil},
			wantErr: ErrInvalidDimensions,
		},
		{
			name:    "negative dimension",
			field:   &ScalarField{Height: -1, Width: 2, Data: []float32{1, 2}},
			wantErr: ErrInvalidDimensions,
		},
		{
			name:    "dimensions checked before shape",
			field:   &ScalarField{Height: 0, Width: 0, Data: []float32{1}},
			wantErr: ErrInvalidDimensions,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			encoded, err := codec.Encode(tc.field)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("got error %v, want %v", err, tc.wantErr)
			}
			if encoded != nil {
				t.Errorf("expected no output on failure, got %d bytes", len(encoded))
			}
		})
	}
}

func TestFieldCodec_DecodeErrors(t *testing.T) {
	codec := NewFieldCodec()

	valid, err := codec.Encode(mustField(t, 2, 3, ramp(6)))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	badMagic := append([]byte(nil), valid...)
	badMagic[0] = 'X'

	zeroWidth := append([]byte(nil), valid...)
	binary.LittleEndian.PutUint32(zeroWidth[4:], 0)

	zeroHeight := append([]byte(nil), valid...)
	binary.LittleEndian.PutUint32(zeroHeight[8:], 0)

	hugeHeader := append([]byte(nil), valid[:HeaderSize]...)
	binary.LittleEndian.PutUint32(hugeHeader[4:], math.MaxUint32)
	binary.LittleEndian.PutUint32(hugeHeader[8:], math.MaxUint32)

	testCases := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{name: "empty", data: nil, wantErr: ErrTruncatedBuffer},
		{name: "short header", data: valid[:11], wantErr: ErrTruncatedBuffer},
		{name: "bad magic", data: badMagic, wantErr: ErrBadMagic},
		{name: "zero width", data: zeroWidth, wantErr: ErrInvalidDimensions},
		{name: "zero height", data: zeroHeight, wantErr: ErrInvalidDimensions},
		{name: "last byte removed", data: valid[:len(valid)-1], wantErr: ErrTruncatedBuffer},
		{name: "header only", data: valid[:HeaderSize], wantErr: ErrTruncatedBuffer},
		{name: "trailing bytes", data: append(append([]byte(nil), valid...), 0, 0, 0, 0), wantErr: ErrTruncatedBuffer},
		{name: "header claims huge payload", data: hugeHeader, wantErr: ErrTruncatedBuffer},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			field, err := codec.Decode(tc.data)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("got error %v, want %v", err, tc.wantErr)
			}
			if field != nil {
				t.Errorf("expected no field on failure, got %+v", field)
			}
		})
	}
}

func TestFieldCodec_DecodeDoesNotAliasInput(t *testing.T) {
	encoded, err := Encode(mustField(t, 1, 2, []float32{3, 4}))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	for i := range encoded {
		encoded[i] = 0xFF
	}
	if decoded.Data[0] != 3 || decoded.Data[1] != 4 {
		t.Errorf("decoded field changed with its input buffer: %v", decoded.Data)
	}
}

func TestFieldCodec_StreamRoundTrip(t *testing.T) {
	codec := NewFieldCodec()
	fields := []*ScalarField{
		mustField(t, 1, 1, []float32{1}),
		mustField(t, 2, 3, ramp(6)),
		mustField(t, 4, 2, ramp(8)),
	}

	var buf bytes.Buffer
	var total int64
	for _, f := range fields {
		n, err := codec.EncodeTo(&buf, f)
		if err != nil {
			t.Fatalf("EncodeTo failed: %v", err)
		}
		if n != int64(f.EncodedSize()) {
			t.Errorf("EncodeTo wrote %d bytes, want %d", n, f.EncodedSize())
		}
		total += n
	}
	if int64(buf.Len()) != total {
		t.Fatalf("buffer holds %d bytes, wrote %d", buf.Len(), total)
	}

	for i, want := range fields {
		got, err := codec.DecodeFrom(&buf)
		if err != nil {
			t.Fatalf("DecodeFrom %d failed: %v", i, err)
		}
		if !got.Equal(want) {
			t.Errorf("field %d mismatch: got %+v, want %+v", i, got, want)
		}
	}

	if _, err := codec.DecodeFrom(&buf); err != io.EOF {
		t.Errorf("expected io.EOF at end of stream, got %v", err)
	}
}

func TestFieldCodec_DecodeFromTruncated(t *testing.T) {
	codec := NewFieldCodec()
	encoded, err := codec.Encode(mustField(t, 2, 2, ramp(4)))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	for _, cut := range []int{1, 6, HeaderSize, len(encoded) - 1} {
		_, err := codec.DecodeFrom(bytes.NewReader(encoded[:cut]))
		if !errors.Is(err, ErrTruncatedBuffer) {
			t.Errorf("cut at %d: got %v, want ErrTruncatedBuffer", cut, err)
		}
	}
}

func TestFieldCodec_ReadHeader(t *testing.T) {
	encoded, err := Encode(mustField(t, 3, 7, ramp(21)))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	h, err := NewFieldCodec().ReadHeader(encoded)
	if err != nil {
		t.Fatalf("ReadHeader failed: %v", err)
	}
	if h.Width != 7 || h.Height != 3 {
		t.Errorf("header: got %dx%d, want 3x7", h.Height, h.Width)
	}
	if h.PayloadSize() != 84 {
		t.Errorf("payload size: got %d, want 84", h.PayloadSize())
	}
}

func TestCodecError(t *testing.T) {
	err := newError(KindBadMagic, "found \"abcd\"")

	if !errors.Is(err, ErrBadMagic) {
		t.Error("detailed error should match its sentinel")
	}
	if errors.Is(err, ErrTruncatedBuffer) {
		t.Error("detailed error should not match another kind")
	}
	if got := err.Error(); got != "bad magic: found \"abcd\"" {
		t.Errorf("unexpected message %q", got)
	}
	if got := ErrInvalidShape.Error(); got != "invalid shape" {
		t.Errorf("unexpected sentinel message %q", got)
	}

	var ce *CodecError
	if !errors.As(err, &ce) || ce.Kind != KindBadMagic {
		t.Errorf("errors.As did not recover the kind: %v", ce)
	}
}

func ramp(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(i)*0.5 - 3
	}
	return out
}
