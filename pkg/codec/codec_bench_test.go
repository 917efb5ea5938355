//go:build bench
// +build bench

package codec

import (
	"fmt"
	"testing"
)

var benchSizes = []struct {
	height int
	width  int
}{
	{16, 16},
	{256, 256},
	{1024, 1024},
}

func BenchmarkFieldCodec_Encode(b *testing.B) {
	codec := NewFieldCodec()

	for _, bm := range benchSizes {
		field := &ScalarField{Height: bm.height, Width: bm.width, Data: ramp(bm.height * bm.width)}
		b.Run(fmt.Sprintf("%dx%d", bm.height, bm.width), func(b *testing.B) {
			b.SetBytes(int64(field.EncodedSize()))
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := codec.Encode(field); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkFieldCodec_Decode(b *testing.B) {
	codec := NewFieldCodec()

	for _, bm := range benchSizes {
		field := &ScalarField{Height: bm.height, Width: bm.width, Data: ramp(bm.height * bm.width)}
		encoded, err := codec.Encode(field)
		if err != nil {
			b.Fatal(err)
		}
		b.Run(fmt.Sprintf("%dx%d", bm.height, bm.width), func(b *testing.B) {
			b.SetBytes(int64(len(encoded)))
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := codec.Decode(encoded); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
