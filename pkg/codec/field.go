package codec

import (
	"fmt"
	"math"
)

// ScalarField is a row-major 2-D grid of float32 values
type ScalarField struct {
	Height int       // Number of rows
	Width  int       // Number of columns
	Data   []float32 // Height*Width values, row 0 first
}

// FieldStats summarizes the values of a field. Min, Max and Mean only
// consider finite values and are zero when the field has none.
type FieldStats struct {
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Mean     float64 `json:"mean"`
	Finite   int     `json:"finite"`
	NaN      int     `json:"nan"`
	PosInf   int     `json:"pos_inf"`
	NegInf   int     `json:"neg_inf"`
	Elements int     `json:"elements"`
}

// NewScalarField creates a zero-filled field with the given dimensions
func NewScalarField(height, width int) (*ScalarField, error) {
	if err := checkDimensions(height, width); err != nil {
		return nil, err
	}
	return &ScalarField{
		Height: height,
		Width:  width,
		Data:   make([]float32, height*width),
	}, nil
}

// Validate checks the dimensions and that Data holds exactly Height*Width values
func (f *ScalarField) Validate() error {
	if err := checkDimensions(f.Height, f.Width); err != nil {
		return err
	}
	if want := uint64(f.Height) * uint64(f.Width); uint64(len(f.Data)) != want {
		return newError(KindInvalidShape, fmt.Sprintf("data has %d values, %dx%d requires %d", len(f.Data), f.Height, f.Width, want))
	}
	return nil
}

// At returns the value at row, col
func (f *ScalarField) At(row, col int) float32 {
	return f.Data[row*f.Width+col]
}

// Set stores v at row, col
func (f *ScalarField) Set(row, col int, v float32) {
	f.Data[row*f.Width+col] = v
}

// Row returns the values of a single row. The slice aliases Data.
func (f *ScalarField) Row(row int) []float32 {
	return f.Data[row*f.Width : (row+1)*f.Width]
}

// Len returns the number of elements
func (f *ScalarField) Len() int {
	return f.Height * f.Width
}

// EncodedSize returns the total size of the field when encoded
func (f *ScalarField) EncodedSize() int {
	// Header: Magic(4) + Width(4) + Height(4) = 12 bytes
	return HeaderSize + 4*f.Len()
}

// Equal reports whether both fields have the same dimensions and every
// element has the same bit pattern. NaN equals NaN when the payloads match.
func (f *ScalarField) Equal(other *ScalarField) bool {
	if f == nil || other == nil {
		return f == other
	}
	if f.Height != other.Height || f.Width != other.Width || len(f.Data) != len(other.Data) {
		return false
	}
	for i, v := range f.Data {
		if math.Float32bits(v) != math.Float32bits(other.Data[i]) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the field
func (f *ScalarField) Clone() *ScalarField {
	data := make([]float32, len(f.Data))
	copy(data, f.Data)
	return &ScalarField{Height: f.Height, Width: f.Width, Data: data}
}

// Stats computes summary statistics over the field
func (f *ScalarField) Stats() FieldStats {
	s := FieldStats{Elements: len(f.Data)}
	var sum float64
	for _, v := range f.Data {
		x := float64(v)
		switch {
		case math.IsNaN(x):
			s.NaN++
			continue
		case math.IsInf(x, 1):
			s.PosInf++
			continue
		case math.IsInf(x, -1):
			s.NegInf++
			continue
		}
		if s.Finite == 0 || x < s.Min {
			s.Min = x
		}
		if s.Finite == 0 || x > s.Max {
			s.Max = x
		}
		sum += x
		s.Finite++
	}
	if s.Finite > 0 {
		s.Mean = sum / float64(s.Finite)
	}
	return s
}

func checkDimensions(height, width int) error {
	if height < 1 || width < 1 {
		return newError(KindInvalidDimensions, fmt.Sprintf("%dx%d, both dimensions must be at least 1", height, width))
	}
	if uint64(height) > math.MaxUint32 || uint64(width) > math.MaxUint32 {
		return newError(KindInvalidDimensions, fmt.Sprintf("%dx%d exceeds the uint32 range", height, width))
	}
	return nil
}
