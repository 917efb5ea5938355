// Package codec provides serialization and deserialization of scalar fields.
//
// A scalar field is a 2-D grid of 32-bit floating-point values with explicit
// dimensions, stored row-major. The codec package implements a minimal binary
// container for such grids and is the foundation the EXR adapter, the field
// repository and the field log are built on.
//
// # Container Format
//
// Fields are serialized in a binary format with the following structure:
//
//	[Magic(4)][Width(4)][Height(4)][Pixels(Width*Height*4)]
//
// Fields:
//   - Magic: the ASCII tag "SF01"
//   - Width: 32-bit unsigned number of columns (little-endian)
//   - Height: 32-bit unsigned number of rows (little-endian)
//   - Pixels: IEEE-754 float32 values, little-endian, row 0 first, left to right
//
// The total container size is: 12 bytes (header) + 4*Width*Height.
//
// There is no compression, checksum or metadata section. Float bit patterns are
// copied verbatim, so NaN payloads and infinities survive a round trip.
//
// # Usage
//
//	field, err := codec.NewScalarField(2, 1)
//	if err != nil {
//	    return err
//	}
//	field.Set(0, 0, 1.0)
//	field.Set(1, 0, -2.5)
//
//	encoded, err := codec.Encode(field)
//	if err != nil {
//	    return err
//	}
//
//	decoded, err := codec.Decode(encoded)
//	if err != nil {
//	    return err
//	}
//
// # Error Handling
//
// Every failure is a precondition violation on the input and is reported
// before any output is built:
//   - ErrInvalidDimensions: a dimension is zero, negative or exceeds uint32
//   - ErrInvalidShape: len(Data) does not equal Height*Width
//   - ErrBadMagic: the buffer does not start with "SF01"
//   - ErrTruncatedBuffer: the buffer is shorter or longer than the header declares
//
// Returned errors carry detail text and match their sentinel with errors.Is.
//
// # Thread Safety
//
// FieldCodec holds no state and is safe for concurrent use. The codec never
// retains a reference to the field or buffer it was given.
package codec
