package codec

// ErrorKind classifies codec failures.
type ErrorKind int

const (
	KindInvalidDimensions ErrorKind = iota + 1
	KindInvalidShape
	KindBadMagic
	KindTruncatedBuffer
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidDimensions:
		return "invalid dimensions"
	case KindInvalidShape:
		return "invalid shape"
	case KindBadMagic:
		return "bad magic"
	case KindTruncatedBuffer:
		return "truncated buffer"
	default:
		return "unknown codec error"
	}
}

// Errors
var (
	ErrInvalidDimensions = &CodecError{Kind: KindInvalidDimensions}
	ErrInvalidShape      = &CodecError{Kind: KindInvalidShape}
	ErrBadMagic          = &CodecError{Kind: KindBadMagic}
	ErrTruncatedBuffer   = &CodecError{Kind: KindTruncatedBuffer}
)

// CodecError represents a scalar field codec error
type CodecError struct {
	Kind   ErrorKind
	Detail string
}

func (e *CodecError) Error() string {
	if e.Detail == "" {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Detail
}

// Is reports whether target is a CodecError of the same kind, so that
// detailed errors match the package sentinels.
func (e *CodecError) Is(target error) bool {
	t, ok := target.(*CodecError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func newError(kind ErrorKind, detail string) error {
	return &CodecError{Kind: kind, Detail: detail}
}
