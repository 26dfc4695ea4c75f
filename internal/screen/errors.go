package screen

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of a reconstruction failure.
type ErrorType int

const (
	// ErrTypeMalformedMarker indicates a start-of-field token without an
	// attribute payload.
	ErrTypeMalformedMarker ErrorType = iota
	// ErrTypeGeometry indicates a snapshot whose dimensions disagree with
	// the reconstructor, or invalid dimensions.
	ErrTypeGeometry
	// ErrTypeLabelNeighbor indicates a label match pointing at a field
	// index outside the field list.
	ErrTypeLabelNeighbor
	// ErrTypePattern indicates an unusable label pattern.
	ErrTypePattern
)

// String returns a human-readable name for the error type.
func (et ErrorType) String() string {
	switch et {
	case ErrTypeMalformedMarker:
		return "Malformed Marker"
	case ErrTypeGeometry:
		return "Geometry Error"
	case ErrTypeLabelNeighbor:
		return "Label Neighbor Out Of Range"
	case ErrTypePattern:
		return "Label Pattern Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// ScreenError is returned by the reconstructor. Row and Col locate the
// offending cell when one applies, and are -1 otherwise.
type ScreenError struct {
	Type    ErrorType
	Message string
	Row     int
	Col     int
	Err     error
}

// Error implements the error interface.
func (e *ScreenError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.Row >= 0 && e.Col >= 0 {
		msg = fmt.Sprintf("%s at (%d,%d)", msg, e.Row, e.Col)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s (caused by: %v)", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection.
func (e *ScreenError) Unwrap() error {
	return e.Err
}

func newGeometryError(format string, args ...any) *ScreenError {
	return &ScreenError{Type: ErrTypeGeometry, Message: fmt.Sprintf(format, args...), Row: -1, Col: -1}
}

func newPatternError(message string, err error) *ScreenError {
	return &ScreenError{Type: ErrTypePattern, Message: message, Row: -1, Col: -1, Err: err}
}

func isType(err error, t ErrorType) bool {
	var se *ScreenError
	if errors.As(err, &se) {
		return se.Type == t
	}
	return false
}

// IsMalformedMarker checks if an error is a malformed marker error.
func IsMalformedMarker(err error) bool { return isType(err, ErrTypeMalformedMarker) }

// IsGeometry checks if an error is a snapshot geometry error.
func IsGeometry(err error) bool { return isType(err, ErrTypeGeometry) }

// IsLabelNeighbor checks if an error is an out-of-range label neighbor.
func IsLabelNeighbor(err error) bool { return isType(err, ErrTypeLabelNeighbor) }

// IsPatternError checks if an error is a label pattern error.
func IsPatternError(err error) bool { return isType(err, ErrTypePattern) }
