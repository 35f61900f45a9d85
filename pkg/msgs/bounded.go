package msgs

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// ErrOverflow indicates a write beyond a declared capacity.
var ErrOverflow = errors.New("capacity overflow")

// OverflowError reports a rejected oversized write.
type OverflowError struct {
	Capacity int
	Len      int
}

// Error implements error.
func (e *OverflowError) Error() string {
	return fmt.Sprintf("%v: %d bytes exceed capacity %d", ErrOverflow, e.Len, e.Capacity)
}

// Is makes errors.Is(err, ErrOverflow) match.
func (e *OverflowError) Is(target error) bool {
	return target == ErrOverflow
}

// BoundedString is a fixed-capacity text payload. Len never exceeds Cap.
type BoundedString struct {
	capacity int
	data     string
}

// NewBoundedString creates a BoundedString with capacity in bytes.
func NewBoundedString(capacity int) *BoundedString {
	if capacity < 0 {
		capacity = 0
	}
	return &BoundedString{capacity: capacity}
}

// Set replaces the value. Oversized values are rejected and the previous
// value is kept.
func (s *BoundedString) Set(val string) error {
	if len(val) > s.capacity {
		return &OverflowError{Capacity: s.capacity, Len: len(val)}
	}
	s.data = val
	return nil
}

// SetTruncated replaces the value, cutting it at capacity on a rune
// boundary. It reports whether the value was truncated.
func (s *BoundedString) SetTruncated(val string) bool {
	if len(val) <= s.capacity {
		s.data = val
		return false
	}
	n := s.capacity
	for n > 0 && !utf8.RuneStart(val[n]) {
		n--
	}
	s.data = val[:n]
	return true
}

// Value gets the current value.
func (s *BoundedString) Value() string {
	return s.data
}

// Len gets the length of the value in bytes.
func (s *BoundedString) Len() int {
	return len(s.data)
}

// Cap gets the capacity in bytes.
func (s *BoundedString) Cap() int {
	return s.capacity
}

// Message creates the String message carrying the current value.
func (s *BoundedString) Message() *String {
	return NewString(s.data)
}
