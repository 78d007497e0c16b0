package backend

// fieldState distinguishes "leave alone" from "clear" from "write a value"
type fieldState int

const (
	fieldUnset fieldState = iota
	fieldClear
	fieldSet
)

// Field is a tri-state update value: Unset, Clear, or Set(value).
// The zero value is Unset.
type Field[T any] struct {
	state fieldState
	value T
}

// Set returns a field carrying a value
func Set[T any](v T) Field[T] {
	return Field[T]{state: fieldSet, value: v}
}

// Clear returns a field that removes the remote value
func Clear[T any]() Field[T] {
	return Field[T]{state: fieldClear}
}

// Unset returns a field that leaves the remote value untouched
func Unset[T any]() Field[T] {
	return Field[T]{}
}

func (f Field[T]) IsUnset() bool { return f.state == fieldUnset }
func (f Field[T]) IsClear() bool { return f.state == fieldClear }
func (f Field[T]) IsSet() bool   { return f.state == fieldSet }

// Value returns the carried value and whether the field is Set
func (f Field[T]) Value() (T, bool) {
	return f.value, f.state == fieldSet
}

// String is used in debug logs
func (f Field[T]) String() string {
	switch f.state {
	case fieldClear:
		return "clear"
	case fieldSet:
		return "set"
	default:
		return "unset"
	}
}
