package utils

// ValueOr returns *v, or fallback when v is nil.
func ValueOr[T any](v *T, fallback T) T {
	if v == nil {
		return fallback
	}
	return *v
}

func Ptr[T any](v T) *T {
	return &v
}

// NonZero returns a pointer to v, or nil when v is the zero value. Flags and
// form fields left blank map to "unchanged" in a partial update.
func NonZero[T comparable](v T) *T {
	var zero T
	if v == zero {
		return nil
	}
	return &v
}
