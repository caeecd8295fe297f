package utils

// Value dereferences v, returning the zero value for nil. Optional claim
// fields are pointers so that absent and empty stay distinguishable on the wire.
func Value[T any](v *T) T {
	if v == nil {
		return *new(T)
	}
	return *v
}

func Ptr[T any](v T) *T {
	return &v
}
