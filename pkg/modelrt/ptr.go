package modelrt

// Ptr returns a pointer to a copy of v. Builders of nullable fields take
// pointers, so `b.Nickname = modelrt.Ptr("ada")` sets one.
func Ptr[T any](v T) *T {
	return &v
}

// ClonePtr returns a pointer to a copy of *p, or nil when p is nil.
// Generated models use it so that a pointer handed to or read from a
// builder never aliases the immutable value.
func ClonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
