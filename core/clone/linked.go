package clone

// linkedError is the copy of an error value. It holds no state of its own
// and delegates to the error it was copied from.
type linkedError struct {
	proto error
}

func (e *linkedError) Error() string { return e.proto.Error() }
func (e *linkedError) Unwrap() error { return e.proto }

// Prototype returns the error a copied error delegates to, or nil if err
// is not a copy.
func Prototype(err error) error {
	if l, ok := err.(*linkedError); ok {
		return l.proto
	}
	return nil
}
