package frame

import "fmt"

// LoadError reports a failure to read the input table.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %s", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// MissingColumnError reports a required column absent at the point of first
// use. Op names the operation that needed it, when known.
type MissingColumnError struct {
	Column string
	Op     string
}

func (e *MissingColumnError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: required column %s not present", e.Op, e.Column)
	}
	return fmt.Sprintf("required column %s not present", e.Column)
}
