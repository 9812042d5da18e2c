package catalog

import "fmt"

// CollisionError indicates the requested effect name is already
// published or reserved by an in-flight upload.
type CollisionError struct {
	Name string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("an effect named %q already exists", e.Name)
}

var _ error = (*CollisionError)(nil)

// NotFoundError indicates a playback request for a name the canonical
// store does not hold.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no effect named %q", e.Name)
}

var _ error = (*NotFoundError)(nil)
