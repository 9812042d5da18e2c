package handler

// ValidationError reports malformed user input: an empty command or a
// command missing its required argument.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

var _ error = (*ValidationError)(nil)
