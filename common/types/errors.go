package types

import "strings"

// MultiError collects errors from steps that keep going after a failure, for example
// serialization of a whole message or validation of a whole configuration.
type MultiError struct {
	Errors []error
}

func (e *MultiError) Error() string {
	var errs []string
	for _, err := range e.Errors {
		errs = append(errs, err.Error())
	}

	return strings.Join(errs, "; ")
}

// Unwrap allows errors.Is and errors.As to inspect the collected errors.
func (e *MultiError) Unwrap() []error {
	return e.Errors
}

// Append adds err if it is non-nil.
func (e *MultiError) Append(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// ErrOrNil returns nil if no errors were collected, otherwise the MultiError itself.
func (e *MultiError) ErrOrNil() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}
