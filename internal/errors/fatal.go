package errors

import (
	"errors"
	"fmt"
)

// fatalError is printed to the user as is, then the program exits non-zero.
type fatalError struct {
	msg string
	err error
}

func (e *fatalError) Error() string { return e.msg }

func (e *fatalError) Unwrap() error { return e.err }

// IsFatal reports whether err was created by Fatal or Fatalf.
func IsFatal(err error) bool {
	var fatal *fatalError
	return errors.As(err, &fatal)
}

// Fatal returns an error that is marked fatal.
func Fatal(s string) error {
	return Wrap(&fatalError{msg: s}, "Fatal")
}

// Fatalf returns an error that is marked fatal. The last error found in data
// stays reachable through errors.Is and errors.As.
func Fatalf(s string, data ...any) error {
	var underlying error
	for i := len(data) - 1; i >= 0; i-- {
		if err, ok := data[i].(error); ok {
			underlying = err
			break
		}
	}

	return Wrap(&fatalError{msg: fmt.Sprintf(s, data...), err: underlying}, "Fatal")
}
