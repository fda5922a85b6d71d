// Package plerror defines the error conditions raised at the boundary
// between the host engine and the embedded runtime. Every error carries a
// SQLSTATE code that the host reports to its client.
package plerror

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Code is a five-character SQLSTATE.
type Code string

const (
	CodeDatatypeMismatch        Code = "42804"
	CodeNumericValueOutOfRange  Code = "22003"
	CodeInvalidTextRepresent    Code = "22P02"
	CodeUntranslatableCharacter Code = "22P05"
	CodeUndefinedColumn         Code = "42703"
	CodeFeatureNotSupported     Code = "0A000"
	CodeSyntaxError             Code = "42601"
	CodeExternalRoutineExcept   Code = "38000"
	CodeDataException           Code = "22000"
	CodeUndefinedFunction       Code = "42883"
	CodeInternalError           Code = "XX000"
)

// Sentinels for errors.Is. Each constructor below marks its result with
// one of these.
var (
	ErrTypeMismatch    = errors.New("type mismatch")
	ErrFieldMismatch   = errors.New("field mismatch")
	ErrUnsupportedType = errors.New("unsupported type")
	ErrCompile         = errors.New("compile error")
	ErrRuntime         = errors.New("runtime exception")
)

// withCode attaches a SQLSTATE to its cause.
type withCode struct {
	cause error
	code  Code
}

func (w *withCode) Error() string                 { return w.cause.Error() }
func (w *withCode) Cause() error                  { return w.cause }
func (w *withCode) Unwrap() error                 { return w.cause }
func (w *withCode) Format(s fmt.State, verb rune) { errors.FormatError(w, s, verb) }

// WithCode annotates err with a SQLSTATE. The innermost code wins, so a
// more specific code attached lower in the chain is never overridden by a
// generic one added while wrapping.
func WithCode(err error, code Code) error {
	if err == nil {
		return nil
	}
	return &withCode{cause: err, code: code}
}

// GetCode returns the innermost SQLSTATE in err's chain, or XX000 if there
// is none.
func GetCode(err error) Code {
	code := CodeInternalError
	for e := err; e != nil; e = errors.UnwrapOnce(e) {
		if w, ok := e.(*withCode); ok {
			code = w.code
		}
	}
	return code
}

// TypeMismatchf reports an embedded value whose dynamic type does not fit
// the target host type.
func TypeMismatchf(format string, args ...interface{}) error {
	err := errors.NewWithDepthf(1, format, args...)
	return errors.Mark(WithCode(err, CodeDatatypeMismatch), ErrTypeMismatch)
}

// OutOfRangef is a TypeMismatch for a numeric value outside the target
// type's range.
func OutOfRangef(format string, args ...interface{}) error {
	err := errors.NewWithDepthf(1, format, args...)
	return errors.Mark(WithCode(err, CodeNumericValueOutOfRange), ErrTypeMismatch)
}

// WrapTypeMismatch marks err, typically from a host input function, as a
// TypeMismatch.
func WrapTypeMismatch(err error, format string, args ...interface{}) error {
	err = errors.WrapWithDepthf(1, err, format, args...)
	return errors.Mark(WithCode(err, CodeDatatypeMismatch), ErrTypeMismatch)
}

// FieldMismatch reports the columns missing from an embedded mapping.
func FieldMismatch(missing []string) error {
	err := errors.NewWithDepthf(1, "mapping is missing column(s): %s", strings.Join(missing, ", "))
	err = errors.WithHint(err, "every column of the row type needs a key, even if its value is nil")
	return errors.Mark(WithCode(err, CodeUndefinedColumn), ErrFieldMismatch)
}

// UnsupportedTypef reports a pseudo-type that cannot cross the boundary.
func UnsupportedTypef(format string, args ...interface{}) error {
	err := errors.NewWithDepthf(1, format, args...)
	return errors.Mark(WithCode(err, CodeFeatureNotSupported), ErrUnsupportedType)
}

// Compile wraps an error from compiling procedure source.
func Compile(err error, format string, args ...interface{}) error {
	err = errors.WrapWithDepthf(1, err, format, args...)
	return errors.Mark(WithCode(err, CodeSyntaxError), ErrCompile)
}

// Runtime reports an exception that escaped a procedure. text is the
// runtime's own diagnostic, "ClassName: message".
func Runtime(text string) error {
	err := errors.NewWithDepthf(1, "%s", text)
	return errors.Mark(WithCode(err, CodeExternalRoutineExcept), ErrRuntime)
}

// WrapRuntime marks a non-exception failure of running code, such as an
// interrupt, as a runtime error.
func WrapRuntime(err error, format string, args ...interface{}) error {
	err = errors.WrapWithDepthf(1, err, format, args...)
	return errors.Mark(WithCode(err, CodeExternalRoutineExcept), ErrRuntime)
}

// InvalidTextf reports text a host input function cannot parse.
func InvalidTextf(format string, args ...interface{}) error {
	return WithCode(errors.NewWithDepthf(1, format, args...), CodeInvalidTextRepresent)
}

// Untranslatablef reports a character with no equivalent in the target
// encoding.
func Untranslatablef(format string, args ...interface{}) error {
	return WithCode(errors.NewWithDepthf(1, format, args...), CodeUntranslatableCharacter)
}

// DataExceptionf reports an invalid value returned by a procedure, such as
// an unknown trigger result.
func DataExceptionf(format string, args ...interface{}) error {
	return WithCode(errors.NewWithDepthf(1, format, args...), CodeDataException)
}

// NotSupportedf reports a call the handler cannot serve.
func NotSupportedf(format string, args ...interface{}) error {
	return WithCode(errors.NewWithDepthf(1, format, args...), CodeFeatureNotSupported)
}

// UndefinedFunctionf reports a procedure that is not in the catalog.
func UndefinedFunctionf(format string, args ...interface{}) error {
	return WithCode(errors.NewWithDepthf(1, format, args...), CodeUndefinedFunction)
}
