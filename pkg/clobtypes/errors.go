package clobtypes

import "fmt"

// ErrorKind classifies why a batch was rejected. Every kind is terminal:
// there is no partial commit and no local recovery (§7 of the spec this
// core implements).
type ErrorKind string

const (
	KindDecode    ErrorKind = "decode"
	KindInvalid   ErrorKind = "invalid"
	KindMath      ErrorKind = "math"
	KindSignature ErrorKind = "signature"
	KindState     ErrorKind = "state"
)

// Error is the execution core's single error type. Callers recover Kind via
// errors.As to decide how to log or report the failure; the message itself
// is a short static description, never a user-controlled string.
type Error struct {
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func newErr(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func DecodeErrorf(format string, args ...any) *Error    { return newErr(KindDecode, format, args...) }
func InvalidErrorf(format string, args ...any) *Error   { return newErr(KindInvalid, format, args...) }
func MathErrorf(format string, args ...any) *Error      { return newErr(KindMath, format, args...) }
func SignatureErrorf(format string, args ...any) *Error { return newErr(KindSignature, format, args...) }
func StateErrorf(format string, args ...any) *Error     { return newErr(KindState, format, args...) }
