// Package errors attaches business codes to errors so handlers can render
// them uniformly through ginx.WriteResponse.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Coder describes a registered business code.
type Coder interface {
	Code() int
	HTTPStatus() int
	String() string
}

type withCode struct {
	code  int
	msg   string
	cause error
}

// WithCode returns an error carrying code and a formatted message.
func WithCode(code int, format string, args ...any) error {
	return &withCode{code: code, msg: fmt.Sprintf(format, args...)}
}

// WrapC wraps err with a business code, keeping err reachable via errors.Is/As.
func WrapC(err error, code int, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &withCode{code: code, msg: fmt.Sprintf(format, args...), cause: err}
}

func (w *withCode) Error() string {
	if w.cause != nil && w.msg != "" {
		return w.msg + ": " + w.cause.Error()
	}
	if w.cause != nil {
		return w.cause.Error()
	}
	return w.msg
}

func (w *withCode) Unwrap() error { return w.cause }

var (
	registry = map[int]Coder{}
	unknown  = coder{C: 1, Status: 500, Msg: "internal server error"}
)

type coder struct {
	C      int
	Status int
	Msg    string
}

func (c coder) Code() int       { return c.C }
func (c coder) HTTPStatus() int { return c.Status }
func (c coder) String() string  { return c.Msg }

// Register adds a code. Re-registering a code panics.
func Register(code, status int, msg string) {
	if _, ok := registry[code]; ok {
		panic(fmt.Sprintf("code %d already registered", code))
	}
	registry[code] = coder{C: code, Status: status, Msg: msg}
}

// ParseCoder resolves the Coder of err. Errors without a code map to the
// unknown coder.
func ParseCoder(err error) Coder {
	var w *withCode
	if stderrors.As(err, &w) {
		if c, ok := registry[w.code]; ok {
			return c
		}
	}
	return unknown
}

// Message is the text shown to clients for err.
func Message(err error) string {
	var w *withCode
	if stderrors.As(err, &w) && w.msg != "" {
		return w.msg
	}
	return ParseCoder(err).String()
}
