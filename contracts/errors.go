package contracts

import (
	"errors"
	"fmt"
)

var (
	ErrFormat     = errors.New("format error")
	ErrPolicy     = errors.New("policy error")
	ErrProfile    = errors.New("profile error")
	ErrPixelShape = errors.New("pixel buffer shape mismatch")
	ErrPath       = errors.New("path error")

	// ErrUnsupportedOffsetSize also matches ErrFormat.
	ErrUnsupportedOffsetSize = fmt.Errorf("%w: unsupported BigTIFF offset size", ErrFormat)
)

// Error is a classified failure. Kind is one of the Err* sentinels and is
// what errors.Is matches against.
type Error struct {
	Kind error
	Path string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Kind.Error()
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Path != "" {
		msg = e.Path + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// IoError is a failed read, seek or write at a known position.
type IoError struct {
	Path   string
	Offset int64
	Length int64
	Err    error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("%s: i/o error reading %d bytes at offset %d: %v", e.Path, e.Length, e.Offset, e.Err)
}

func (e *IoError) Unwrap() error { return e.Err }

func FormatErrorf(path, format string, args ...any) error {
	return &Error{Kind: ErrFormat, Path: path, Msg: fmt.Sprintf(format, args...)}
}

func PolicyErrorf(format string, args ...any) error {
	return &Error{Kind: ErrPolicy, Msg: fmt.Sprintf(format, args...)}
}

func ProfileError(path, msg string, err error) error {
	return &Error{Kind: ErrProfile, Path: path, Msg: msg, Err: err}
}

func PathErrorf(path, format string, args ...any) error {
	return &Error{Kind: ErrPath, Path: path, Msg: fmt.Sprintf(format, args...)}
}

func pixelShapeMsg(n, width, height int) string {
	return fmt.Sprintf("%d pixels for %dx%d image", n, width, height)
}
