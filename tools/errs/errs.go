package errs

import (
	"errors"
	"strconv"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

// Error codes grouped per subsystem. 1xxx auth, 2xxx protocol, 3xxx delivery.
const (
	CodeMissingCredential = 1001
	CodeInvalidSession    = 1002

	CodeUnknownEvent    = 2001
	CodeBadPayload      = 2002
	CodeUnknownRoomKind = 2003

	CodeDelivery = 3001
)

var (
	ErrMissingCredential = NewCodeError(CodeMissingCredential, "missing credential")
	ErrInvalidSession    = NewCodeError(CodeInvalidSession, "invalid session")
	ErrUnknownEvent      = NewCodeError(CodeUnknownEvent, "unknown event")
	ErrBadPayload        = NewCodeError(CodeBadPayload, "bad payload")
	ErrUnknownRoomKind   = NewCodeError(CodeUnknownRoomKind, "unknown room kind")
	ErrDelivery          = NewCodeError(CodeDelivery, "delivery failed")
)

type CodeError struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`
}

func NewCodeError(code int, msg string) *CodeError {
	return &CodeError{Code: code, Msg: msg}
}

func (e *CodeError) Error() string {
	v := make([]string, 0, 3)
	v = append(v, strconv.Itoa(e.Code), e.Msg)
	if e.Detail != "" {
		v = append(v, e.Detail)
	}
	return strings.Join(v, " ")
}

// WithDetail returns a copy carrying extra context; the code stays
// comparable through Is.
func (e *CodeError) WithDetail(detail string) *CodeError {
	d := detail
	if e.Detail != "" {
		d = e.Detail + ", " + detail
	}
	return &CodeError{Code: e.Code, Msg: e.Msg, Detail: d}
}

func (e *CodeError) Is(err error) bool {
	var ce *CodeError
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Code == e.Code
}

// Code extracts the numeric code from err, or 0 when err carries none.
func Code(err error) int {
	var ce *CodeError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return 0
}

func New(msg string) error { return pkgerrors.New(msg) }

func Wrap(err error, msg string) error { return pkgerrors.Wrap(err, msg) }

func Wrapf(err error, format string, args ...any) error {
	return pkgerrors.Wrapf(err, format, args...)
}
