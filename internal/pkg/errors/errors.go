package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
)

type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

const (
	ErrCodeInvalidInput           = "INVALID_INPUT"
	ErrCodeInvalidColor           = "INVALID_COLOR"
	ErrCodeCapacityExceeded       = "CAPACITY_EXCEEDED"
	ErrCodeUnsupportedCombination = "UNSUPPORTED_COMBINATION"
	ErrCodeLogoUnreadable         = "LOGO_UNREADABLE"
	ErrCodeUnauthorized           = "UNAUTHORIZED"
	ErrCodeNotFound               = "NOT_FOUND"
	ErrCodeTooLarge               = "PAYLOAD_TOO_LARGE"
	ErrCodeRateLimitExceeded      = "RATE_LIMIT_EXCEEDED"
	ErrCodeStoreIO                = "STORE_IO_FAILURE"
	ErrCodeInternal               = "INTERNAL_ERROR"
)

// Kind classifies failures crossing package boundaries.
type Kind int

const (
	Internal Kind = iota
	InvalidInput
	InvalidColor
	CapacityExceeded
	UnsupportedCombination
	LogoUnreadable
	NotFound
	StoreIOFailure
	Unauthorized
	RateLimited
	TooLarge
)

func (k Kind) String() string {
	switch k {
	case InvalidInput:
		return "invalid input"
	case InvalidColor:
		return "invalid color"
	case CapacityExceeded:
		return "capacity exceeded"
	case UnsupportedCombination:
		return "unsupported combination"
	case LogoUnreadable:
		return "logo unreadable"
	case NotFound:
		return "not found"
	case StoreIOFailure:
		return "store io failure"
	case Unauthorized:
		return "unauthorized"
	case RateLimited:
		return "rate limited"
	case TooLarge:
		return "too large"
	default:
		return "internal error"
	}
}

// Code returns the wire code used in ErrorResponse.
func (k Kind) Code() string {
	switch k {
	case InvalidInput:
		return ErrCodeInvalidInput
	case InvalidColor:
		return ErrCodeInvalidColor
	case CapacityExceeded:
		return ErrCodeCapacityExceeded
	case UnsupportedCombination:
		return ErrCodeUnsupportedCombination
	case LogoUnreadable:
		return ErrCodeLogoUnreadable
	case NotFound:
		return ErrCodeNotFound
	case StoreIOFailure:
		return ErrCodeStoreIO
	case Unauthorized:
		return ErrCodeUnauthorized
	case RateLimited:
		return ErrCodeRateLimitExceeded
	case TooLarge:
		return ErrCodeTooLarge
	default:
		return ErrCodeInternal
	}
}

// Error is a typed failure carrying its Kind, the operation that failed and the cause.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	s := e.Op
	if s != "" {
		s += ": "
	}
	if e.Msg != "" {
		s += e.Msg
	} else {
		s += e.Kind.String()
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match on kind alone, e.g. errors.Is(err, &Error{Kind: NotFound}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Msg == "" && t.Err == nil
}

func E(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func Newf(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

// KindOf reports the Kind of the first *Error in err's chain, or Internal.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message returns the user facing message of err.
func Message(err error) string {
	var e *Error
	if stderrors.As(err, &e) && e.Msg != "" {
		return e.Msg
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

func HTTPStatus(kind Kind) int {
	switch kind {
	case InvalidInput, InvalidColor, UnsupportedCombination:
		return http.StatusBadRequest
	case CapacityExceeded, LogoUnreadable:
		return http.StatusUnprocessableEntity
	case NotFound:
		return http.StatusNotFound
	case Unauthorized:
		return http.StatusUnauthorized
	case RateLimited:
		return http.StatusTooManyRequests
	case TooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

func WriteError(w http.ResponseWriter, status int, code, message string, details interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    code,
		Details: details,
	})
}

// WriteKindError renders err using the status and code of its Kind.
// Internal errors never leak their cause.
func WriteKindError(w http.ResponseWriter, err error) {
	kind := KindOf(err)
	status := HTTPStatus(kind)
	msg := Message(err)
	if status >= http.StatusInternalServerError {
		msg = http.StatusText(status)
	}
	WriteError(w, status, kind.Code(), msg, nil)
}
