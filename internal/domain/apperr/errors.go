package apperr

import (
	"errors"
	"fmt"
)

// Kindはエラーの種類。handlerでHTTPステータスに変換する。
type Kind string

const (
	KindValidation            Kind = "VALIDATION_ERROR"
	KindNotFound              Kind = "NOT_FOUND"
	KindInvalidTransition     Kind = "INVALID_TRANSITION"
	KindUnauthorized          Kind = "UNAUTHORIZED"
	KindConflict              Kind = "CONFLICT"
	KindExternalFailure       Kind = "EXTERNAL_FAILURE"
	KindMissingPayment        Kind = "MISSING_PAYMENT"
	KindMissingTrackingNumber Kind = "MISSING_TRACKING_NUMBER"
	KindInternal              Kind = "INTERNAL"
)

// Errorは種類と利用者向けの理由を持つ
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, message string) error {
	return &Error{Kind: kind, Message: message}
}

// Wrapは原因を残したまま種類を付ける（db errorなど）
func Wrap(kind Kind, message string, err error) error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Validation(message string) error { return New(KindValidation, message) }

func NotFound(message string) error { return New(KindNotFound, message) }

func Unauthorized(message string) error { return New(KindUnauthorized, message) }

func Conflict(message string) error { return New(KindConflict, message) }

func InvalidTransition(from, to string) error {
	return New(KindInvalidTransition, fmt.Sprintf("cannot change status from %s to %s", from, to))
}

func Internal(err error) error {
	return Wrap(KindInternal, "db error", err)
}

func As(err error) (*Error, bool) {
	var ae *Error
	ok := errors.As(err, &ae)
	return ae, ok
}

// KindOfは種類を返す（apperr以外はINTERNAL扱い）
func KindOf(err error) Kind {
	if ae, ok := As(err); ok {
		return ae.Kind
	}
	return KindInternal
}
