package order

import (
	"errors"
	"fmt"
)

// Kind is the machine-inspectable classification every error leaving the
// order core carries. HTTP mapping happens at the boundary, not here.
type Kind string

const (
	KindValidation          Kind = "validation"
	KindNotFound            Kind = "not_found"
	KindInsufficientStock   Kind = "insufficient_stock"
	KindMultiSupplier       Kind = "multi_supplier"
	KindCouponNotFound      Kind = "coupon_not_found"
	KindCouponExpired       Kind = "coupon_expired"
	KindCouponUsageExceeded Kind = "coupon_usage_exceeded"
	KindCouponBelowMinimum  Kind = "coupon_below_minimum"
	KindUnauthorized        Kind = "unauthorized"
	KindInvalidTransition   Kind = "invalid_transition"
	KindPersistence         Kind = "persistence"
)

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

func E(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the error kind, or empty string for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
