package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrRateLimited   = errors.New("rate limited")
	ErrVenueUnknown  = errors.New("venue has no exchange address")
	ErrSigningFailed = errors.New("signing failed")
	ErrWSDisconnect  = errors.New("websocket disconnected")
	ErrLockHeld      = errors.New("lock already held")
)

// TickAlignmentError reports a price or size that is not a whole multiple of
// the allowed increment. Floor and Ceil are the nearest valid values below
// and above the rejected one; either is empty when no valid value exists on
// that side, e.g. a price just under 1 has no valid value above it.
type TickAlignmentError struct {
	Field string
	Value string
	Step  string
	Floor string
	Ceil  string
}

func (e *TickAlignmentError) Error() string {
	msg := fmt.Sprintf("%s %s is not a multiple of %s", e.Field, e.Value, e.Step)
	switch {
	case e.Floor != "" && e.Ceil != "":
		return msg + fmt.Sprintf(" (nearest valid: %s below, %s above)", e.Floor, e.Ceil)
	case e.Floor != "":
		return msg + fmt.Sprintf(" (nearest valid: %s)", e.Floor)
	case e.Ceil != "":
		return msg + fmt.Sprintf(" (nearest valid: %s)", e.Ceil)
	default:
		return msg
	}
}

// RangeError reports a value outside its allowed range, e.g. a price outside
// (0,1) or a non-positive size.
type RangeError struct {
	Field  string
	Value  string
	Reason string
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s %s out of range: %s", e.Field, e.Value, e.Reason)
}

// AddressMismatchError reports a signing key whose address does not match
// the order's declared signer. It is fatal and non-retryable: retrying with
// the same key can never succeed.
type AddressMismatchError struct {
	Declared string
	Actual   string
}

func (e *AddressMismatchError) Error() string {
	return fmt.Sprintf("order declares signer %s but signing key is %s", e.Declared, e.Actual)
}

// MalformedFieldError reports a structural defect on a built or signed
// order, caught by the record-level validation pass.
type MalformedFieldError struct {
	Field  string
	Value  string
	Reason string
}

func (e *MalformedFieldError) Error() string {
	return fmt.Sprintf("malformed %s %q: %s", e.Field, e.Value, e.Reason)
}
