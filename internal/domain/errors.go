package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures surfaced to callers. None are fatal.
type ErrorKind string

const (
	KindUnauthenticated            ErrorKind = "Unauthenticated"
	KindStoreReadFailed            ErrorKind = "StoreReadFailed"
	KindStoreWriteFailed           ErrorKind = "StoreWriteFailed"
	KindStoreNotFound              ErrorKind = "StoreNotFound"
	KindInstallationRecordFailed   ErrorKind = "InstallationRecordFailed"
	KindRemoteAPIFailed            ErrorKind = "RemoteApiFailed"
	KindTrackingIDGenerationFailed ErrorKind = "TrackingIdGenerationFailed"
	KindInvalidInput               ErrorKind = "InvalidInput"
	KindThemeLayoutInvalid         ErrorKind = "ThemeLayoutInvalid"
	KindInstallationInProgress     ErrorKind = "InstallationInProgress"
)

// Error carries the failure kind, the operation and an optional cause
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

// NewError builds a classified error
func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first classified error in the chain, or "" if none
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// IsKind reports whether err is classified as kind
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
