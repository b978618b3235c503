package core

import (
	"errors"

	"github.com/zeebo/errs"
)

// Decode error classes.
var (
	// FormatMismatch marks a structural signature that does not match.
	FormatMismatch = errs.Class("format mismatch")
	// TruncatedInput marks input that ran out before a structure was complete.
	TruncatedInput = errs.Class("truncated input")
	// UnsupportedTagType marks a tag whose value cannot be decoded.
	UnsupportedTagType = errs.Class("unsupported tag type")
	// VersionNewerThanKnown marks a container written by a newer client.
	VersionNewerThanKnown = errs.Class("version newer than known")
	// IOError marks a failure of the underlying byte source.
	IOError = errs.Class("io error")
)

// Common errors.
var (
	ErrReadOnly = errors.New("sink is in read-only mode")
)

// IsNotInstance reports whether err means "this input is not of the format"
// rather than a failure worth reporting.
func IsNotInstance(err error) bool {
	return FormatMismatch.Has(err) || TruncatedInput.Has(err) || UnsupportedTagType.Has(err)
}
