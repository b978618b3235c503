// Package decoder holds the acceptance rules shared by the container
// decoders in its subpackages.
package decoder

import (
	"log/slog"

	"github.com/aretw0/strata/pkg/bytesource"
	"github.com/aretw0/strata/pkg/core"
)

// Run decodes from offset 0 with fn. When exact is set the input must be
// consumed up to its end. Structural errors are logged at debug and reported
// as false; errors from the byte source are returned. Anything else also
// rejects the input but is logged as a warning.
func Run(r *bytesource.Reader, log *slog.Logger, format string, exact bool, fn func() error) (bool, error) {
	if err := r.Seek(0); err != nil {
		return false, nil
	}
	err := fn()
	if err == nil && exact && !r.EOF() {
		err = core.FormatMismatch.New("%d trailing bytes at offset %d", r.Remaining(), r.Tell())
	}
	switch {
	case err == nil:
		return true, nil
	case core.IOError.Has(err):
		return false, err
	case core.IsNotInstance(err):
		log.Debug("not an instance", "format", format, "error", err)
	default:
		log.Warn("unclassified decoder failure", "format", format, "error", err)
	}
	return false, nil
}

// Fits rejects counts that cannot be backed by the remaining input, which
// keeps corrupted counts from driving huge allocations.
func Fits(r *bytesource.Reader, count uint64, minItem int64) error {
	if minItem > 0 && count > uint64(r.Remaining()/minItem) {
		return core.TruncatedInput.New("%d items of at least %d bytes at offset %d, %d remaining",
			count, minItem, r.Tell(), r.Remaining())
	}
	return nil
}

// Logger returns l, or a discarding logger when l is nil.
func Logger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.New(slog.DiscardHandler)
	}
	return l
}
