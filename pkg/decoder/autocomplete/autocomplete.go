// Package autocomplete decodes the search history eMule keeps for its
// search box in AC_SearchStrings.dat: UTF-16LE text with a byte order mark,
// one entry per CRLF-terminated line.
package autocomplete

import (
	"bytes"
	"log/slog"
	"strings"
	"unicode"

	xunicode "golang.org/x/text/encoding/unicode"

	"github.com/aretw0/strata/pkg/bytesource"
	"github.com/aretw0/strata/pkg/core"
	"github.com/aretw0/strata/pkg/decoder"
)

// Format is the name used in logs and the scan index.
const Format = "AC_SearchStrings.dat"

var bom = []byte{0xFF, 0xFE}

// List is a decoded search history, oldest entry first.
type List struct {
	Entries []string
}

// DecodeUTF16 transcodes UTF-16LE text that starts with a byte order mark.
func DecodeUTF16(data []byte) (string, error) {
	if !bytes.HasPrefix(data, bom) {
		return "", core.FormatMismatch.New("missing UTF-16LE byte order mark")
	}
	if len(data)%2 != 0 {
		return "", core.TruncatedInput.New("odd length %d", len(data))
	}
	dec := xunicode.UTF16(xunicode.LittleEndian, xunicode.ExpectBOM).NewDecoder()
	out, err := dec.Bytes(data)
	if err != nil {
		return "", core.FormatMismatch.Wrap(err)
	}
	return string(out), nil
}

// Decode decodes an AC_SearchStrings.dat file. Blank lines are dropped;
// a line holding control characters rejects the file.
func Decode(r *bytesource.Reader, log *slog.Logger) (*List, bool, error) {
	var out List
	ok, err := decoder.Run(r, decoder.Logger(log), Format, true, func() error {
		data, err := r.ReadAll()
		if err != nil {
			return err
		}
		text, err := DecodeUTF16(data)
		if err != nil {
			return err
		}
		for _, line := range strings.Split(text, "\r\n") {
			if line == "" {
				continue
			}
			if strings.IndexFunc(line, unicode.IsControl) >= 0 {
				return core.FormatMismatch.New("control character in entry %q", line)
			}
			out.Entries = append(out.Entries, line)
		}
		return nil
	})
	if !ok {
		return nil, false, err
	}
	return &out, true, nil
}

// IsInstance reports whether r holds a search history file.
func IsInstance(r *bytesource.Reader, log *slog.Logger) bool {
	_, ok, _ := Decode(r, log)
	return ok
}
