// Package ini decodes the eMule profile settings file preferences.ini.
package ini

import (
	"bytes"
	"log/slog"
	"strings"

	goini "gopkg.in/ini.v1"

	"github.com/aretw0/strata/pkg/bytesource"
	"github.com/aretw0/strata/pkg/core"
	"github.com/aretw0/strata/pkg/decoder"
	"github.com/aretw0/strata/pkg/decoder/autocomplete"
)

// Format is the name used in logs and the scan index.
const Format = "preferences.ini"

const section = "eMule"

// Preferences holds the profile-level settings of one eMule install.
type Preferences struct {
	Nick        string
	AppVersion  string
	IncomingDir string

	// TempDirs lists the temporary download folders; eMule joins several
	// with '|'.
	TempDirs []string
}

// Metadata flattens the settings.
func (p *Preferences) Metadata() core.Metadata {
	md := core.Metadata{}
	md.SetIfPresent("username", core.String(p.Nick))
	md.SetIfPresent("app_version", core.String(p.AppVersion))
	md.SetIfPresent("incoming_dir", core.String(p.IncomingDir))
	if len(p.TempDirs) > 0 {
		items := make([]core.Value, len(p.TempDirs))
		for i, d := range p.TempDirs {
			items[i] = core.String(d)
		}
		md["temp_dirs"] = core.List(items...)
	}
	return md
}

// Decode decodes a preferences.ini file, in UTF-8 or UTF-16LE with a byte
// order mark. The [eMule] section is required.
func Decode(r *bytesource.Reader, log *slog.Logger) (*Preferences, bool, error) {
	var out Preferences
	ok, err := decoder.Run(r, decoder.Logger(log), Format, true, func() error {
		data, err := r.ReadAll()
		if err != nil {
			return err
		}
		if bytes.HasPrefix(data, []byte{0xFF, 0xFE}) {
			text, err := autocomplete.DecodeUTF16(data)
			if err != nil {
				return err
			}
			data = []byte(text)
		}
		if bytes.IndexByte(data, 0) >= 0 {
			return core.FormatMismatch.New("binary content")
		}

		// Paths and nicks may legitimately contain ';' or '#'.
		f, err := goini.LoadSources(goini.LoadOptions{IgnoreInlineComment: true}, data)
		if err != nil {
			return core.FormatMismatch.Wrap(err)
		}
		sec, err := f.GetSection(section)
		if err != nil {
			return core.FormatMismatch.Wrap(err)
		}
		out.Nick = sec.Key("Nick").String()
		out.AppVersion = sec.Key("AppVersion").String()
		out.IncomingDir = sec.Key("IncomingDir").String()
		for _, d := range strings.Split(sec.Key("TempDir").String(), "|") {
			if d = strings.TrimSpace(d); d != "" {
				out.TempDirs = append(out.TempDirs, d)
			}
		}
		return nil
	})
	if !ok {
		return nil, false, err
	}
	return &out, true, nil
}

// IsInstance reports whether r holds an eMule preferences.ini.
func IsInstance(r *bytesource.Reader, log *slog.Logger) bool {
	_, ok, _ := Decode(r, log)
	return ok
}
