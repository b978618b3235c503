// Package txtsrc decodes the plain-text peer lists eMule saves next to a
// partial download as "<name>.part.met.txtsrc".
//
//	#format: a.b.c.d:port,yymmddhhmm;
//	10.0.0.1:4662,2311141530;
package txtsrc

import (
	"bufio"
	"bytes"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/strata/pkg/bytesource"
	"github.com/aretw0/strata/pkg/core"
	"github.com/aretw0/strata/pkg/decoder"
	"github.com/aretw0/strata/pkg/decoder/tag"
)

const (
	// Format is the name used in logs and the scan index.
	Format = "txtsrc"

	// Header is the mandatory first line.
	Header = "#format: a.b.c.d:port,yymmddhhmm;"

	// Suffix is appended to the primary file name.
	Suffix = ".txtsrc"

	expiryLayout = "0601021504"
)

// Source is one peer endpoint.
type Source struct {
	IP      string
	Port    uint16
	Expires time.Time
}

// Endpoint renders ip:port.
func (s Source) Endpoint() string {
	return s.IP + ":" + strconv.Itoa(int(s.Port))
}

// List is a decoded source list.
type List struct {
	Sources []Source
}

// PrimaryName returns the name of the file a companion list belongs to, and
// false when name is not a companion name.
func PrimaryName(name string) (string, bool) {
	if len(name) <= len(Suffix) || !strings.EqualFold(name[len(name)-len(Suffix):], Suffix) {
		return "", false
	}
	return name[:len(name)-len(Suffix)], true
}

// CompanionName returns the companion list name for a primary file.
func CompanionName(primary string) string { return primary + Suffix }

// Decode decodes a source list. Malformed lines are skipped.
func Decode(r *bytesource.Reader, opts tag.Options) (*List, bool, error) {
	var out List
	log := opts.Log()
	ok, err := decoder.Run(r, log, Format, true, func() error {
		if r.Size() < int64(len(Header)) {
			return core.TruncatedInput.New("%d bytes", r.Size())
		}
		data, err := r.ReadAll()
		if err != nil {
			return err
		}

		sc := bufio.NewScanner(bytes.NewReader(data))
		sc.Buffer(make([]byte, 0, 4096), len(data)+1)
		line := 0
		for sc.Scan() {
			line++
			text := strings.TrimRight(sc.Text(), "\r")
			if line == 1 {
				if text != Header {
					return core.FormatMismatch.New("header %q", truncate(text, 48))
				}
				continue
			}
			if text == "" || text[0] == '#' {
				continue
			}
			src, ok := parseLine(text)
			if !ok {
				log.Debug("skipping malformed source line", "line", line, "text", truncate(text, 64))
				continue
			}
			out.Sources = append(out.Sources, src)
		}
		if err := sc.Err(); err != nil {
			return core.FormatMismatch.Wrap(err)
		}
		return nil
	})
	if !ok {
		return nil, false, err
	}
	return &out, true, nil
}

// IsInstance reports whether r holds a source list.
func IsInstance(r *bytesource.Reader, opts tag.Options) bool {
	_, ok, _ := Decode(r, opts)
	return ok
}

// parseLine reads "ip:port,yymmddhhmm;" by locating each delimiter in turn.
// Anything after the terminating ';' is ignored.
func parseLine(text string) (Source, bool) {
	colon := strings.IndexByte(text, ':')
	if colon <= 0 {
		return Source{}, false
	}
	addr, err := netip.ParseAddr(text[:colon])
	if err != nil || !addr.Is4() {
		return Source{}, false
	}

	rest := text[colon+1:]
	comma := strings.IndexByte(rest, ',')
	if comma <= 0 {
		return Source{}, false
	}
	port, err := strconv.ParseUint(rest[:comma], 10, 16)
	if err != nil {
		return Source{}, false
	}

	rest = rest[comma+1:]
	semi := strings.IndexByte(rest, ';')
	if semi < 0 {
		return Source{}, false
	}
	src := Source{IP: addr.String(), Port: uint16(port)}
	if t, err := time.Parse(expiryLayout, rest[:semi]); err == nil {
		src.Expires = t.UTC()
	}
	return src, true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
