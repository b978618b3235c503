// Package bencode decodes the bencoded state files of BitTorrent clients:
// uTorrent resume.dat and settings.dat, .torrent metainfo files, and the
// qBittorrent torrents.db database.
package bencode

import (
	"strconv"
	"unicode/utf8"

	"github.com/aretw0/strata/pkg/core"
)

// Format names, as used in logs and the scan index.
const (
	FormatResume   = "resume.dat"
	FormatSettings = "settings.dat"
	FormatTorrent  = "torrent"
	FormatDatabase = "torrents.db"
)

const maxDepth = 64

// Document is a decoded bencoded buffer. For a dictionary root, Raw holds the
// encoded bytes of each top-level value.
type Document struct {
	Root core.Value
	Raw  map[string][]byte
}

// Parse decodes a complete bencoded buffer. Trailing bytes are an error.
func Parse(data []byte) (*Document, error) {
	d := &parser{data: data}
	doc := &Document{}
	if len(data) > 0 && data[0] == 'd' {
		doc.Raw = make(map[string][]byte)
	}
	root, err := d.value(0, doc.Raw)
	if err != nil {
		return nil, err
	}
	if d.pos != len(data) {
		return nil, core.FormatMismatch.New("%d trailing bytes at offset %d", len(data)-d.pos, d.pos)
	}
	doc.Root = root
	return doc, nil
}

// Decode decodes a complete bencoded buffer into a value.
func Decode(data []byte) (core.Value, error) {
	doc, err := Parse(data)
	if err != nil {
		return core.Null(), err
	}
	return doc.Root, nil
}

type parser struct {
	data []byte
	pos  int
}

// value decodes the item at the cursor. When spans is non-nil and the item
// is a dictionary, the raw encoding of each of its values is recorded.
func (p *parser) value(depth int, spans map[string][]byte) (core.Value, error) {
	if depth > maxDepth {
		return core.Null(), core.FormatMismatch.New("nesting deeper than %d at offset %d", maxDepth, p.pos)
	}
	if p.pos >= len(p.data) {
		return core.Null(), core.TruncatedInput.New("value expected at offset %d", p.pos)
	}

	switch c := p.data[p.pos]; {
	case c == 'i':
		return p.integer()
	case c == 'l':
		p.pos++
		var items []core.Value
		for {
			if p.pos >= len(p.data) {
				return core.Null(), core.TruncatedInput.New("unterminated list")
			}
			if p.data[p.pos] == 'e' {
				p.pos++
				return core.List(items...), nil
			}
			item, err := p.value(depth+1, nil)
			if err != nil {
				return core.Null(), err
			}
			items = append(items, item)
		}
	case c == 'd':
		p.pos++
		m := make(map[string]core.Value)
		for {
			if p.pos >= len(p.data) {
				return core.Null(), core.TruncatedInput.New("unterminated dictionary")
			}
			if p.data[p.pos] == 'e' {
				p.pos++
				return core.Map(m), nil
			}
			key, err := p.bytes()
			if err != nil {
				return core.Null(), err
			}
			start := p.pos
			item, err := p.value(depth+1, nil)
			if err != nil {
				return core.Null(), err
			}
			m[string(key)] = item
			if spans != nil {
				spans[string(key)] = p.data[start:p.pos]
			}
		}
	case c >= '0' && c <= '9':
		b, err := p.bytes()
		if err != nil {
			return core.Null(), err
		}
		if utf8.Valid(b) {
			return core.String(string(b)), nil
		}
		return core.Bytes(b), nil
	default:
		return core.Null(), core.FormatMismatch.New("unexpected byte 0x%02X at offset %d", c, p.pos)
	}
}

func (p *parser) integer() (core.Value, error) {
	start := p.pos + 1
	end := start
	for end < len(p.data) && p.data[end] != 'e' {
		end++
	}
	if end >= len(p.data) {
		return core.Null(), core.TruncatedInput.New("unterminated integer at offset %d", p.pos)
	}
	digits := p.data[start:end]
	if !canonicalInt(digits) {
		return core.Null(), core.FormatMismatch.New("non-canonical integer %q at offset %d", digits, p.pos)
	}
	v, err := strconv.ParseInt(string(digits), 10, 64)
	if err != nil {
		return core.Null(), core.FormatMismatch.New("integer at offset %d: %v", p.pos, err)
	}
	p.pos = end + 1
	return core.Int(v), nil
}

func (p *parser) bytes() ([]byte, error) {
	colon := p.pos
	for colon < len(p.data) && p.data[colon] >= '0' && p.data[colon] <= '9' {
		colon++
	}
	if colon >= len(p.data) {
		return nil, core.TruncatedInput.New("unterminated length at offset %d", p.pos)
	}
	if p.data[colon] != ':' || colon == p.pos {
		return nil, core.FormatMismatch.New("string length expected at offset %d", p.pos)
	}
	if p.data[p.pos] == '0' && colon-p.pos > 1 {
		return nil, core.FormatMismatch.New("string length with leading zero at offset %d", p.pos)
	}
	n, err := strconv.Atoi(string(p.data[p.pos:colon]))
	if err != nil {
		return nil, core.FormatMismatch.New("string length at offset %d: %v", p.pos, err)
	}
	start := colon + 1
	if n > len(p.data)-start {
		return nil, core.TruncatedInput.New("string of %d bytes at offset %d", n, start)
	}
	p.pos = start + n
	return p.data[start:p.pos], nil
}

// canonicalInt accepts the only encodings bencode allows: an optional minus
// sign followed by digits, no leading zeros and no negative zero.
func canonicalInt(b []byte) bool {
	if len(b) > 0 && b[0] == '-' {
		b = b[1:]
		if len(b) > 0 && b[0] == '0' {
			return false
		}
	}
	if len(b) == 0 || (b[0] == '0' && len(b) > 1) {
		return false
	}
	for _, c := range b {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
