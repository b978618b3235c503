package tag

import "fmt"

// Type is the wire type code of a tag value.
type Type uint8

const (
	TypeHash      Type = 0x01
	TypeString    Type = 0x02
	TypeUint32    Type = 0x03
	TypeFloat32   Type = 0x04
	TypeBool      Type = 0x05
	TypeBoolArray Type = 0x06
	TypeBlob      Type = 0x07
	TypeUint16    Type = 0x08
	TypeUint8     Type = 0x09
	TypeBsob      Type = 0x0A
	TypeUint64    Type = 0x0B

	// TypeStr1 through TypeStr22 carry an inline string whose length is
	// encoded in the type code itself.
	TypeStr1  Type = 0x11
	TypeStr22 Type = 0x26
)

func (t Type) String() string {
	switch t {
	case TypeHash:
		return "HASH"
	case TypeString:
		return "STRING"
	case TypeUint32:
		return "UINT32"
	case TypeFloat32:
		return "FLOAT32"
	case TypeBool:
		return "BOOL"
	case TypeBoolArray:
		return "BOOLARRAY"
	case TypeBlob:
		return "BLOB"
	case TypeUint16:
		return "UINT16"
	case TypeUint8:
		return "UINT8"
	case TypeBsob:
		return "BSOB"
	case TypeUint64:
		return "UINT64"
	}
	if t.IsInlineString() {
		return fmt.Sprintf("STR%d", t.InlineLength())
	}
	return fmt.Sprintf("TYPE(0x%02X)", uint8(t))
}

// IsInlineString reports whether t is one of STR1..STR22.
func (t Type) IsInlineString() bool { return t >= TypeStr1 && t <= TypeStr22 }

// InlineLength returns the string length carried by an inline string type.
func (t Type) InlineLength() int { return int(t-TypeStr1) + 1 }
