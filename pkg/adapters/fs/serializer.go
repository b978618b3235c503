package fs

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/strata/pkg/core"
)

// Serializer defines how one evidence record is written to a file.
type Serializer interface {
	Serialize(e core.Evidence) ([]byte, error)
}

// DefaultSerializers returns the serializers keyed by file extension.
func DefaultSerializers() map[string]Serializer {
	y := NewYAMLSerializer()
	return map[string]Serializer{
		".json": NewJSONSerializer(),
		".yaml": y,
		".yml":  y,
		".cbor": NewCBORSerializer(),
	}
}

// Extensions returns the sorted keys of a serializer set.
func Extensions(serializers map[string]Serializer) []string {
	exts := make([]string, 0, len(serializers))
	for ext := range serializers {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// document is the on-disk shape of an evidence record.
type document struct {
	ID         string            `json:"id" yaml:"id" cbor:"id"`
	Kind       core.EvidenceKind `json:"kind" yaml:"kind" cbor:"kind"`
	Attributes map[string]any    `json:"attributes" yaml:"attributes" cbor:"attributes"`
	Sources    []core.Source     `json:"sources" yaml:"sources" cbor:"sources"`
	Winner     int               `json:"winner" yaml:"winner" cbor:"winner"`
}

func newDocument(e core.Evidence) document {
	return document{
		ID:         e.ID,
		Kind:       e.Kind,
		Attributes: e.Attributes.Native(),
		Sources:    e.Sources,
		Winner:     e.Winner,
	}
}

// JSONSerializer writes indented JSON.
type JSONSerializer struct{}

// NewJSONSerializer creates a new JSON serializer.
func NewJSONSerializer() *JSONSerializer { return &JSONSerializer{} }

func (s *JSONSerializer) Serialize(e core.Evidence) ([]byte, error) {
	data, err := json.MarshalIndent(newDocument(e), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	return append(data, '\n'), nil
}

// YAMLSerializer writes YAML documents.
type YAMLSerializer struct{}

// NewYAMLSerializer creates a new YAML serializer.
func NewYAMLSerializer() *YAMLSerializer { return &YAMLSerializer{} }

func (s *YAMLSerializer) Serialize(e core.Evidence) ([]byte, error) {
	data, err := yaml.Marshal(newDocument(e))
	if err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	return data, nil
}

// cborEnc uses Core Deterministic Encoding with RFC 3339 timestamps, so
// equal records produce equal bytes.
var cborEnc cbor.EncMode

// cborDec decodes untyped maps as map[string]any.
var cborDec cbor.DecMode

func init() {
	var err error

	opts := cbor.CoreDetEncOptions()
	opts.Time = cbor.TimeRFC3339Nano
	cborEnc, err = opts.EncMode()
	if err != nil {
		panic("fs: CBOR encoder initialization failed: " + err.Error())
	}

	cborDec, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("fs: CBOR decoder initialization failed: " + err.Error())
	}
}

// CBORSerializer writes deterministic CBOR.
type CBORSerializer struct{}

// NewCBORSerializer creates a new CBOR serializer.
func NewCBORSerializer() *CBORSerializer { return &CBORSerializer{} }

func (s *CBORSerializer) Serialize(e core.Evidence) ([]byte, error) {
	data, err := cborEnc.Marshal(newDocument(e))
	if err != nil {
		return nil, fmt.Errorf("encode cbor: %w", err)
	}
	return data, nil
}
