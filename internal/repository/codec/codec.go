// Package codec encodes stored records. JSON keeps records readable from
// redis-cli; CBOR is smaller and encodes map keys in a canonical order.
package codec

import (
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Codec names accepted in configuration.
const (
	NameJSON = "json"
	NameCBOR = "cbor"
)

// Codec marshals records for the key-value store.
type Codec interface {
	Name() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// New returns the codec registered under name ("" selects JSON).
func New(name string) (Codec, error) {
	switch name {
	case "", NameJSON:
		return JSON{}, nil
	case NameCBOR:
		return NewCBOR()
	default:
		return nil, fmt.Errorf("unknown codec %q (expected %s or %s)", name, NameJSON, NameCBOR)
	}
}

// JSON is the encoding/json codec.
type JSON struct{}

// Name returns "json".
func (JSON) Name() string { return NameJSON }

// Marshal encodes v as JSON.
func (JSON) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

// Unmarshal decodes JSON into v.
func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// CBOR encodes with the core deterministic options so identical records are
// byte-identical.
type CBOR struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// NewCBOR builds the deterministic CBOR codec.
func NewCBOR() (*CBOR, error) {
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("cbor enc mode: %w", err)
	}
	dec, err := cbor.DecOptions{}.DecMode()
	if err != nil {
		return nil, fmt.Errorf("cbor dec mode: %w", err)
	}
	return &CBOR{enc: enc, dec: dec}, nil
}

// Name returns "cbor".
func (*CBOR) Name() string { return NameCBOR }

// Marshal encodes v as CBOR.
func (c *CBOR) Marshal(v any) ([]byte, error) { return c.enc.Marshal(v) }

// Unmarshal decodes CBOR into v.
func (c *CBOR) Unmarshal(data []byte, v any) error { return c.dec.Unmarshal(data, v) }
