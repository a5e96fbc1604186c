// File: internal/library/codec.go
package library

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/stimulus-cli/internal/stimulus"
)

// canonical is the encoder used for every persisted record. Map keys are
// sorted and HTML is not escaped, so a document always encodes to the same
// bytes.
var canonical = jsoniter.Config{
	EscapeHTML:             false,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
}.Froze()

// Address identifies a record by the XXH64 (seed 0) digest of its canonical
// encoding, as 16 lowercase hex digits.
type Address string

// AddressOf returns the content address of data.
func AddressOf(data []byte) Address {
	return Address(fmt.Sprintf("%016x", xxhash.Sum64(data)))
}

func (a Address) String() string { return string(a) }

// FileName is the name of the record file in the library directory.
func (a Address) FileName() string { return string(a) + ".json" }

// Encode returns the canonical serialization of spec: the variant document
// with two-space indentation and a trailing newline.
func Encode(spec stimulus.Spec) ([]byte, error) {
	data, err := canonical.MarshalIndent(spec.Document(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s spec: %w", spec.Kind(), err)
	}
	return append(data, '\n'), nil
}
