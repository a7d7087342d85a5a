// Package fingerprint derives a stable digest of a resource's desired
// arguments. The executor compares fingerprints against state to detect
// drift, so the encoding must be canonical: the same attribute values always
// produce the same digest regardless of declaration order or formatting.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Compute returns the hex digest of the canonical JSON encoding of the
// value. Object attributes serialize in lexical key order, which is what
// makes the digest canonical. Unknown values cannot be fingerprinted.
func Compute(v cty.Value) (string, error) {
	if !v.IsWhollyKnown() {
		return "", fmt.Errorf("cannot fingerprint a value with unknown attributes")
	}
	raw, err := ctyjson.Marshal(v, v.Type())
	if err != nil {
		return "", fmt.Errorf("encoding value for fingerprint: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
