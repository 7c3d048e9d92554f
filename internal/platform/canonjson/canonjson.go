// Package canonjson produces the canonical JSON byte sequence the run
// engine and artifact store hash: sorted keys, no insignificant whitespace,
// UTF-8, numbers in shortest round-trip form, null preserved. It is a thin
// adapter over the RFC 8785 JSON Canonicalization Scheme implementation
// (github.com/lattice-substrate/json-canon), which already encodes those
// exact rules, rather than a hand-rolled serializer.
package canonjson

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/lattice-substrate/json-canon/jcs"
	"github.com/lattice-substrate/json-canon/jcstoken"
)

// Marshal renders v as canonical JSON bytes.
func Marshal(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonjson: encode: %w", err)
	}
	return CanonicalizeRaw(raw)
}

// CanonicalizeRaw re-serializes already-encoded JSON bytes into canonical form.
func CanonicalizeRaw(raw []byte) ([]byte, error) {
	tok, err := jcstoken.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("canonjson: parse: %w", err)
	}
	out, err := jcs.Serialize(tok)
	if err != nil {
		return nil, fmt.Errorf("canonjson: serialize: %w", err)
	}
	return out, nil
}

// Hash returns the lowercase hex SHA-256 digest of v's canonical JSON form.
// This is the idempotency-key / content-hash primitive used throughout the
// run and artifact engine.
func Hash(v any) (string, error) {
	canon, err := Marshal(v)
	if err != nil {
		return "", err
	}
	return HashBytes(canon), nil
}

// HashBytes hashes already-canonicalized bytes.
func HashBytes(canon []byte) string {
	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:])
}
