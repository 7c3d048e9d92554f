// Package idgen produces the human-readable secondary ids
// ("run_<ts>_<hash>") used alongside the opaque uuid primary keys. No pack
// library specializes in typed, human-readable id generation, so this is
// built on the standard library (crypto/rand for the short hash, strconv
// for the timestamp) rather than an ecosystem dependency.
package idgen

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// New returns "{prefix}_{unixnano-base36}_{8-hex}".
func New(prefix string) string {
	prefix = strings.TrimSpace(prefix)
	ts := strconv.FormatInt(time.Now().UnixNano(), 36)
	return fmt.Sprintf("%s_%s_%s", prefix, ts, shortHash())
}

func shortHash() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "00000000"
	}
	return hex.EncodeToString(buf)
}
