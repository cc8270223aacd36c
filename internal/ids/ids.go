package ids

import (
	mathrand "math/rand"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/oklog/ulid/v2"
)

const maxRequestIDLen = 128

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// New returns a lexicographically sortable identifier.
func New() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// RequestID returns incoming when it is a usable correlation id and a fresh
// ULID otherwise. Usable means non-empty, at most 128 bytes and printable ASCII
// without spaces, so it can be echoed into headers and log lines as is.
func RequestID(incoming string) string {
	incoming = strings.TrimSpace(incoming)
	if incoming == "" || len(incoming) > maxRequestIDLen {
		return New()
	}
	for _, r := range incoming {
		if r > unicode.MaxASCII || !unicode.IsPrint(r) || r == ' ' {
			return New()
		}
	}
	return incoming
}
