// Package checksum fingerprints file contents so unchanged files can be
// skipped on reload.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Tracker remembers the last digest seen per name.
type Tracker struct {
	mu   sync.Mutex
	last map[string]string
}

func NewTracker() *Tracker {
	return &Tracker{last: make(map[string]string)}
}

// Changed records data's digest under name and reports whether it differs
// from the previous one.
func (t *Tracker) Changed(name string, data []byte) bool {
	sum := Sum(data)
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.last[name] == sum {
		return false
	}
	t.last[name] = sum
	return true
}

// Forget drops the digest recorded for name.
func (t *Tracker) Forget(name string) {
	t.mu.Lock()
	delete(t.last, name)
	t.mu.Unlock()
}
