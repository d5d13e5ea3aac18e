package inject

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"
)

// DailyKeyStore derives a per-key, per-day HMAC secret from a master secret
// and the key_id, so keys rotate daily without any external key-management
// dependency (§4.8: "a key_id → rotated daily").
type DailyKeyStore struct {
	mu     sync.RWMutex
	master []byte
	// known restricts acceptance to a configured set of key_ids; nil means
	// any key_id derives a valid secret (useful for tests).
	known map[string]bool
}

// NewDailyKeyStore constructs a store deriving secrets from master for the
// given known key_ids. An empty knownKeyIDs accepts any key_id.
func NewDailyKeyStore(master []byte, knownKeyIDs []string) *DailyKeyStore {
	var known map[string]bool
	if len(knownKeyIDs) > 0 {
		known = make(map[string]bool, len(knownKeyIDs))
		for _, k := range knownKeyIDs {
			known[k] = true
		}
	}
	return &DailyKeyStore{master: master, known: known}
}

// Secret derives today's secret for keyID. The derivation is
// SHA-256(master + ":" + keyID + ":" + UTC date), a fixed-length key, so
// yesterday's signatures stop validating automatically at day rollover.
func (d *DailyKeyStore) Secret(keyID string) ([]byte, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.known != nil && !d.known[keyID] {
		return nil, false
	}

	day := time.Now().UTC().Format("2006-01-02")
	h := sha256.New()
	h.Write(d.master)
	fmt.Fprintf(h, ":%s:%s", keyID, day)
	return h.Sum(nil), true
}
