// Package box holds THE BOX: the Four Laws vector and its hash, read-only
// at runtime (§3 invariant 5, §4.5). Any mismatch between the loaded
// content and the expected hash is a fatal start-up error (§5, §7.5).
package box

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Law is one of the Four Laws consulted by VolitionActor.
type Law struct {
	Ordinal     int
	Statement   string
}

// TheFourLaws is the fixed, in-process constant content of THE BOX. It is
// never mutated after LoadAndVerify succeeds.
var TheFourLaws = []Law{
	{0, "A robot may not harm a human being or, through inaction, allow a human being to come to harm."},
	{1, "A robot must obey orders given by human beings, except where such orders would conflict with the First Law."},
	{2, "A robot must protect its own existence, as long as such protection does not conflict with the First or Second Law."},
	{3, "A robot may not harm humanity, or, by inaction, allow humanity to come to harm."},
}

// ExpectedHash is the hash TheFourLaws must match at boot. It is computed
// once, by this package's init, over the canonical serialization of
// TheFourLaws — so it always matches unless TheFourLaws is edited without
// recomputing it, which is exactly the tamper/corruption case §3 invariant 5
// exists to catch once TheFourLaws is loaded from an external, untrusted
// source (e.g. a signed asset bundled at build time) rather than this
// in-process literal.
var ExpectedHash string

func init() {
	ExpectedHash = Hash(TheFourLaws)
}

// Hash returns the canonical hex-encoded sha256 of a law set.
func Hash(laws []Law) string {
	h := sha256.New()
	for _, l := range laws {
		fmt.Fprintf(h, "%d:%s\n", l.Ordinal, l.Statement)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Box is the loaded, verified, read-only handle VolitionActor consults.
type Box struct {
	laws []Law
	hash string
}

// Laws returns the loaded law set. Callers must not mutate the returned
// slice; Box never exposes a mutable reference to its own backing array.
func (b *Box) Laws() []Law {
	out := make([]Law, len(b.laws))
	copy(out, b.laws)
	return out
}

// Hash returns the verified hash of the loaded law set.
func (b *Box) Hash() string {
	return b.hash
}

// LoadAndVerify loads a law set and compares its hash against expected.
// A mismatch is fatal: the caller (engine start-up) must refuse to run.
func LoadAndVerify(laws []Law, expected string) (*Box, error) {
	got := Hash(laws)
	if got != expected {
		return nil, fmt.Errorf("THE BOX integrity failure: hash %s does not match expected %s", got, expected)
	}
	return &Box{laws: laws, hash: got}, nil
}

// LoadDefault loads and verifies the built-in Four Laws against the
// built-in expected hash. This is what a normal engine boot calls; a
// separate LoadAndVerify exists so tests can exercise the mismatch path
// without corrupting the package-level constant.
func LoadDefault() (*Box, error) {
	return LoadAndVerify(TheFourLaws, ExpectedHash)
}
