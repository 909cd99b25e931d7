// Package cryptox holds the hashing helpers used to check audio blobs and
// compare shared secrets.
package cryptox

import (
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/blake2b"
)

// DigestSize is the length in bytes of a blob digest.
const DigestSize = blake2b.Size256

// Digest returns the hex encoded BLAKE2b-256 digest of everything read from r.
func Digest(r io.Reader) (string, error) {
	h, err := blake2b.New256(nil)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// FileDigest returns the digest of the file at path along with its size.
func FileDigest(path string) (digest string, size int64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return "", 0, fmt.Errorf("stat %s: %w", path, err)
	}

	digest, err = Digest(f)
	if err != nil {
		return "", 0, fmt.Errorf("digest %s: %w", path, err)
	}
	return digest, fi.Size(), nil
}

// TokenEqual compares two secrets in constant time. Empty secrets never match.
func TokenEqual(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	// Hash first so lengths don't leak.
	ha := blake2b.Sum256([]byte(a))
	hb := blake2b.Sum256([]byte(b))
	return subtle.ConstantTimeCompare(ha[:], hb[:]) == 1
}
