package auth

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"fmt"
	"hash"
	"strings"

	"golang.org/x/crypto/sha3"
)

// ErrUnknownAlgorithm is returned by ParseAlgorithm.
var ErrUnknownAlgorithm = errors.New("unknown hash algorithm")

// Algorithm is a supported digest.
type Algorithm int

const (
	SHA1 Algorithm = iota
	SHA256
	SHA384
	SHA512
	SHA3_256
)

var algorithms = []Algorithm{SHA1, SHA256, SHA384, SHA512, SHA3_256}

// Algorithms returns every supported algorithm in display order.
func Algorithms() []Algorithm {
	out := make([]Algorithm, len(algorithms))
	copy(out, algorithms)
	return out
}

// Valid reports whether a is one of the declared algorithms.
func (a Algorithm) Valid() bool {
	return a >= SHA1 && a <= SHA3_256
}

func (a Algorithm) String() string {
	switch a {
	case SHA1:
		return "SHA1"
	case SHA256:
		return "SHA256"
	case SHA384:
		return "SHA384"
	case SHA512:
		return "SHA512"
	case SHA3_256:
		return "SHA3-256"
	default:
		return fmt.Sprintf("Algorithm(%d)", int(a))
	}
}

// New returns a fresh hash for a. It panics if a is not one of the declared
// algorithms; ParseAlgorithm never returns such a value.
func (a Algorithm) New() hash.Hash {
	switch a {
	case SHA1:
		return sha1.New()
	case SHA256:
		return sha256.New()
	case SHA384:
		return sha512.New384()
	case SHA512:
		return sha512.New()
	case SHA3_256:
		return sha3.New256()
	}
	panic(fmt.Sprintf("auth: unknown hash algorithm %d", int(a)))
}

// Size is the digest length in bytes.
func (a Algorithm) Size() int {
	return a.New().Size()
}

// ParseAlgorithm accepts names like "sha256", "SHA-256" or "sha3-256".
func ParseAlgorithm(s string) (Algorithm, error) {
	norm := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "_", "-"))
	switch norm {
	case "SHA1", "SHA-1":
		return SHA1, nil
	case "SHA256", "SHA-256":
		return SHA256, nil
	case "SHA384", "SHA-384":
		return SHA384, nil
	case "SHA512", "SHA-512":
		return SHA512, nil
	case "SHA3-256", "SHA3256":
		return SHA3_256, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, s)
}
