package registry

import (
	"bytes"
	"errors"
	"fmt"
	"unicode"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // graphene key checksums are ripemd160 by definition
)

// Public key parsing errors.
var (
	ErrKeyTooShort    = errors.New("public key too short")
	ErrKeyNoPrefix    = errors.New("public key missing chain prefix")
	ErrKeyBadChecksum = errors.New("public key checksum mismatch")
)

// compressedKeyLen is the length of a compressed secp256k1 public key.
const compressedKeyLen = 33

// checksumLen is the number of ripemd160 bytes appended to the key data.
const checksumLen = 4

// PublicKey is a parsed graphene public key.
type PublicKey struct {
	// Prefix is the chain prefix, e.g. "BTS" or "STM".
	Prefix string

	// Data is the 33-byte compressed key.
	Data []byte
}

// String re-encodes the key in its base58 wire form.
func (k PublicKey) String() string {
	sum := ripemd160.New()
	sum.Write(k.Data)
	digest := sum.Sum(nil)
	return k.Prefix + base58.Encode(append(append([]byte(nil), k.Data...), digest[:checksumLen]...))
}

// maxPrefixLen bounds the chain prefix search. Known prefixes (BTS, MUSE,
// STM, TEST, GPH) are at most four characters.
const maxPrefixLen = 4

// ParsePublicKey parses a graphene-format public key: an uppercase chain
// prefix followed by base58(compressed key || first 4 bytes of its
// ripemd160 digest).
//
// The prefix length is not encoded, and the base58 alphabet itself contains
// uppercase letters, so candidate prefix lengths are tried until the
// checksum verifies.
func ParsePublicKey(key string) (PublicKey, error) {
	upper := 0
	for _, r := range key {
		if !unicode.IsUpper(r) || !unicode.IsLetter(r) {
			break
		}
		upper++
	}
	if upper == 0 {
		return PublicKey{}, ErrKeyNoPrefix
	}
	if upper > maxPrefixLen {
		upper = maxPrefixLen
	}

	var lastErr error
	badChecksum := false
	for prefixLen := upper; prefixLen >= 1; prefixLen-- {
		raw, err := base58.Decode(key[prefixLen:])
		if err != nil {
			lastErr = fmt.Errorf("decode public key: %w", err)
			continue
		}
		if len(raw) != compressedKeyLen+checksumLen {
			lastErr = fmt.Errorf("%w: %d bytes", ErrKeyTooShort, len(raw))
			continue
		}

		data, checksum := raw[:compressedKeyLen], raw[compressedKeyLen:]
		sum := ripemd160.New()
		sum.Write(data)
		digest := sum.Sum(nil)
		if !bytes.Equal(checksum, digest[:checksumLen]) {
			badChecksum = true
			continue
		}

		return PublicKey{Prefix: key[:prefixLen], Data: data}, nil
	}
	// A right-length candidate with a wrong checksum is the most precise
	// diagnosis available.
	if badChecksum {
		return PublicKey{}, ErrKeyBadChecksum
	}
	return PublicKey{}, lastErr
}
