package registry

import (
	"bytes"
	"errors"
	"testing"
)

// testKey builds a syntactically valid graphene key for the given prefix.
func testKey(prefix string, fill byte) string {
	data := bytes.Repeat([]byte{fill}, compressedKeyLen)
	data[0] = 0x02 // compressed point marker
	return PublicKey{Prefix: prefix, Data: data}.String()
}

func TestParsePublicKeyRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		fill   byte
	}{
		{"bts key", "BTS", 0x11},
		{"steem key", "STM", 0x42},
		{"muse key", "MUSE", 0x7f},
		{"test key", "TEST", 0x01},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := testKey(tt.prefix, tt.fill)
			parsed, err := ParsePublicKey(encoded)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if parsed.Prefix != tt.prefix {
				t.Errorf("prefix = %q, want %q", parsed.Prefix, tt.prefix)
			}
			if parsed.String() != encoded {
				t.Errorf("round trip = %q, want %q", parsed.String(), encoded)
			}
		})
	}
}

func TestParsePublicKeyInvalid(t *testing.T) {
	valid := testKey("BTS", 0x11)

	// Corrupt the last character to break the checksum. Pick a replacement
	// that stays inside the base58 alphabet.
	last := valid[len(valid)-1]
	repl := byte('2')
	if last == repl {
		repl = '3'
	}
	corrupted := valid[:len(valid)-1] + string(repl)

	tests := []struct {
		name string
		key  string
		want error
	}{
		{"no prefix", "5Kabcdef", ErrKeyNoPrefix},
		{"empty", "", ErrKeyNoPrefix},
		{"too short", "BTS2yz", ErrKeyTooShort},
		{"bad checksum", corrupted, ErrKeyBadChecksum},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParsePublicKey(tt.key); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestIsSigningKeyActive(t *testing.T) {
	active := testKey("BTS", 0x11)
	other := testKey("BTS", 0x22)

	n := NewNode("bts", "witnessA", "localhost", 1234)
	n.Witness = true
	n.SigningKey = active

	ok, err := n.IsSigningKeyActive(active)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("configured signing key reported inactive")
	}

	ok, err = n.IsSigningKeyActive(other)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("foreign signing key reported active")
	}

	if _, err := n.IsSigningKeyActive("garbage"); err == nil {
		t.Error("expected error for malformed key")
	}

	// Non-witness nodes never sign.
	n.Witness = false
	ok, err = n.IsSigningKeyActive(active)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("non-witness node reported active signing key")
	}
}
