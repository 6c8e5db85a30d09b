package crypto

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestBoxSealsAndOpens(t *testing.T) {
	box, err := NewBox(strings.Repeat("ab", 32))
	if err != nil {
		t.Fatalf("new box: %v", err)
	}
	sealed, err := box.EncryptString("JBSWY3DPEHPK3PXP")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if bytes.Contains(sealed, []byte("JBSWY3DPEHPK3PXP")) {
		t.Fatal("sealed value leaks plaintext")
	}
	plain, err := box.DecryptString(sealed)
	if err != nil || plain != "JBSWY3DPEHPK3PXP" {
		t.Fatalf("open: %q %v", plain, err)
	}
}

func TestBoxDerivesKeyFromPassphrase(t *testing.T) {
	box, err := NewBox("a reasonably long passphrase")
	if err != nil {
		t.Fatalf("new box: %v", err)
	}
	if !box.Configured() {
		t.Fatal("expected configured box")
	}
	other, _ := NewBox("a different long passphrase")
	sealed, _ := box.Seal([]byte("secret"))
	if _, err := other.Open(sealed); err == nil {
		t.Fatal("expected open with another key to fail")
	}
}

func TestBoxRejectsShortKey(t *testing.T) {
	if _, err := NewBox("short"); err == nil {
		t.Fatal("expected short key error")
	}
}

func TestUnconfiguredBoxPassesThrough(t *testing.T) {
	box, err := NewBox("")
	if err != nil {
		t.Fatalf("new box: %v", err)
	}
	if box.Configured() {
		t.Fatal("empty key must not configure the box")
	}
	sealed, _ := box.EncryptString("plain")
	if string(sealed) != "plain" {
		t.Fatalf("expected passthrough, got %q", sealed)
	}
	configured, _ := NewBox(strings.Repeat("k", 32))
	if _, err := configured.Open([]byte{1, 2}); !errors.Is(err, ErrCiphertextTooShort) {
		t.Fatalf("expected ErrCiphertextTooShort, got %v", err)
	}
}
