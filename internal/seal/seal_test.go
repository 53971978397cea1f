package seal

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func newTestSealer(t *testing.T) *Sealer {
	t.Helper()
	s, err := New(testKey)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s == nil {
		t.Fatal("New returned nil Sealer for a valid key")
	}
	return s
}

func TestSealRoundTrip(t *testing.T) {
	s := newTestSealer(t)
	plaintext := []byte(`{"message":"hello"}`)

	sealed, err := s.Seal(plaintext)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if bytes.Equal(sealed, plaintext) {
		t.Error("sealed blob equals plaintext")
	}

	opened, err := s.Open(sealed)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !bytes.Equal(opened, plaintext) {
		t.Errorf("Open = %q, want %q", opened, plaintext)
	}
}

func TestSealUniqueNonces(t *testing.T) {
	s := newTestSealer(t)
	plaintext := []byte("same input")

	a, err := s.Seal(plaintext)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	b, err := s.Seal(plaintext)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if bytes.Equal(a, b) {
		t.Error("two seals of the same input produced identical blobs")
	}
}

func TestOpenTamperedBlob(t *testing.T) {
	s := newTestSealer(t)

	sealed, err := s.Seal([]byte("payload"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	sealed[len(sealed)-1] ^= 0xff

	if _, err := s.Open(sealed); !errors.Is(err, ErrOpen) {
		t.Errorf("Open tampered blob err = %v, want ErrOpen", err)
	}
}

func TestOpenTruncatedBlob(t *testing.T) {
	s := newTestSealer(t)

	if _, err := s.Open([]byte("short")); !errors.Is(err, ErrOpen) {
		t.Errorf("Open truncated blob err = %v, want ErrOpen", err)
	}
}

func TestNilSealerPassthrough(t *testing.T) {
	var s *Sealer

	blob := []byte("plain")
	sealed, err := s.Seal(blob)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if !bytes.Equal(sealed, blob) {
		t.Errorf("nil Sealer.Seal = %q, want passthrough %q", sealed, blob)
	}

	opened, err := s.Open(blob)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !bytes.Equal(opened, blob) {
		t.Errorf("nil Sealer.Open = %q, want passthrough %q", opened, blob)
	}
}

func TestEmptyKeyDisablesSealing(t *testing.T) {
	s, err := New("")
	if err != nil {
		t.Fatalf("New(\"\"): %v", err)
	}
	if s != nil {
		t.Error("New(\"\") returned a non-nil Sealer")
	}
}

func TestNewKeyValidation(t *testing.T) {
	tests := []struct {
		name string
		key  string
	}{
		{"not hex", "zz"},
		{"too short", hex.EncodeToString(make([]byte, 16))},
		{"too long", hex.EncodeToString(make([]byte, 48))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.key); err == nil {
				t.Errorf("New(%q) succeeded, want error", tt.key)
			}
		})
	}
}

func TestSealEmptyBlob(t *testing.T) {
	s := newTestSealer(t)

	sealed, err := s.Seal(nil)
	if err != nil {
		t.Fatalf("Seal(nil): %v", err)
	}
	if sealed != nil {
		t.Errorf("Seal(nil) = %v, want nil", sealed)
	}
}
