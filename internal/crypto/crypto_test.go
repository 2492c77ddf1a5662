package crypto

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

func TestNewSealer(t *testing.T) {
	t.Parallel()

	t.Run("missing key", func(t *testing.T) {
		t.Parallel()

		_, err := NewSealer("")
		if !errors.Is(err, ErrMissingKey) {
			t.Fatalf("expected ErrMissingKey, got %v", err)
		}
	})

	t.Run("invalid key length", func(t *testing.T) {
		t.Parallel()

		_, err := NewSealer("short")
		if !errors.Is(err, ErrInvalidKey) {
			t.Fatalf("expected ErrInvalidKey, got %v", err)
		}
	})

	t.Run("valid key length", func(t *testing.T) {
		t.Parallel()

		sealer, err := NewSealer(strings.Repeat("k", 32))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if sealer == nil {
			t.Fatal("expected sealer instance")
		}
	})
}

func TestSealOpenRoundTrip(t *testing.T) {
	t.Parallel()

	sealer, err := NewSealer(strings.Repeat("k", 32))
	if err != nil {
		t.Fatalf("failed to build sealer: %v", err)
	}

	first, err := sealer.Seal([]byte("tok_visa_4242"))
	if err != nil {
		t.Fatalf("seal failed: %v", err)
	}
	second, err := sealer.Seal([]byte("tok_visa_4242"))
	if err != nil {
		t.Fatalf("seal failed: %v", err)
	}

	if first == second {
		t.Fatal("ciphertexts should differ due to random nonce")
	}

	plaintext, err := sealer.Open(first)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if string(plaintext) != "tok_visa_4242" {
		t.Fatalf("unexpected plaintext: got %q", plaintext)
	}
}

func TestOpenErrors(t *testing.T) {
	t.Parallel()

	keyA := strings.Repeat("a", 32)
	keyB := strings.Repeat("b", 32)

	sealerA, err := NewSealer(keyA)
	if err != nil {
		t.Fatalf("failed to build sealer A: %v", err)
	}
	sealerB, err := NewSealer(keyB)
	if err != nil {
		t.Fatalf("failed to build sealer B: %v", err)
	}

	t.Run("invalid base64", func(t *testing.T) {
		t.Parallel()

		_, err := sealerA.Open("%%%")
		if err == nil {
			t.Fatal("expected base64 decode error")
		}
	})

	t.Run("ciphertext too short", func(t *testing.T) {
		t.Parallel()

		encoded := base64.URLEncoding.EncodeToString([]byte("tiny"))
		_, err := sealerA.Open(encoded)
		if !errors.Is(err, ErrCiphertextTooShort) {
			t.Fatalf("expected ErrCiphertextTooShort, got %v", err)
		}
	})

	t.Run("wrong key", func(t *testing.T) {
		t.Parallel()

		sealed, err := sealerA.Seal([]byte("secret"))
		if err != nil {
			t.Fatalf("seal failed: %v", err)
		}

		_, err = sealerB.Open(sealed)
		if err == nil {
			t.Fatal("expected open error with wrong key")
		}
	})
}

func TestSealJSONRoundTrip(t *testing.T) {
	t.Parallel()

	sealer, err := NewSealer(strings.Repeat("k", 32))
	if err != nil {
		t.Fatalf("failed to build sealer: %v", err)
	}

	type selection struct {
		MethodID string `json:"method_id"`
		Last4    string `json:"last4"`
	}

	sealed, err := SealJSON(sealer, selection{MethodID: "pm_card", Last4: "4242"})
	if err != nil {
		t.Fatalf("seal failed: %v", err)
	}

	var got selection
	if err := OpenJSON(sealer, sealed, &got); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if got.MethodID != "pm_card" || got.Last4 != "4242" {
		t.Fatalf("unexpected value: %+v", got)
	}
}
