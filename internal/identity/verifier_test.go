package identity

import (
	"testing"
)

func TestVerifySignature_ValidSignature_ReturnsTrue(t *testing.T) {
	key := genTestKey(t)
	raw := signToken(t, key,
		map[string]any{"alg": "RS256", "kid": "k1"},
		map[string]any{"iss": "accounts.google.com"},
	)

	dec, err := DecodeToken(raw)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if !VerifySignature(&key.PublicKey, dec.SignedInput, dec.Signature) {
		t.Error("expected valid signature to verify")
	}
}

func TestVerifySignature_TamperedPayload_ReturnsFalse(t *testing.T) {
	key := genTestKey(t)
	raw := signToken(t, key,
		map[string]any{"alg": "RS256", "kid": "k1"},
		map[string]any{"email": "ann@x.com"},
	)

	dec, err := DecodeToken(raw)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	tampered := append([]byte{}, dec.SignedInput...)
	tampered[len(tampered)-1] ^= 0x01

	if VerifySignature(&key.PublicKey, tampered, dec.Signature) {
		t.Error("expected tampered input to fail verification")
	}
}

func TestVerifySignature_WrongKey_ReturnsFalse(t *testing.T) {
	key := genTestKey(t)
	otherKey := genTestKey(t)
	raw := signToken(t, key,
		map[string]any{"alg": "RS256", "kid": "k1"},
		map[string]any{"email": "ann@x.com"},
	)

	dec, err := DecodeToken(raw)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if VerifySignature(&otherKey.PublicKey, dec.SignedInput, dec.Signature) {
		t.Error("expected verification with wrong key to fail")
	}
}

func TestVerifySignature_NilKey_ReturnsFalse(t *testing.T) {
	if VerifySignature(nil, []byte("input"), []byte("sig")) {
		t.Error("expected nil key to fail verification")
	}
}

func TestVerifySignature_GarbageSignature_ReturnsFalse(t *testing.T) {
	key := genTestKey(t)
	if VerifySignature(&key.PublicKey, []byte("input"), []byte("not-a-signature")) {
		t.Error("expected garbage signature to fail verification")
	}
}
