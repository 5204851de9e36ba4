package credential

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasherRoundTrip(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	digest, err := h.Hash("correct horse battery")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	if digest == "correct horse battery" {
		t.Fatal("digest must not equal the plaintext")
	}
	if !h.Verify("correct horse battery", digest) {
		t.Fatal("Verify rejected the original plaintext")
	}
	if h.Verify("wrong password", digest) {
		t.Fatal("Verify accepted a wrong password")
	}
}

func TestPasswordHasherSaltsEveryHash(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	first, err := h.Hash("same input")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	second, err := h.Hash("same input")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	if first == second {
		t.Fatal("two hashes of the same plaintext must differ")
	}
	if !h.Verify("same input", first) || !h.Verify("same input", second) {
		t.Fatal("both salted digests must verify against the plaintext")
	}
}

// Verify 对破损输入只返回 false，不允许 panic。
func TestPasswordHasherVerifyMalformedDigest(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	if h.Verify("anything", "") {
		t.Fatal("empty digest must not verify")
	}
	if h.Verify("anything", "not-a-bcrypt-digest") {
		t.Fatal("garbage digest must not verify")
	}
	digest, err := h.Hash("anything")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	if h.Verify("", digest) {
		t.Fatal("empty plaintext must not verify against a real digest")
	}
}

func TestPasswordHasherCostFallback(t *testing.T) {
	if h := NewPasswordHasher(99); h.cost != bcrypt.DefaultCost {
		t.Fatalf("expected cost fallback to %d, got %d", bcrypt.DefaultCost, h.cost)
	}
	if h := NewPasswordHasher(-1); h.cost != bcrypt.DefaultCost {
		t.Fatalf("expected cost fallback to %d, got %d", bcrypt.DefaultCost, h.cost)
	}
	if h := NewPasswordHasher(bcrypt.MinCost); h.cost != bcrypt.MinCost {
		t.Fatalf("expected cost %d to be kept, got %d", bcrypt.MinCost, h.cost)
	}
}
