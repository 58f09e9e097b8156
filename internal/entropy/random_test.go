package entropy

import "testing"

func TestNilClientSeed(t *testing.T) {
	var c *Client
	s := c.Seed()
	if s < 0 {
		t.Fatalf("seed = %d, want non-negative", s)
	}
}

func TestNewClientWithoutKey(t *testing.T) {
	if c := NewClient(""); c != nil {
		t.Fatal("expected nil client without API key")
	}
}

func TestCryptoSeedVaries(t *testing.T) {
	a, b := CryptoSeed(), CryptoSeed()
	if a < 0 || b < 0 {
		t.Fatalf("negative seed: %d %d", a, b)
	}
	// 63 bits of entropy, a collision here means the source is broken.
	if a == b {
		t.Fatalf("consecutive seeds identical: %d", a)
	}
}
