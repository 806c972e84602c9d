package store

import "testing"

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	cfg.SetDefaults()
	if cfg.KeyPrefix != "dispatchd" {
		t.Fatalf("unexpected prefix %q", cfg.KeyPrefix)
	}
}

func TestConstructorsRejectNilClient(t *testing.T) {
	if _, err := NewRedisBatchStore(nil, ""); err == nil {
		t.Fatalf("expected error for nil client")
	}
	if _, err := NewRedisCounterStore(nil, ""); err == nil {
		t.Fatalf("expected error for nil client")
	}
}

func TestKeyNamespacing(t *testing.T) {
	b := &RedisBatchStore{prefix: "dispatchd"}
	if got := b.key("b1"); got != "dispatchd:batch:b1" {
		t.Fatalf("unexpected key %q", got)
	}
	c := &RedisCounterStore{prefix: "dispatchd"}
	if got := c.key("o1"); got != "dispatchd:attempts:o1" {
		t.Fatalf("unexpected key %q", got)
	}
}
