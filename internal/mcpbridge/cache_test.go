package mcpbridge

import (
	"encoding/json"
	"testing"
	"time"
)

func TestCache_SetAndGet(t *testing.T) {
	c := newToolsCache(time.Minute)

	c.set("", json.RawMessage(`{"tools":[]}`))

	result, ok := c.get("")
	if !ok {
		t.Fatal("expected cache hit for empty params")
	}
	if string(result) != `{"tools":[]}` {
		t.Errorf("result: got %s, want %s", result, `{"tools":[]}`)
	}
}

func TestCache_Miss(t *testing.T) {
	c := newToolsCache(time.Minute)
	_, ok := c.get(`{"cursor":"x"}`)
	if ok {
		t.Error("expected cache miss for unknown params")
	}
}

func TestCache_Expiry(t *testing.T) {
	c := newToolsCache(10 * time.Millisecond)
	c.set("key", json.RawMessage(`{}`))

	// Immediate hit
	if _, ok := c.get("key"); !ok {
		t.Fatal("expected cache hit before expiry")
	}

	time.Sleep(20 * time.Millisecond)

	// After TTL, should be a miss
	if _, ok := c.get("key"); ok {
		t.Error("expected cache miss after TTL expiry")
	}
}

func TestCache_Invalidate(t *testing.T) {
	c := newToolsCache(time.Minute)
	c.set("key", json.RawMessage(`{}`))
	c.invalidate("key")

	if _, ok := c.get("key"); ok {
		t.Error("expected cache miss after invalidation")
	}
}

func TestCache_SetEvictsExpired(t *testing.T) {
	c := newToolsCache(10 * time.Millisecond)
	c.set("a", json.RawMessage(`{}`))
	c.set("b", json.RawMessage(`{}`))

	time.Sleep(20 * time.Millisecond)
	c.set("c", json.RawMessage(`{}`))

	if n := c.len(); n != 1 {
		t.Errorf("len after eviction: got %d, want 1", n)
	}
}
