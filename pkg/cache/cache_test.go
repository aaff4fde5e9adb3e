package cache

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	data, hit, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if hit || data != nil {
		t.Errorf("Get = (%q, %v), want miss", data, hit)
	}
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestHash(t *testing.T) {
	h1 := Hash([]byte("hello"))
	if h1 != Hash([]byte("hello")) {
		t.Error("Hash should be deterministic")
	}
	if h1 == Hash([]byte("world")) {
		t.Error("different inputs should produce different hashes")
	}
	if len(h1) != 64 {
		t.Errorf("len(Hash) = %d, want 64", len(h1))
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()

	a := k.LayoutKey("hash123", "graphviz")
	if !strings.HasPrefix(a, "layout:") {
		t.Errorf("LayoutKey = %q, want layout: prefix", a)
	}
	if a != k.LayoutKey("hash123", "graphviz") {
		t.Error("LayoutKey should be deterministic")
	}
	if a == k.LayoutKey("hash123", "remote") {
		t.Error("different engines should produce different keys")
	}
	if a == k.LayoutKey("hash456", "graphviz") {
		t.Error("different requests should produce different keys")
	}

	if got := k.DocumentKey("abc"); got != "doc:abc" {
		t.Errorf("DocumentKey = %q, want doc:abc", got)
	}
}

func TestScopedKeyer(t *testing.T) {
	inner := NewDefaultKeyer()
	scoped := NewScopedKeyer(inner, "tenant:1:")

	if got, want := scoped.LayoutKey("h", "graphviz"), "tenant:1:"+inner.LayoutKey("h", "graphviz"); got != want {
		t.Errorf("LayoutKey = %q, want %q", got, want)
	}
	if got := scoped.DocumentKey("x"); got != "tenant:1:doc:x" {
		t.Errorf("DocumentKey = %q", got)
	}
}

func TestScopedKeyerNilInner(t *testing.T) {
	scoped := NewScopedKeyer(nil, "prefix:")
	if got := scoped.DocumentKey("key"); got != "prefix:doc:key" {
		t.Errorf("DocumentKey with nil inner = %q", got)
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	defer c.Close()

	if _, hit, err := c.Get(ctx, "missing"); err != nil || hit {
		t.Fatalf("Get(missing) = hit %v, err %v", hit, err)
	}

	if err := c.Set(ctx, "k", []byte("payload"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, hit, err := c.Get(ctx, "k")
	if err != nil || !hit {
		t.Fatalf("Get = hit %v, err %v", hit, err)
	}
	if string(data) != "payload" {
		t.Errorf("Get = %q, want payload", data)
	}

	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("entry still present after Delete")
	}
	if err := c.Delete(ctx, "k"); err != nil {
		t.Errorf("Delete of missing key: %v", err)
	}
}

func TestFileCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())

	if err := c.Set(ctx, "k", []byte("v"), time.Nanosecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("expired entry returned")
	}
	if _, err := os.Stat(c.path("k")); !os.IsNotExist(err) {
		t.Error("expired entry file not removed")
	}
}

func TestFileCacheCorruptEntry(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())

	path := c.path("k")
	os.MkdirAll(filepath.Dir(path), 0o755)
	os.WriteFile(path, []byte("{not json"), 0o644)

	if _, hit, err := c.Get(ctx, "k"); hit || err != nil {
		t.Errorf("Get(corrupt) = hit %v, err %v, want clean miss", hit, err)
	}
}

func TestFileCacheClear(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c, _ := NewFileCache(dir)

	for _, k := range []string{"a", "b", "c"} {
		c.Set(ctx, k, []byte(k), 0)
	}
	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("cache dir removed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("%d entries left after Clear", len(entries))
	}
}

func TestCompressed(t *testing.T) {
	ctx := context.Background()
	fc, _ := NewFileCache(t.TempDir())
	c := NewCompressed(fc)

	payload := bytes.Repeat([]byte(`{"id":"node","x":10,"y":20},`), 200)
	if err := c.Set(ctx, "k", payload, 0); err != nil {
		t.Fatalf("Set: %v", err)
	}

	raw, _, _ := fc.Get(ctx, "k")
	if len(raw) >= len(payload) {
		t.Errorf("stored %d bytes, want fewer than %d", len(raw), len(payload))
	}

	got, hit, err := c.Get(ctx, "k")
	if err != nil || !hit {
		t.Fatalf("Get = hit %v, err %v", hit, err)
	}
	if !bytes.Equal(got, payload) {
		t.Error("decompressed payload differs")
	}

	if _, hit, err := c.Get(ctx, "missing"); hit || err != nil {
		t.Errorf("Get(missing) = hit %v, err %v", hit, err)
	}
}

func TestCompressedRejectsGarbage(t *testing.T) {
	ctx := context.Background()
	fc, _ := NewFileCache(t.TempDir())
	fc.Set(ctx, "k", []byte{0xff, 0xff, 0xff, 0xff, 0xff}, 0)

	if _, _, err := NewCompressed(fc).Get(ctx, "k"); err == nil {
		t.Error("expected decode error for non-snappy data")
	}
}
