package cache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/majalla/internal/model"
)

func sampleResult() model.DetectionResult {
	r := model.EmptyResult("الفلم الجميل")
	r.Corrections = append(r.Corrections, model.Correction{
		ID:          "c1",
		Kind:        model.KindOCRError,
		Original:    "الفلم",
		Replacement: "الفيلم",
		Span:        model.Span{Start: 0, End: 5},
		Confidence:  0.99,
		Status:      model.StatusPending,
	})
	r.Provenance.ModelUsed = "gpt-4o-mini"
	return r
}

func TestCacheKey(t *testing.T) {
	a := CacheKey("gpt-4o-mini", "نص")
	if !strings.HasPrefix(a, "majalla:v1:") {
		t.Errorf("Unexpected key prefix: %s", a)
	}
	if a != CacheKey("gpt-4o-mini", "نص") {
		t.Error("Expected key to be deterministic")
	}
	if a == CacheKey("gpt-4o", "نص") {
		t.Error("Expected model to be part of the key")
	}
	if CacheKey("ab", "c") == CacheKey("a", "bc") {
		t.Error("Expected model and text boundaries to be unambiguous")
	}
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	if _, ok := c.Get("k"); ok {
		t.Fatal("Expected miss on empty cache")
	}
	if err := c.Set("k", []byte(`{"a":1}`), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if v, ok := c.Get("k"); !ok || string(v) != `{"a":1}` {
		t.Errorf("Unexpected value %q, found=%v", v, ok)
	}
	if c.Len() != 1 {
		t.Errorf("Expected 1 entry, got %d", c.Len())
	}

	_ = c.Delete("k")
	if _, ok := c.Get("k"); ok {
		t.Error("Expected miss after delete")
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	_ = c.Set("k", []byte(`1`), 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Error("Expected entry to expire")
	}
}

func TestDiskCache(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)
	key := CacheKey("m", "نص")

	if err := c.Set(key, []byte(`{"a":1}`), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	v, ok := c.Get(key)
	if !ok || string(v) != `{"a":1}` {
		t.Errorf("Unexpected value %q, found=%v", v, ok)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 || strings.Contains(entries[0].Name(), ":") {
		t.Errorf("Unexpected cache files: %v", entries)
	}

	if err := c.Set(key, []byte("not json"), 0); err == nil {
		t.Error("Expected non-JSON value to be rejected")
	}

	if err := c.Delete(key); err != nil {
		t.Errorf("Delete failed: %v", err)
	}
	if err := c.Delete(key); err != nil {
		t.Errorf("Deleting a missing key should not fail: %v", err)
	}
}

func TestDiskCache_Expiry(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Hour)
	_ = c.Set("k", []byte(`1`), time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Error("Expected entry to expire")
	}
}

func TestLayeredCache_PromotesDiskHits(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	first := NewLayeredCache(time.Minute, dir, time.Hour)
	if err := first.Set("k", []byte(`"v"`), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// A fresh process only has the disk layer
	second := NewLayeredCache(time.Minute, dir, time.Hour)
	if v, ok := second.Get("k"); !ok || string(v) != `"v"` {
		t.Fatalf("Expected disk hit, got %q found=%v", v, ok)
	}
	if _, ok := second.memory.Get("k"); !ok {
		t.Error("Expected disk hit to be promoted to memory")
	}

	if err := second.Clear(); err != nil {
		t.Errorf("Clear failed: %v", err)
	}
	if _, ok := second.Get("k"); ok {
		t.Error("Expected miss after clear")
	}
}

func TestResultRoundTrip(t *testing.T) {
	c := New(model.CacheConfig{Enabled: true, MemoryTTL: time.Minute, DiskDir: t.TempDir(), DiskTTL: time.Hour})
	key := CacheKey("gpt-4o-mini", "الفلم الجميل")

	if _, ok := GetResult(c, key); ok {
		t.Fatal("Expected miss")
	}
	if err := PutResult(c, key, sampleResult()); err != nil {
		t.Fatalf("PutResult failed: %v", err)
	}
	got, ok := GetResult(c, key)
	if !ok {
		t.Fatal("Expected hit")
	}
	if len(got.Corrections) != 1 || got.Corrections[0].Replacement != "الفيلم" || got.Provenance.ModelUsed != "gpt-4o-mini" {
		t.Errorf("Unexpected result: %+v", got)
	}
}

func TestNew(t *testing.T) {
	if c := New(model.CacheConfig{Enabled: false}); c != nil {
		t.Error("Expected nil cache when disabled")
	}
	if _, ok := New(model.CacheConfig{Enabled: true, MemoryTTL: time.Minute}).(*MemoryCache); !ok {
		t.Error("Expected memory cache without disk dir")
	}
	if _, ok := New(model.CacheConfig{Enabled: true, DiskDir: t.TempDir()}).(*LayeredCache); !ok {
		t.Error("Expected layered cache with disk dir")
	}

	// Nil caches are inert
	if _, ok := GetResult(nil, "k"); ok {
		t.Error("Expected miss on nil cache")
	}
	if err := PutResult(nil, "k", sampleResult()); err != nil {
		t.Errorf("Expected nil cache put to be a no-op, got %v", err)
	}
}
