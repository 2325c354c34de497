package cache

import (
	"fmt"
	"testing"

	"github.com/jobseekerhq/harvest/models"
)

func TestKey_StableAndDistinct(t *testing.T) {
	a := Key("https://example.com/jobs/1")
	b := Key("https://example.com/jobs/1")
	c := Key("https://example.com/jobs/2")
	if a != b {
		t.Errorf("same URL produced different keys: %s vs %s", a, b)
	}
	if a == c {
		t.Error("different URLs produced the same key")
	}
}

func TestGetSet_RoundTrip(t *testing.T) {
	c := New(10)
	key := Key("https://example.com/jobs/1")

	if _, ok := c.Get(key, 60000); ok {
		t.Fatal("hit on an empty cache")
	}

	c.Set(key, &models.ScrapeResult{URL: "https://example.com/jobs/1", Success: true})
	got, ok := c.Get(key, 60000)
	if !ok {
		t.Fatal("miss right after Set")
	}
	if got.URL != "https://example.com/jobs/1" || !got.Success {
		t.Errorf("got %+v", got)
	}
}

func TestGet_ZeroMaxAgeBypasses(t *testing.T) {
	c := New(10)
	key := Key("https://example.com/jobs/1")
	c.Set(key, &models.ScrapeResult{Success: true})

	if _, ok := c.Get(key, 0); ok {
		t.Error("maxAge 0 must bypass the cache")
	}
	if _, ok := c.Get(key, -1); ok {
		t.Error("negative maxAge must bypass the cache")
	}
}

func TestSet_EvictsAtCapacity(t *testing.T) {
	c := New(3)
	for i := 0; i < 5; i++ {
		c.Set(Key(fmt.Sprintf("https://example.com/jobs/%d", i)), &models.ScrapeResult{Success: true})
	}
	if got := c.Len(); got != 3 {
		t.Errorf("Len() = %d, want 3", got)
	}
}
