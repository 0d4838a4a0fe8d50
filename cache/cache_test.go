// Copyright 2023 The imagecache authors.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"bytes"
	"fmt"
	"sync"
	"testing"

	"github.com/gregjones/httpcache"
)

func TestNopCache(t *testing.T) {
	NopCache.Put("foo", Entry{Bytes: []byte("data"), ETag: `"v"`})

	entry, ok := NopCache.Get("foo")
	if ok {
		t.Errorf("NopCache.Get returned ok = true, should always be false.")
	}
	if entry.Bytes != nil || entry.ETag != "" {
		t.Errorf("NopCache.Get returned non-empty entry: %#v", entry)
	}
}

// testCaches returns a fresh instance of each Cache implementation.
func testCaches() map[string]Cache {
	return map[string]Cache{
		"memory":          NewMemoryCache(),
		"httpcache":       NewHTTPCache(nil),
		"httpcache-given": NewHTTPCache(httpcache.NewMemoryCache()),
	}
}

func TestCache_GetPut(t *testing.T) {
	tests := []struct {
		name  string
		entry Entry
	}{
		{"bytes and etag", Entry{Bytes: []byte("B1"), ETag: `"v1"`}},
		{"weak etag", Entry{Bytes: []byte("B1"), ETag: `W/"v1"`}},
		{"no etag", Entry{Bytes: []byte("B1")}},
		{"binary body", Entry{Bytes: []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0}, ETag: `"png"`}},
		{"empty body", Entry{Bytes: []byte{}, ETag: `"empty"`}},
	}

	for name, c := range testCaches() {
		for _, tt := range tests {
			t.Run(name+"/"+tt.name, func(t *testing.T) {
				u := "https://img.example/" + tt.name
				if _, ok := c.Get(u); ok {
					t.Fatalf("Get(%q) before Put returned ok = true", u)
				}

				c.Put(u, tt.entry)
				got, ok := c.Get(u)
				if !ok {
					t.Fatalf("Get(%q) after Put returned ok = false", u)
				}
				if !bytes.Equal(got.Bytes, tt.entry.Bytes) {
					t.Errorf("Get(%q) returned bytes %q, want %q", u, got.Bytes, tt.entry.Bytes)
				}
				if got.ETag != tt.entry.ETag {
					t.Errorf("Get(%q) returned etag %q, want %q", u, got.ETag, tt.entry.ETag)
				}
			})
		}
	}
}

func TestCache_Overwrite(t *testing.T) {
	for name, c := range testCaches() {
		t.Run(name, func(t *testing.T) {
			u := "https://img.example/a.png"
			c.Put(u, Entry{Bytes: []byte("B1"), ETag: `"v1"`})
			c.Put(u, Entry{Bytes: []byte("B2")})

			got, ok := c.Get(u)
			if !ok {
				t.Fatalf("Get(%q) returned ok = false", u)
			}
			if string(got.Bytes) != "B2" || got.ETag != "" {
				t.Errorf("Get(%q) returned %q/%q, want last write B2 with no etag", u, got.Bytes, got.ETag)
			}
		})
	}
}

func TestMemoryCache_DeleteClear(t *testing.T) {
	c := NewMemoryCache()
	c.Put("a", Entry{Bytes: []byte("a")})
	c.Put("b", Entry{Bytes: []byte("b")})
	if got, want := c.Len(), 2; got != want {
		t.Fatalf("Len() returned %d, want %d", got, want)
	}

	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Errorf("Get(a) after Delete returned ok = true")
	}
	if _, ok := c.Get("b"); !ok {
		t.Errorf("Get(b) after deleting a returned ok = false")
	}

	c.Clear()
	if got := c.Len(); got != 0 {
		t.Errorf("Len() after Clear returned %d, want 0", got)
	}
}

func TestHTTPCache_Delete(t *testing.T) {
	c := NewHTTPCache(nil)
	c.Put("a", Entry{Bytes: []byte("a"), ETag: `"a"`})
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Errorf("Get(a) after Delete returned ok = true")
	}
}

func TestHTTPCache_Undecodable(t *testing.T) {
	backend := httpcache.NewMemoryCache()
	backend.Set("bad", []byte("not an http response"))

	c := NewHTTPCache(backend)
	if entry, ok := c.Get("bad"); ok {
		t.Errorf("Get(bad) returned %#v, want miss for undecodable value", entry)
	}
}

func TestHTTPCache_SharesBackend(t *testing.T) {
	backend := httpcache.NewMemoryCache()
	NewHTTPCache(backend).Put("a", Entry{Bytes: []byte("a"), ETag: `"a"`})

	got, ok := NewHTTPCache(backend).Get("a")
	if !ok || string(got.Bytes) != "a" || got.ETag != `"a"` {
		t.Errorf("Get(a) through second adapter returned %#v, %v", got, ok)
	}
}

func TestCache_Concurrency(t *testing.T) {
	for name, c := range testCaches() {
		t.Run(name, func(t *testing.T) {
			const goroutines = 10
			var wg sync.WaitGroup
			wg.Add(goroutines)

			for i := 0; i < goroutines; i++ {
				go func(id int) {
					defer wg.Done()
					u := "https://img.example/shared.png"
					entry := Entry{Bytes: []byte(fmt.Sprintf("data-%d", id)), ETag: fmt.Sprintf(`"%d"`, id)}
					c.Put(u, entry)
					c.Get(u)
				}(i)
			}
			wg.Wait()

			got, ok := c.Get("https://img.example/shared.png")
			if !ok {
				t.Fatal("expected an entry after concurrent writes")
			}
			if want := "data-" + got.ETag[1:len(got.ETag)-1]; string(got.Bytes) != want {
				t.Errorf("entry mixes writes: bytes %q with etag %q", got.Bytes, got.ETag)
			}
		})
	}
}
