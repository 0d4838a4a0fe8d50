// Copyright 2023 The imagecache authors.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net/http"

	"github.com/gregjones/httpcache"
)

// HTTPCache stores entries in an httpcache.Cache.  Each entry is kept as a
// serialized HTTP response carrying the image as its body and the validator
// in its Etag header, which is the same format httpcache uses for its own
// cached responses.
type HTTPCache struct {
	backend httpcache.Cache
}

// NewHTTPCache returns a Cache backed by c.  If c is nil, a new
// httpcache.MemoryCache is used.
func NewHTTPCache(c httpcache.Cache) *HTTPCache {
	if c == nil {
		c = httpcache.NewMemoryCache()
	}
	return &HTTPCache{backend: c}
}

// Get returns the entry stored for u.  Stored values that cannot be decoded
// are treated as a miss.
func (c *HTTPCache) Get(u string) (Entry, bool) {
	b, ok := c.backend.Get(u)
	if !ok {
		return Entry{}, false
	}
	entry, err := decodeEntry(b)
	if err != nil {
		return Entry{}, false
	}
	return entry, true
}

// Put stores entry for u.
func (c *HTTPCache) Put(u string, entry Entry) {
	b, err := encodeEntry(entry)
	if err != nil {
		// leave the previous value in place rather than storing a partial entry
		return
	}
	c.backend.Set(u, b)
}

// Delete removes the entry stored for u.
func (c *HTTPCache) Delete(u string) {
	c.backend.Delete(u)
}

func encodeEntry(entry Entry) ([]byte, error) {
	resp := &http.Response{
		Status:        "200 OK",
		StatusCode:    http.StatusOK,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        make(http.Header),
		ContentLength: int64(len(entry.Bytes)),
		Body:          io.NopCloser(bytes.NewReader(entry.Bytes)),
	}
	if entry.ETag != "" {
		resp.Header.Set("Etag", entry.ETag)
	}

	buf := new(bytes.Buffer)
	if err := resp.Write(buf); err != nil {
		return nil, fmt.Errorf("encoding cache entry: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeEntry(b []byte) (Entry, error) {
	resp, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(b)), nil)
	if err != nil {
		return Entry{}, fmt.Errorf("decoding cache entry: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Entry{}, fmt.Errorf("reading cache entry body: %w", err)
	}

	return Entry{
		Bytes: body,
		ETag:  resp.Header.Get("Etag"),
	}, nil
}
