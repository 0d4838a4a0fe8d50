// Copyright 2023 The imagecache authors.
// SPDX-License-Identifier: Apache-2.0

// Package cache implements the in-memory store of fetched images.
package cache

// Entry is a cached image: its bytes and the validator the remote server
// returned with them.  Entries are never modified after they are created.
type Entry struct {
	// Bytes contains the actual image.
	Bytes []byte

	// ETag returned from server when fetching image.  An empty string
	// means the server sent no validator.
	ETag string
}

// Cache stores image entries keyed by the image URL.  Implementations must
// be safe for concurrent use.
type Cache interface {
	// Get retrieves the cached Entry for the provided image URL.
	Get(url string) (entry Entry, ok bool)

	// Put caches the provided Entry, replacing any existing entry for url.
	Put(url string, entry Entry)
}
