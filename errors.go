// Copyright 2023 The imagecache authors.
// SPDX-License-Identifier: Apache-2.0

package imagecache

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidURL is matched by errors returned for image URLs that
	// cannot be fetched.  No request is made for such URLs.
	ErrInvalidURL = errors.New("invalid image URL")

	// ErrNotModified is matched when revalidating a cached image returns
	// 304 Not Modified.  The cached bytes are still current and were not
	// delivered again; see Fetcher.Cached.
	ErrNotModified = errors.New("image not modified")

	// ErrQuotaExceeded is matched when the remote server responds with
	// 402 Payment Required.
	ErrQuotaExceeded = errors.New("network usage quota exceeded")

	// ErrUnknownNetwork is matched by any other unexpected response status.
	ErrUnknownNetwork = errors.New("unknown network error")

	// ErrCanceled is returned by Operation.Wait when the operation was
	// canceled and will never produce a result.
	ErrCanceled = errors.New("image request canceled")
)

// URLError reports a malformed URL error.
type URLError struct {
	Message string
	URL     string
}

func (e *URLError) Error() string {
	return fmt.Sprintf("malformed URL %q: %s", e.URL, e.Message)
}

func (e *URLError) Is(target error) bool { return target == ErrInvalidURL }

// StatusError reports a remote response whose status code could not be
// used.
type StatusError struct {
	URL        string
	StatusCode int

	kind error
}

// newStatusError classifies code.  A 304 is only expected in reply to a
// conditional request; otherwise it is as unexpected as any other status.
func newStatusError(u string, code int, conditional bool) *StatusError {
	e := &StatusError{URL: u, StatusCode: code, kind: ErrUnknownNetwork}
	switch {
	case code == http.StatusNotModified && conditional:
		e.kind = ErrNotModified
	case code == http.StatusPaymentRequired:
		e.kind = ErrQuotaExceeded
	}
	return e
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote URL %q returned status: %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Unwrap returns the sentinel error describing the status: one of
// ErrNotModified, ErrQuotaExceeded or ErrUnknownNetwork.
func (e *StatusError) Unwrap() error {
	if e.kind == nil {
		return ErrUnknownNetwork
	}
	return e.kind
}

// TransportError reports a failure of the HTTP client to produce a
// response, or to read its body.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("error fetching remote image %q: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
