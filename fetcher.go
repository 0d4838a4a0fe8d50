// Copyright 2023 The imagecache authors.
// SPDX-License-Identifier: Apache-2.0

// Package imagecache fetches remote images on behalf of display slots,
// keeping an in-memory cache that is revalidated with conditional requests.
//
// A Fetcher tracks at most one in-flight request per slot.  A slot is any
// comparable value identifying the consumer of an image, such as a widget
// or a view ID.  Starting a new request for a slot cancels the previous
// one, so slots that are reused for a different image never receive a
// stale result.
package imagecache // import "willnorris.com/go/imagecache"

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"
	"willnorris.com/go/imagecache/cache"
)

// Fetcher requests images for slots of type S.
//
// The zero value is not usable; construct Fetchers with New.  A Fetcher is
// safe for concurrent use and is meant to be created once and shared.
type Fetcher[S comparable] struct {
	Client *http.Client // client used to fetch remote URLs
	Cache  cache.Cache  // cache used to store fetched images

	// Logger receives debug and warning messages.  If nil, nothing is
	// logged.
	Logger *zap.Logger

	// UserAgent, if set, is sent in the User-Agent header of remote
	// requests.
	UserAgent string

	mu       sync.Mutex
	inflight map[S]*Operation
	wg       sync.WaitGroup
}

// New constructs a new Fetcher.  The provided http RoundTripper will be
// used to fetch remote URLs.  If nil is provided, DefaultTransport will be
// used.  If c is nil, a new in-memory cache is used.
//
// Timeouts are the responsibility of the transport or of Client.Timeout;
// the Fetcher imposes none of its own.
func New[S comparable](transport http.RoundTripper, c cache.Cache) *Fetcher[S] {
	if transport == nil {
		transport = DefaultTransport()
	}
	if c == nil {
		c = cache.NewMemoryCache()
	}

	return &Fetcher[S]{
		Client:   &http.Client{Transport: transport},
		Cache:    c,
		Logger:   zap.NewNop(),
		inflight: make(map[S]*Operation),
	}
}

// Request starts fetching the image at rawURL for slot, canceling any
// request still in flight for the same slot.
//
// If rawURL has a cached entry, the request is conditional on the cached
// ETag.  A 304 response completes the operation with ErrNotModified and the
// caller keeps showing the bytes it already has.  If the remote server
// cannot be reached at all, the operation completes successfully with the
// cached bytes and Stale reports the transport error.
//
// The cache is only updated by 2xx responses of operations that were not
// canceled.
func (f *Fetcher[S]) Request(slot S, rawURL string) *Operation {
	ctx, cancel := context.WithCancel(context.Background())
	op := newOperation(rawURL, cancel)

	f.mu.Lock()
	if prev, ok := f.inflight[slot]; ok {
		f.abortLocked(slot, prev)
	}
	if f.inflight == nil {
		f.inflight = make(map[S]*Operation)
	}
	f.inflight[slot] = op
	f.mu.Unlock()

	u, err := parseURL(rawURL)
	if err != nil {
		f.logger().Warn("invalid image URL", zap.String("url", rawURL), zap.Error(err))
		f.finish(slot, op, nil, nil, nil, err, resultInvalidURL)
		return op
	}

	entry, hit := f.cache().Get(rawURL)
	if hit {
		cacheLookups.WithLabelValues("hit").Inc()
	} else {
		cacheLookups.WithLabelValues("miss").Inc()
	}

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		f.fetch(ctx, slot, op, u, entry, hit)
	}()

	return op
}

// Cancel cancels the request in flight for slot, if any.  The canceled
// operation never completes and does not modify the cache.
func (f *Fetcher[S]) Cancel(slot S) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if op, ok := f.inflight[slot]; ok {
		f.abortLocked(slot, op)
	}
}

// CancelAll cancels every request in flight.
func (f *Fetcher[S]) CancelAll() {
	f.mu.Lock()
	defer f.mu.Unlock()

	for slot, op := range f.inflight {
		f.abortLocked(slot, op)
	}
}

// Close cancels every request in flight and waits for their fetches to
// return.  Request must not be called concurrently with or after Close.
func (f *Fetcher[S]) Close() {
	f.CancelAll()
	f.wg.Wait()
}

// Cached returns the cached bytes for rawURL, if any.  This is typically
// used after an operation fails with ErrNotModified.
func (f *Fetcher[S]) Cached(rawURL string) ([]byte, bool) {
	entry, ok := f.cache().Get(rawURL)
	return entry.Bytes, ok
}

// abortLocked cancels op and removes it from the in-flight registry.  f.mu
// must be held.
func (f *Fetcher[S]) abortLocked(slot S, op *Operation) {
	if f.inflight[slot] == op {
		delete(f.inflight, slot)
	}
	if op.abort() {
		fetchResults.WithLabelValues(resultCanceled).Inc()
		f.logger().Debug("image request canceled", zap.Any("slot", slot), zap.String("url", op.url))
	}
}

// finish resolves op unless it has been canceled.  commit, if non-nil, runs
// under the same lock so that a canceled operation can never write to the
// cache.
func (f *Fetcher[S]) finish(slot S, op *Operation, commit func(), b []byte, stale, err error, result string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if op.state != stateRequesting {
		return
	}
	if commit != nil {
		commit()
	}
	if f.inflight[slot] == op {
		delete(f.inflight, slot)
	}
	op.resolve(b, stale, err)
	fetchResults.WithLabelValues(result).Inc()
}

func (f *Fetcher[S]) fetch(ctx context.Context, slot S, op *Operation, u *url.URL, cached cache.Entry, hit bool) {
	start := time.Now()
	b, etag, err := f.fetchRemoteImage(ctx, op.url, u, cached, hit)
	remoteImageFetchSummary.Observe(time.Since(start).Seconds())

	if ctx.Err() != nil {
		// canceled while in flight
		return
	}

	if err == nil {
		entry := cache.Entry{Bytes: b, ETag: etag}
		f.finish(slot, op, func() { f.cache().Put(op.url, entry) }, b, nil, nil, resultOK)
		return
	}

	remoteImageFetchErrors.Inc()

	var terr *TransportError
	if errors.As(err, &terr) && hit {
		f.logger().Warn("error fetching remote image, serving cached copy",
			zap.String("url", op.url), zap.Error(err))
		f.finish(slot, op, nil, cached.Bytes, err, nil, resultStale)
		return
	}

	f.logger().Warn("error fetching remote image", zap.String("url", op.url), zap.Error(err))
	f.finish(slot, op, nil, nil, nil, err, resultLabel(err))
}

// fetchRemoteImage performs a single GET for u.  If revalidating, the
// request carries the cached ETag in If-None-Match.  It returns the body
// and ETag of a 2xx response, a *StatusError for any other status, or a
// *TransportError.
func (f *Fetcher[S]) fetchRemoteImage(ctx context.Context, rawURL string, u *url.URL, cached cache.Entry, revalidating bool) ([]byte, string, error) {
	f.logger().Debug("fetching remote image",
		zap.String("url", rawURL), zap.Bool("cached", revalidating), zap.String("etag", cached.ETag))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, "", &TransportError{URL: rawURL, Err: err}
	}
	if revalidating && cached.ETag != "" {
		req.Header.Set("If-None-Match", cached.ETag)
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}

	resp, err := f.client().Do(req)
	if err != nil {
		return nil, "", &TransportError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.StatusCode == http.StatusNotModified {
			f.logger().Debug("remote image not modified (304 response)", zap.String("url", rawURL))
		}
		return nil, "", newStatusError(rawURL, resp.StatusCode, revalidating)
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", &TransportError{URL: rawURL, Err: fmt.Errorf("reading response body: %w", err)}
	}

	return b, resp.Header.Get("Etag"), nil
}

func (f *Fetcher[S]) client() *http.Client {
	if f.Client == nil {
		return http.DefaultClient
	}
	return f.Client
}

func (f *Fetcher[S]) cache() cache.Cache {
	if f.Cache == nil {
		return cache.NopCache
	}
	return f.Cache
}

func (f *Fetcher[S]) logger() *zap.Logger {
	if f.Logger == nil {
		return zap.NewNop()
	}
	return f.Logger
}

// parseURL validates the remote image URL.
func parseURL(rawURL string) (*url.URL, error) {
	if rawURL == "" {
		return nil, &URLError{"empty URL", rawURL}
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &URLError{fmt.Sprintf("unable to parse remote URL: %v", err), rawURL}
	}

	if !u.IsAbs() {
		return nil, &URLError{"must provide absolute remote URL", rawURL}
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, &URLError{"remote URL must have http or https scheme", rawURL}
	}

	if u.Host == "" {
		return nil, &URLError{"remote URL must include a host", rawURL}
	}

	return u, nil
}

// resultLabel returns the fetchResults label describing err.
func resultLabel(err error) string {
	switch {
	case errors.Is(err, ErrNotModified):
		return resultNotModified
	case errors.Is(err, ErrQuotaExceeded):
		return resultQuotaExceeded
	case errors.Is(err, ErrInvalidURL):
		return resultInvalidURL
	case errors.As(err, new(*TransportError)):
		return resultTransport
	default:
		return resultUnknownStatus
	}
}
