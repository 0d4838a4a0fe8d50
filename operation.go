// Copyright 2023 The imagecache authors.
// SPDX-License-Identifier: Apache-2.0

package imagecache

import (
	"context"
)

type opState int

const (
	stateRequesting opState = iota
	stateSucceeded
	stateFailed
	stateCanceled
)

// Operation is a single image request started by Fetcher.Request.  It
// resolves exactly once: it either completes (Done is closed) with the
// image bytes or an error, or it is canceled (Aborted is closed) and
// produces nothing.
type Operation struct {
	url    string
	cancel context.CancelFunc

	done    chan struct{}
	aborted chan struct{}

	// state and the result fields are written by the owning Fetcher while
	// holding its lock, and only read by callers after done is closed.
	state opState
	bytes []byte
	err   error
	stale error
}

func newOperation(rawURL string, cancel context.CancelFunc) *Operation {
	return &Operation{
		url:     rawURL,
		cancel:  cancel,
		done:    make(chan struct{}),
		aborted: make(chan struct{}),
	}
}

// URL returns the image URL the operation was started for.
func (op *Operation) URL() string { return op.url }

// Done returns a channel that is closed when the operation completes,
// successfully or not.  It is never closed for a canceled operation.
func (op *Operation) Done() <-chan struct{} { return op.done }

// Aborted returns a channel that is closed if the operation is canceled,
// either explicitly or by a newer request for the same slot.
func (op *Operation) Aborted() <-chan struct{} { return op.aborted }

// Stale returns the transport error that caused a completed operation to
// fall back to previously cached bytes.  It returns nil if the operation is
// not done or delivered fresh bytes.
func (op *Operation) Stale() error {
	select {
	case <-op.done:
		return op.stale
	default:
		return nil
	}
}

// Wait blocks until the operation completes and returns its result.  If the
// operation is canceled Wait returns ErrCanceled, and if ctx is done first
// it returns ctx.Err().  Neither of those affect the operation itself.
func (op *Operation) Wait(ctx context.Context) ([]byte, error) {
	select {
	case <-op.done:
		return op.bytes, op.err
	case <-op.aborted:
		return nil, ErrCanceled
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// resolve completes the operation.  It reports false if the operation had
// already resolved or been canceled.
func (op *Operation) resolve(b []byte, stale, err error) bool {
	if op.state != stateRequesting {
		return false
	}
	if err != nil {
		op.state = stateFailed
	} else {
		op.state = stateSucceeded
	}
	op.bytes, op.stale, op.err = b, stale, err
	op.cancel()
	close(op.done)
	return true
}

// abort cancels the operation and its underlying HTTP request.  It reports
// false if the operation had already resolved or been canceled.
func (op *Operation) abort() bool {
	if op.state != stateRequesting {
		return false
	}
	op.state = stateCanceled
	op.cancel()
	close(op.aborted)
	return true
}
