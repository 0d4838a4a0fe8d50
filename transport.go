// Copyright 2023 The imagecache authors.
// SPDX-License-Identifier: Apache-2.0

package imagecache

import (
	"net/http"

	aia "github.com/fcjr/aia-transport-go"
)

// DefaultTransport returns the http.RoundTripper used by New when no
// transport is provided.  It completes certificate chains that are missing
// intermediates by following the Authority Information Access extension,
// which image hosts serving incomplete chains commonly need.  If that
// transport cannot be built, http.DefaultTransport is returned.
func DefaultTransport() http.RoundTripper {
	tr, err := aia.NewTransport()
	if err != nil {
		return http.DefaultTransport
	}
	return tr
}
