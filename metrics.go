// Copyright 2023 The imagecache authors.
// SPDX-License-Identifier: Apache-2.0

package imagecache

import (
	"github.com/prometheus/client_golang/prometheus"
)

// values of the result label on fetchResults
const (
	resultOK            = "ok"
	resultNotModified   = "not_modified"
	resultQuotaExceeded = "quota_exceeded"
	resultUnknownStatus = "unknown_status"
	resultTransport     = "transport_error"
	resultStale         = "stale"
	resultInvalidURL    = "invalid_url"
	resultCanceled      = "canceled"
)

var (
	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_cache_lookups_total",
			Help: "Number of image cache lookups, by hit or miss.",
		}, []string{"result"})
	fetchResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_fetch_results_total",
			Help: "Number of image requests, by how they ended.",
		}, []string{"result"})
	remoteImageFetchErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "remote_image_fetch_errors",
		Help: "Total image fetch failures",
	})
	remoteImageFetchSummary = prometheus.NewSummary(prometheus.SummaryOpts{
		Name: "remote_image_fetch_seconds",
		Help: "Time taken to fetch remote images in seconds.",
	})
)

func init() {
	prometheus.MustRegister(cacheLookups)
	prometheus.MustRegister(fetchResults)
	prometheus.MustRegister(remoteImageFetchErrors)
	prometheus.MustRegister(remoteImageFetchSummary)
}
