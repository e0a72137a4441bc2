// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for papersearch: the
// normalized Paper record, the snapshot written after each search, download
// outcomes, and configuration.
package types

import "time"

// SearchResultSet is a point-in-time snapshot of one search. It is created
// when results are fetched, written once, and only read afterwards.
type SearchResultSet struct {
	// Query is the Scopus query string that produced the papers.
	Query string `json:"query" yaml:"query"`

	// FetchedAt is when the search ran.
	FetchedAt time.Time `json:"fetched_at" yaml:"fetched_at"`

	// Count is the number of papers in the snapshot.
	Count int `json:"count" yaml:"count"`

	// Papers holds the results in provider order.
	Papers []Paper `json:"papers" yaml:"papers"`
}
