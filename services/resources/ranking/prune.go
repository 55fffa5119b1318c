// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ranking deduplicates, prunes and scores retrieved resources.
package ranking

import (
	"cmp"
	"slices"
	"strings"

	"github.com/reykhambhaita/Solace-sub001/services/resources/datatypes"
)

// DefaultPruneLimit bounds how many resources reach the ranker.
const DefaultPruneLimit = 15

// Deduplicate collapses resources sharing a URL.
//
// # Description
//
// The URL-keyed index is explicitly ordered: a URL keeps the position at
// which it was first seen, and the record stored there is the last one seen.
// Arrival order is the deterministic engine order produced by the retriever,
// so for a URL returned by both the docs and general engines the general
// record wins. Resources with an empty URL have no identity and are dropped.
//
// Deduplicate is idempotent.
//
// # Examples
//
//	in := []Resource{{URL: "a", Title: "1"}, {URL: "b"}, {URL: "a", Title: "2"}}
//	Deduplicate(in) // [{URL: "a", Title: "2"}, {URL: "b"}]
func Deduplicate(resources []datatypes.Resource) []datatypes.Resource {
	out := make([]datatypes.Resource, 0, len(resources))
	position := make(map[string]int, len(resources))
	for _, r := range resources {
		key := strings.TrimSpace(r.URL)
		if key == "" {
			continue
		}
		if i, ok := position[key]; ok {
			out[i] = r
			continue
		}
		position[key] = len(out)
		out = append(out, r)
	}
	return out
}

// PruneForRanking pre-ranks resources and keeps at most limit of them.
//
// # Description
//
// The comparator is stable: documentation sorts strictly before everything
// else, then descending RawRelevance. Ties keep input order. The input
// slice is not modified.
//
// # Inputs
//
//   - resources: Deduplicated resources.
//   - limit: Cap. Values <= 0 use DefaultPruneLimit.
//
// # Outputs
//
//   - []datatypes.Resource: len <= limit. When len(resources) <= limit it
//     holds exactly the input records in pre-ranked order.
func PruneForRanking(resources []datatypes.Resource, limit int) []datatypes.Resource {
	if limit <= 0 {
		limit = DefaultPruneLimit
	}
	out := slices.Clone(resources)
	slices.SortStableFunc(out, func(a, b datatypes.Resource) int {
		if c := cmp.Compare(docTier(a), docTier(b)); c != 0 {
			return c
		}
		return cmp.Compare(b.RawRelevance, a.RawRelevance)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func docTier(r datatypes.Resource) int {
	if r.Type == datatypes.ResourceDocumentation {
		return 0
	}
	return 1
}
