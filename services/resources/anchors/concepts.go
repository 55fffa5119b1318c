// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package anchors

import "regexp"

// concept is one entry of the technical vocabulary scanned in review prose.
type concept struct {
	term    string
	weight  float64
	pattern *regexp.Regexp
}

// coreConceptWeight applies to concepts that usually dominate how code must
// be understood. Everything else gets peripheralConceptWeight.
const (
	coreConceptWeight       = 0.65
	peripheralConceptWeight = 0.6
)

// conceptVocabulary is scanned in order; earlier entries win the cap.
var conceptVocabulary = []concept{
	{"recursion", coreConceptWeight, regexp.MustCompile(`(?i)\brecursi(on|ve|vely)\b`)},
	{"memoization", coreConceptWeight, regexp.MustCompile(`(?i)\bmemoi[sz](e|ed|es|ing|ation)\b`)},
	{"dynamic programming", coreConceptWeight, regexp.MustCompile(`(?i)\bdynamic programming\b`)},
	{"concurrency", coreConceptWeight, regexp.MustCompile(`(?i)\b(concurren(t|cy)|parallel(ism)?|multithread(ed|ing)?|threads?)\b`)},
	{"mutex locking", coreConceptWeight, regexp.MustCompile(`(?i)\b(mutex(es)?|semaphores?|locking)\b`)},
	{"race conditions", coreConceptWeight, regexp.MustCompile(`(?i)\brace conditions?\b`)},
	{"async await", coreConceptWeight, regexp.MustCompile(`(?i)\b(async/await|await|promises?|futures?|coroutines?)\b`)},
	{"closures", peripheralConceptWeight, regexp.MustCompile(`(?i)\bclosures?\b`)},
	{"higher-order functions", peripheralConceptWeight, regexp.MustCompile(`(?i)\bhigher[- ]order functions?\b`)},
	{"immutability", peripheralConceptWeight, regexp.MustCompile(`(?i)\bimmutab(le|ility)\b`)},
	{"generators", peripheralConceptWeight, regexp.MustCompile(`(?i)\b(generators?|iterators?|yield)\b`)},
	{"event loop", peripheralConceptWeight, regexp.MustCompile(`(?i)\bevent loop\b`)},
	{"time complexity", peripheralConceptWeight, regexp.MustCompile(`(?i)\b(big[- ]o|o\([^)]*\)|time complexity)`)},
	{"hash maps", peripheralConceptWeight, regexp.MustCompile(`(?i)\b(hash ?maps?|hash tables?|dictionar(y|ies))\b`)},
	{"binary search", peripheralConceptWeight, regexp.MustCompile(`(?i)\bbinary search\b`)},
	{"sorting algorithms", peripheralConceptWeight, regexp.MustCompile(`(?i)\b(sort(ing|ed)?|quicksort|merge ?sort)\b`)},
	{"regular expressions", peripheralConceptWeight, regexp.MustCompile(`(?i)\b(regex(es|p)?|regular expressions?)\b`)},
	{"decorators", peripheralConceptWeight, regexp.MustCompile(`(?i)\bdecorators?\b`)},
	{"generics", peripheralConceptWeight, regexp.MustCompile(`(?i)\bgenerics?\b`)},
	{"pattern matching", peripheralConceptWeight, regexp.MustCompile(`(?i)\bpattern matching\b`)},
	{"side effects", peripheralConceptWeight, regexp.MustCompile(`(?i)\bside[- ]effects?\b`)},
}

// matchConcepts returns the vocabulary entries found in text, in vocabulary
// order.
func matchConcepts(text string) []concept {
	var hits []concept
	for _, c := range conceptVocabulary {
		if c.pattern.MatchString(text) {
			hits = append(hits, c)
		}
	}
	return hits
}
