// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package retrieval

import (
	"net/url"
	"strings"

	"github.com/reykhambhaita/Solace-sub001/services/resources/datatypes"
)

var videoHosts = []string{"youtube.com", "youtu.be", "vimeo.com"}

var qaHosts = []string{"stackoverflow.com", "stackexchange.com", "superuser.com", "serverfault.com"}

var docsHosts = []string{"readthedocs.io", "pkg.go.dev", "docs.rs", "developer.mozilla.org"}

var docsPathMarkers = []string{"/docs/", "/doc/", "/documentation", "/reference/", "/api/", "/manual/"}

// ClassifyURL infers a resource type from URL shape.
//
// Examples:
//
//	ClassifyURL("https://www.youtube.com/watch?v=x")          // video
//	ClassifyURL("https://stackoverflow.com/questions/1/x")    // qa
//	ClassifyURL("https://docs.python.org/3/library/re.html")  // documentation
//	ClassifyURL("https://blog.example.com/post")              // article
func ClassifyURL(raw string) datatypes.ResourceType {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return datatypes.ResourceArticle
	}
	host := strings.ToLower(strings.TrimPrefix(u.Hostname(), "www."))
	path := strings.ToLower(u.Path)

	switch {
	case hostMatches(host, videoHosts):
		return datatypes.ResourceVideo
	case hostMatches(host, qaHosts) || strings.Contains(path, "/questions/"):
		return datatypes.ResourceQA
	case strings.HasPrefix(host, "docs.") || strings.HasPrefix(host, "developer.") ||
		hostMatches(host, docsHosts) || hasAny(path, docsPathMarkers):
		return datatypes.ResourceDocumentation
	default:
		return datatypes.ResourceArticle
	}
}

func hostMatches(host string, suffixes []string) bool {
	for _, s := range suffixes {
		if host == s || strings.HasSuffix(host, "."+s) {
			return true
		}
	}
	return false
}

func hasAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
