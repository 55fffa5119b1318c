// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package queries turns an AnchorSet into engine-routed search queries.
//
// # Description
//
// BuildBaseline is deterministic and always succeeds when at least one
// mandatory anchor exists. Expander is an optional model-backed layer on top
// of the baseline that may only add refinements; it never removes or rewrites
// a baseline query.
package queries

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/reykhambhaita/Solace-sub001/services/resources/datatypes"
)

// DefaultMaxQueries bounds the number of queries per request, expansion
// included.
const DefaultMaxQueries = 15

// repositoryWeightFactor scales an anchor weight for its code-engine query.
const repositoryWeightFactor = 0.8

// ErrNoMandatoryAnchors is returned when a non short-circuited AnchorSet has
// nothing to search for.
var ErrNoMandatoryAnchors = errors.New("anchor set has no mandatory anchors")

// Route is the resolved destination of an anchor.
type Route struct {
	Intent      datatypes.Intent
	ContentType datatypes.ContentType
	Engine      datatypes.SearchEngine
}

// RouteFor resolves the routing for an anchor kind.
//
// # Description
//
// The switch is exhaustive over datatypes.AllAnchorKinds except for
// AnchorTrivial, which never reaches query synthesis. Any other value is an
// error rather than a silent default.
//
// # Inputs
//
//   - kind: Anchor kind to route.
//
// # Outputs
//
//   - Route: Intent, content type and engine.
//   - error: Non-nil for AnchorTrivial or an unknown kind.
func RouteFor(kind datatypes.AnchorKind) (Route, error) {
	switch kind {
	case datatypes.AnchorOfficialDocs, datatypes.AnchorFallback:
		return Route{datatypes.IntentDocumentation, datatypes.ContentDocumentation, datatypes.EngineDocs}, nil
	case datatypes.AnchorFrameworkAPI, datatypes.AnchorLibraryAPI:
		return Route{datatypes.IntentDocumentation, datatypes.ContentDocumentation, datatypes.EngineGeneral}, nil
	case datatypes.AnchorConcept, datatypes.AnchorGuide:
		return Route{datatypes.IntentTutorial, datatypes.ContentTutorial, datatypes.EngineGeneral}, nil
	case datatypes.AnchorTroubleshooting:
		return Route{datatypes.IntentTroubleshooting, datatypes.ContentTroubleshooting, datatypes.EngineQA}, nil
	case datatypes.AnchorConfigSymbol:
		return Route{datatypes.IntentGeneral, datatypes.ContentGeneral, datatypes.EngineGeneral}, nil
	case datatypes.AnchorTrivial:
		return Route{}, fmt.Errorf("trivial anchors are not routable")
	default:
		return Route{}, fmt.Errorf("unknown anchor kind %d", int(kind))
	}
}

// BuildBaseline synthesizes the guaranteed query list for an AnchorSet.
//
// # Description
//
// Mandatory anchors are consumed first, then optional anchors, until maxQueries
// queries exist. Remaining budget is spent on one repository query per
// retrieval-ready library or framework anchor, routed to the code engine.
//
// A lone generic mandatory anchor with no concrete symbols disables
// expansion: there is nothing specific enough for a model to refine.
//
// # Inputs
//
//   - set: Output of the anchor extractor. Must not be short-circuited.
//   - maxQueries: Query cap. Values <= 0 use DefaultMaxQueries.
//
// # Outputs
//
//   - []datatypes.Query: At least one query on success.
//   - datatypes.QueryMetadata: Expansion gate and accounting.
//   - error: ErrNoMandatoryAnchors, or a routing error for an unknown kind.
//
// # Examples
//
//	qs, meta, err := queries.BuildBaseline(set, queries.DefaultMaxQueries)
//	if errors.Is(err, queries.ErrNoMandatoryAnchors) {
//	    // fatal for this request
//	}
func BuildBaseline(set datatypes.AnchorSet, maxQueries int) ([]datatypes.Query, datatypes.QueryMetadata, error) {
	if maxQueries <= 0 {
		maxQueries = DefaultMaxQueries
	}
	meta := datatypes.QueryMetadata{
		HasConcreteSymbols: set.Metadata.HasConcreteSymbols,
		MandatoryCount:     len(set.Mandatory),
		Symbols:            concreteSymbols(set),
	}
	if len(set.Mandatory) == 0 {
		return nil, meta, ErrNoMandatoryAnchors
	}
	if len(set.Mandatory) == 1 && !set.Metadata.HasConcreteSymbols {
		meta.ExpansionDisabled = true
	}

	lang := set.Metadata.Language
	out := make([]datatypes.Query, 0, maxQueries)

	for _, a := range set.Mandatory {
		if len(out) >= maxQueries {
			meta.Truncated = true
			break
		}
		q, err := anchorQuery(a, lang)
		if err != nil {
			return nil, meta, err
		}
		out = append(out, q)
	}

	for _, a := range set.Optional {
		if len(out) >= maxQueries {
			meta.Truncated = true
			break
		}
		q, err := anchorQuery(a, lang)
		if err != nil {
			return nil, meta, err
		}
		out = append(out, q)
		meta.OptionalConsumed++
	}

	for _, a := range set.Mandatory {
		if !isRepositoryCandidate(a) {
			continue
		}
		if len(out) >= maxQueries {
			break
		}
		out = append(out, datatypes.Query{
			Primary:      a.Symbol + " " + lang,
			Intent:       datatypes.IntentRepository,
			Weight:       a.Weight * repositoryWeightFactor,
			Source:       datatypes.QueryFromBaseline,
			ContentType:  datatypes.ContentRepository,
			SearchEngine: datatypes.EngineCode,
		})
	}

	slog.Debug("Built baseline queries",
		"queries", len(out),
		"mandatory", meta.MandatoryCount,
		"optional_consumed", meta.OptionalConsumed,
		"expansion_disabled", meta.ExpansionDisabled,
		"truncated", meta.Truncated)
	return out, meta, nil
}

func anchorQuery(a datatypes.Anchor, lang string) (datatypes.Query, error) {
	route, err := RouteFor(a.Kind)
	if err != nil {
		return datatypes.Query{}, fmt.Errorf("route anchor %q: %w", a.Symbol, err)
	}
	return datatypes.Query{
		Primary:      phrase(a, lang),
		Intent:       route.Intent,
		Weight:       a.Weight,
		Source:       datatypes.QueryFromBaseline,
		ContentType:  route.ContentType,
		SearchEngine: route.Engine,
	}, nil
}

// phrase renders the search text for an anchor. Derived anchors already
// carry a full phrase.
func phrase(a datatypes.Anchor, lang string) string {
	switch a.Kind {
	case datatypes.AnchorLibraryAPI:
		return a.Symbol + " documentation"
	case datatypes.AnchorFrameworkAPI:
		return a.Symbol + " API reference"
	case datatypes.AnchorConfigSymbol:
		return strings.TrimSpace(lang + " " + a.Symbol + " configuration")
	case datatypes.AnchorConcept:
		return strings.TrimSpace(lang + " " + a.Symbol + " tutorial")
	default:
		return a.Symbol
	}
}

func isRepositoryCandidate(a datatypes.Anchor) bool {
	if !a.RetrievalReady {
		return false
	}
	return a.Kind == datatypes.AnchorLibraryAPI || a.Kind == datatypes.AnchorFrameworkAPI
}

func concreteSymbols(set datatypes.AnchorSet) []string {
	var out []string
	for _, group := range [][]datatypes.Anchor{set.Mandatory, set.Optional} {
		for _, a := range group {
			if a.Kind.IsConcrete() {
				out = append(out, a.Symbol)
			}
		}
	}
	return out
}
