// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package queries

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reykhambhaita/Solace-sub001/services/resources/datatypes"
)

func anchor(kind datatypes.AnchorKind, symbol string, weight float64) datatypes.Anchor {
	return datatypes.Anchor{Kind: kind, Symbol: symbol, Weight: weight, RetrievalReady: kind != datatypes.AnchorConcept}
}

func reactSet() datatypes.AnchorSet {
	return datatypes.AnchorSet{
		Mandatory: []datatypes.Anchor{
			anchor(datatypes.AnchorFrameworkAPI, "react", 1.0),
			anchor(datatypes.AnchorOfficialDocs, "react official documentation", 0.95),
		},
		Optional: []datatypes.Anchor{
			anchor(datatypes.AnchorConcept, "closures", 0.65),
			anchor(datatypes.AnchorTroubleshooting, "typescript error handling best practices", 0.75),
		},
		Metadata: datatypes.AnchorMetadata{Language: "typescript", HasConcreteSymbols: true, ConcreteCount: 1},
	}
}

func TestRouteFor_EveryKindIsRoutedOrRejected(t *testing.T) {
	for _, kind := range datatypes.AllAnchorKinds() {
		t.Run(kind.String(), func(t *testing.T) {
			_, err := RouteFor(kind)
			if kind == datatypes.AnchorTrivial {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestRouteFor_UnknownKind(t *testing.T) {
	_, err := RouteFor(datatypes.AnchorKind(999))
	assert.Error(t, err)
}

func TestRouteFor_Table(t *testing.T) {
	tests := []struct {
		kind   datatypes.AnchorKind
		intent datatypes.Intent
		engine datatypes.SearchEngine
	}{
		{datatypes.AnchorOfficialDocs, datatypes.IntentDocumentation, datatypes.EngineDocs},
		{datatypes.AnchorFallback, datatypes.IntentDocumentation, datatypes.EngineDocs},
		{datatypes.AnchorFrameworkAPI, datatypes.IntentDocumentation, datatypes.EngineGeneral},
		{datatypes.AnchorLibraryAPI, datatypes.IntentDocumentation, datatypes.EngineGeneral},
		{datatypes.AnchorConcept, datatypes.IntentTutorial, datatypes.EngineGeneral},
		{datatypes.AnchorGuide, datatypes.IntentTutorial, datatypes.EngineGeneral},
		{datatypes.AnchorTroubleshooting, datatypes.IntentTroubleshooting, datatypes.EngineQA},
		{datatypes.AnchorConfigSymbol, datatypes.IntentGeneral, datatypes.EngineGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			route, err := RouteFor(tt.kind)
			require.NoError(t, err)
			assert.Equal(t, tt.intent, route.Intent)
			assert.Equal(t, tt.engine, route.Engine)
		})
	}
}

func TestBuildBaseline_EmptyMandatoryIsFatal(t *testing.T) {
	set := datatypes.AnchorSet{
		Optional: []datatypes.Anchor{anchor(datatypes.AnchorConcept, "recursion", 0.65)},
	}

	qs, _, err := BuildBaseline(set, DefaultMaxQueries)
	assert.True(t, errors.Is(err, ErrNoMandatoryAnchors))
	assert.Empty(t, qs)
}

func TestBuildBaseline_ReactScenario(t *testing.T) {
	qs, meta, err := BuildBaseline(reactSet(), DefaultMaxQueries)
	require.NoError(t, err)

	assert.False(t, meta.ExpansionDisabled)
	assert.Equal(t, 2, meta.MandatoryCount)
	assert.Equal(t, 2, meta.OptionalConsumed)
	assert.Equal(t, []string{"react"}, meta.Symbols)

	var primaries []string
	docsRouted := 0
	for _, q := range qs {
		primaries = append(primaries, q.Primary)
		assert.Equal(t, datatypes.QueryFromBaseline, q.Source)
		if q.SearchEngine == datatypes.EngineDocs {
			docsRouted++
		}
	}
	assert.Equal(t, []string{
		"react API reference",
		"react official documentation",
		"typescript closures tutorial",
		"typescript error handling best practices",
		"react typescript",
	}, primaries)
	assert.GreaterOrEqual(t, docsRouted, 1)

	repo := qs[len(qs)-1]
	assert.Equal(t, datatypes.EngineCode, repo.SearchEngine)
	assert.Equal(t, datatypes.IntentRepository, repo.Intent)
	assert.InDelta(t, 0.8, repo.Weight, 1e-9)
}

func TestBuildBaseline_LoneGenericAnchorDisablesExpansion(t *testing.T) {
	set := datatypes.AnchorSet{
		Mandatory: []datatypes.Anchor{anchor(datatypes.AnchorFallback, "rust official documentation", 1.0)},
		Metadata:  datatypes.AnchorMetadata{Language: "rust"},
	}

	qs, meta, err := BuildBaseline(set, DefaultMaxQueries)
	require.NoError(t, err)
	assert.True(t, meta.ExpansionDisabled)
	require.Len(t, qs, 1)
	assert.Equal(t, "rust official documentation", qs[0].Primary)
	assert.Equal(t, datatypes.EngineDocs, qs[0].SearchEngine)
}

func TestBuildBaseline_CapsAtMax(t *testing.T) {
	set := datatypes.AnchorSet{Metadata: datatypes.AnchorMetadata{Language: "go", HasConcreteSymbols: true}}
	for i := 0; i < 10; i++ {
		set.Mandatory = append(set.Mandatory, anchor(datatypes.AnchorLibraryAPI, string(rune('a'+i)), 0.95))
	}
	for i := 0; i < 10; i++ {
		set.Optional = append(set.Optional, anchor(datatypes.AnchorConcept, "concept", 0.6))
	}

	qs, meta, err := BuildBaseline(set, DefaultMaxQueries)
	require.NoError(t, err)
	assert.Len(t, qs, DefaultMaxQueries)
	assert.True(t, meta.Truncated)
	assert.Equal(t, 5, meta.OptionalConsumed)
	for _, q := range qs {
		assert.NotEqual(t, datatypes.EngineCode, q.SearchEngine, "repository queries only use spare budget")
	}
}

func TestBuildBaseline_MandatoryBeforeOptional(t *testing.T) {
	set := reactSet()
	qs, _, err := BuildBaseline(set, 3)
	require.NoError(t, err)
	require.Len(t, qs, 3)
	assert.Equal(t, "react API reference", qs[0].Primary)
	assert.Equal(t, "react official documentation", qs[1].Primary)
	assert.Equal(t, "typescript closures tutorial", qs[2].Primary)
}

func TestBuildBaseline_UnroutableKindIsError(t *testing.T) {
	set := datatypes.AnchorSet{
		Mandatory: []datatypes.Anchor{{Kind: datatypes.AnchorKind(42), Symbol: "x"}},
	}
	_, _, err := BuildBaseline(set, DefaultMaxQueries)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNoMandatoryAnchors))
}

func TestBuildBaseline_PhrasesByKind(t *testing.T) {
	set := datatypes.AnchorSet{
		Mandatory: []datatypes.Anchor{anchor(datatypes.AnchorLibraryAPI, "pandas", 0.95)},
		Optional:  []datatypes.Anchor{anchor(datatypes.AnchorConfigSymbol, "timeout", 0.7)},
		Metadata:  datatypes.AnchorMetadata{Language: "python", HasConcreteSymbols: true},
	}

	qs, meta, err := BuildBaseline(set, DefaultMaxQueries)
	require.NoError(t, err)
	require.Len(t, qs, 3)
	assert.Equal(t, "pandas documentation", qs[0].Primary)
	assert.Equal(t, "python timeout configuration", qs[1].Primary)
	assert.Equal(t, datatypes.IntentGeneral, qs[1].Intent)
	assert.Equal(t, "pandas python", qs[2].Primary)
	assert.Equal(t, []string{"pandas", "timeout"}, meta.Symbols)
}
