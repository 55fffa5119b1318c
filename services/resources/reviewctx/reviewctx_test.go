// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package reviewctx

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reykhambhaita/Solace-sub001/services/resources/datatypes"
)

func TestDefaultBuilder_UsesUserIntent(t *testing.T) {
	in := Input{
		CodeContext: datatypes.CodeContext{Language: "go"},
		UserIntent:  "  learn goroutine pools  ",
		Review:      datatypes.ReviewResponse{Summary: "A worker pool."},
		Anchors: datatypes.AnchorSet{
			Mandatory: []datatypes.Anchor{{Kind: datatypes.AnchorLibraryAPI, Symbol: "errgroup"}},
			Optional:  []datatypes.Anchor{{Kind: datatypes.AnchorTroubleshooting, Symbol: "go error handling best practices"}},
			Metadata:  datatypes.AnchorMetadata{Language: "go"},
		},
	}

	got, err := DefaultBuilder{}.Build(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "learn goroutine pools", got.LearningGoal)
	assert.Equal(t, []string{"official documentation", "troubleshooting"}, got.ContentPriorities)
	assert.Equal(t, "A worker pool.", got.Narrative)
}

func TestFallback_DerivesGoalFromPurpose(t *testing.T) {
	got := Fallback(Input{
		CodeContext: datatypes.CodeContext{Language: "python"},
		Review:      datatypes.ReviewResponse{Purpose: "Parses CSV rows"},
	})

	assert.Equal(t, "Understand python code that parses CSV rows", got.LearningGoal)
	assert.Equal(t, []string{"official documentation"}, got.ContentPriorities)
	assert.Equal(t, "Parses CSV rows", got.Narrative)
}

func TestFallback_LowersMultiByteFirstRune(t *testing.T) {
	tests := []struct {
		name    string
		purpose string
		want    string
	}{
		{"latin accent", "Éliminer les doublons", "Understand python code that éliminer les doublons"},
		{"greek", "Σύνοψη δεδομένων", "Understand python code that σύνοψη δεδομένων"},
		{"ascii", "Sorts a list", "Understand python code that sorts a list"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Fallback(Input{
				CodeContext: datatypes.CodeContext{Language: "python"},
				Review:      datatypes.ReviewResponse{Purpose: tt.purpose},
			})
			assert.True(t, utf8.ValidString(got.LearningGoal))
			assert.Equal(t, tt.want, got.LearningGoal)
		})
	}
}

func TestFallback_TruncatesNarrative(t *testing.T) {
	got := Fallback(Input{Review: datatypes.ReviewResponse{Summary: strings.Repeat("é", 2000)}})
	assert.Len(t, []rune(got.Narrative), maxNarrativeRunes)
}

func TestReviewContext_Prompt(t *testing.T) {
	c := ReviewContext{LearningGoal: "goal", ContentPriorities: []string{"tutorials"}}
	p := c.Prompt()
	assert.Contains(t, p, "Learning goal: goal")
	assert.Contains(t, p, "Preferred content: tutorials")
	assert.NotContains(t, p, "Review summary")
}
