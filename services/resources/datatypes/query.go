// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import "fmt"

// Intent is the learning purpose a query serves.
type Intent int

const (
	IntentDocumentation Intent = iota
	IntentTutorial
	IntentTroubleshooting
	IntentRepository
	IntentGeneral
)

var intentNames = map[Intent]string{
	IntentDocumentation:   "documentation",
	IntentTutorial:        "tutorial",
	IntentTroubleshooting: "troubleshooting",
	IntentRepository:      "repository",
	IntentGeneral:         "general",
}

func (i Intent) String() string {
	if name, ok := intentNames[i]; ok {
		return name
	}
	return fmt.Sprintf("intent(%d)", int(i))
}

func (i Intent) MarshalText() ([]byte, error) {
	if _, ok := intentNames[i]; !ok {
		return nil, fmt.Errorf("unknown intent %d", int(i))
	}
	return []byte(i.String()), nil
}

func (i *Intent) UnmarshalText(text []byte) error {
	v, err := lookupName(intentNames, text, "intent")
	if err != nil {
		return err
	}
	*i = v
	return nil
}

// ContentType is the kind of material a query is expected to surface. It is
// used to weight the ranking prompt.
type ContentType int

const (
	ContentDocumentation ContentType = iota
	ContentTutorial
	ContentTroubleshooting
	ContentRepository
	ContentGeneral
)

var contentTypeNames = map[ContentType]string{
	ContentDocumentation:   "documentation",
	ContentTutorial:        "tutorial",
	ContentTroubleshooting: "troubleshooting",
	ContentRepository:      "repository",
	ContentGeneral:         "general",
}

func (c ContentType) String() string {
	if name, ok := contentTypeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("content-type(%d)", int(c))
}

func (c ContentType) MarshalText() ([]byte, error) {
	if _, ok := contentTypeNames[c]; !ok {
		return nil, fmt.Errorf("unknown content type %d", int(c))
	}
	return []byte(c.String()), nil
}

func (c *ContentType) UnmarshalText(text []byte) error {
	v, err := lookupName(contentTypeNames, text, "content type")
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// SearchEngine identifies one of the retrieval backends.
type SearchEngine int

const (
	EngineDocs SearchEngine = iota
	EngineGeneral
	EngineQA
	EngineCode
)

var engineNames = map[SearchEngine]string{
	EngineDocs:    "docs",
	EngineGeneral: "general",
	EngineQA:      "qa",
	EngineCode:    "code",
}

// AllSearchEngines returns every backend in fan-out order.
func AllSearchEngines() []SearchEngine {
	return []SearchEngine{EngineDocs, EngineGeneral, EngineQA, EngineCode}
}

func (e SearchEngine) String() string {
	if name, ok := engineNames[e]; ok {
		return name
	}
	return fmt.Sprintf("engine(%d)", int(e))
}

func (e SearchEngine) MarshalText() ([]byte, error) {
	if _, ok := engineNames[e]; !ok {
		return nil, fmt.Errorf("unknown search engine %d", int(e))
	}
	return []byte(e.String()), nil
}

func (e *SearchEngine) UnmarshalText(text []byte) error {
	v, err := lookupName(engineNames, text, "search engine")
	if err != nil {
		return err
	}
	*e = v
	return nil
}

// QuerySource records which stage produced a query.
type QuerySource string

const (
	QueryFromBaseline  QuerySource = "baseline"
	QueryFromExpansion QuerySource = "expansion"
)

// Query is a routed search request derived from an anchor.
type Query struct {
	Primary      string       `json:"primary"`
	Intent       Intent       `json:"intent"`
	Weight       float64      `json:"weight"`
	Source       QuerySource  `json:"source"`
	ContentType  ContentType  `json:"contentType"`
	SearchEngine SearchEngine `json:"searchEngine"`
}

// QueryMetadata is produced by baseline synthesis and consumed by expansion.
type QueryMetadata struct {
	ExpansionDisabled  bool `json:"expansionDisabled"`
	HasConcreteSymbols bool `json:"hasConcreteSymbols"`
	MandatoryCount     int  `json:"mandatoryCount"`
	OptionalConsumed   int  `json:"optionalConsumed"`
	Truncated          bool `json:"truncated"`
	// Symbols are the concrete symbols the baseline was built from. Expansion
	// may only refine queries that mention one of them.
	Symbols []string `json:"symbols,omitempty"`
}
