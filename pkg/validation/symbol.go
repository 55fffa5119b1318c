// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input sanitization for analyzer-supplied text
// that ends up inside outbound search queries.
//
// Library names, framework names and language ids come from an upstream
// analyzer and are untrusted. They are embedded in exact-phrase searches and
// URL query strings, so quotes, control characters and search operators are
// removed before use.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// MaxSymbolLength caps a single symbol. Real package names are far shorter.
const MaxSymbolLength = 100

// languagePattern matches language identifiers such as "go", "c++", "c#",
// "objective-c" and "node.js".
var languagePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9+#.\- ]{0,31}$`)

// ValidateLanguage validates an already-normalized language id.
//
// Valid language ids:
//   - 1-32 characters
//   - Lowercase letters, digits, '+', '#', '.', '-' and spaces
//   - Starting with a letter or digit
//
// Example:
//
//	if err := validation.ValidateLanguage("typescript"); err != nil {
//	    return err
//	}
func ValidateLanguage(lang string) error {
	if lang == "" {
		return fmt.Errorf("language cannot be empty")
	}
	if !languagePattern.MatchString(lang) {
		return fmt.Errorf("invalid language format: %q", lang)
	}
	return nil
}

// SanitizeLanguage normalizes a language id and falls back to fallback when
// the result is not a valid id.
func SanitizeLanguage(lang, fallback string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(lang), " "))
	if err := ValidateLanguage(normalized); err != nil {
		return fallback
	}
	return normalized
}

// SanitizeSymbol normalizes a symbol for use inside a search query.
//
// Quotes, backticks, control characters and boolean search operators are
// dropped, runs of whitespace collapse to one space, and the result is
// truncated to MaxSymbolLength runes. An empty result means the symbol had no
// usable content and should be skipped.
//
// Example:
//
//	validation.SanitizeSymbol(`"react-dom"\n`) // "react-dom"
func SanitizeSymbol(symbol string) string {
	var b strings.Builder
	for _, r := range symbol {
		switch {
		case r == '"' || r == '`' || r == '\'':
			continue
		case unicode.IsControl(r):
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}

	words := strings.Fields(b.String())
	kept := words[:0]
	for _, w := range words {
		switch w {
		case "OR", "AND", "NOT":
			continue
		}
		kept = append(kept, w)
	}

	out := []rune(strings.Join(kept, " "))
	if len(out) > MaxSymbolLength {
		out = out[:MaxSymbolLength]
	}
	return strings.TrimSpace(string(out))
}
