// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"log/slog"
	"os"

	"github.com/reykhambhaita/Solace-sub001/pkg/logging"
)

func main() {
	slog.SetDefault(logging.New(logging.Config{
		Level:   logging.ParseLevel(os.Getenv("LOG_LEVEL")),
		Service: "solace-resources",
		JSON:    !logging.IsTerminal(os.Stdout),
	}))
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
