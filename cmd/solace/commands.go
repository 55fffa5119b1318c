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
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/reykhambhaita/Solace-sub001/services/resources"
	"github.com/reykhambhaita/Solace-sub001/services/resources/anchors"
	"github.com/reykhambhaita/Solace-sub001/services/resources/config"
	"github.com/reykhambhaita/Solace-sub001/services/resources/datatypes"
	"github.com/reykhambhaita/Solace-sub001/services/resources/queries"
	"github.com/spf13/cobra"
)

var (
	configPath string

	rootCmd = &cobra.Command{
		Use:          "solace",
		Short:        "Learning resource recommendations for reviewed code",
		SilenceUsage: true,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the resources HTTP service",
		RunE:  runServe,
	}

	anchorsCmd = &cobra.Command{
		Use:   "anchors [request.json]",
		Short: "Print the anchors and baseline queries for a request without calling any backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return runAnchors(cmd.OutOrStdout(), args[0], cfg.Pipeline)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"path to a YAML or JSON config file (env vars override it)")
	rootCmd.AddCommand(serveCmd, anchorsCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	svc, err := resources.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return svc.Run(ctx)
}

// anchorsReport is the output of the anchors command.
type anchorsReport struct {
	Anchors  datatypes.AnchorSet     `json:"anchors"`
	Queries  []datatypes.Query       `json:"queries"`
	Metadata datatypes.QueryMetadata `json:"queryMetadata"`
}

func runAnchors(w io.Writer, path string, pc config.PipelineConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read request: %w", err)
	}
	var req datatypes.ResourcesRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("parse request: %w", err)
	}
	if err := req.Validate(); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}

	extractor := anchors.NewExtractor(anchors.Config{TrivialThreshold: pc.TrivialPredicateThreshold})
	report := anchorsReport{Anchors: extractor.Extract(*req.CodeContext, *req.ReviewResponse)}

	if !report.Anchors.Metadata.ShortCircuit {
		report.Queries, report.Metadata, err = queries.BuildBaseline(report.Anchors, pc.MaxQueries)
		if err != nil {
			return fmt.Errorf("build baseline: %w", err)
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
