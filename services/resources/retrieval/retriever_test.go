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
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reykhambhaita/Solace-sub001/services/resources/datatypes"
	"github.com/reykhambhaita/Solace-sub001/services/resources/observability"
)

// fakeSource returns one resource per batch, optionally after a delay.
type fakeSource struct {
	engine   datatypes.SearchEngine
	delay    time.Duration
	err      error
	panicMsg string
	calls    atomic.Int32
}

func (f *fakeSource) Engine() datatypes.SearchEngine { return f.engine }

func (f *fakeSource) Batches(queries []datatypes.Query) []Batch { return onePerQuery(queries) }

func (f *fakeSource) Fetch(ctx context.Context, batch Batch) ([]datatypes.Resource, error) {
	f.calls.Add(1)
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return []datatypes.Resource{{
		Title:  batch.Text,
		URL:    "https://" + f.engine.String() + ".example.com/" + batch.Text,
		Engine: f.engine,
	}}, nil
}

func mixedQueries() []datatypes.Query {
	return []datatypes.Query{
		query("c1", datatypes.IntentRepository, datatypes.EngineCode),
		query("g1", datatypes.IntentDocumentation, datatypes.EngineGeneral),
		query("d1", datatypes.IntentDocumentation, datatypes.EngineDocs),
		query("q1", datatypes.IntentTroubleshooting, datatypes.EngineQA),
		query("g2", datatypes.IntentTutorial, datatypes.EngineGeneral),
	}
}

func TestRetrieve_DeterministicEngineOrder(t *testing.T) {
	// The docs source is the slowest; its results must still come first.
	r := NewRetriever(Config{Concurrency: 4}, nil,
		&fakeSource{engine: datatypes.EngineCode},
		&fakeSource{engine: datatypes.EngineQA, delay: 5 * time.Millisecond},
		&fakeSource{engine: datatypes.EngineGeneral},
		&fakeSource{engine: datatypes.EngineDocs, delay: 20 * time.Millisecond},
	)

	res := r.Retrieve(context.Background(), mixedQueries())

	var titles []string
	for _, x := range res.Resources {
		titles = append(titles, x.Title)
	}
	assert.Equal(t, []string{"d1", "g1", "g2", "q1", "c1"}, titles)
	assert.Equal(t, EngineStats{Queries: 2, Calls: 2, Resources: 2}, res.Stats[datatypes.EngineGeneral])
	assert.Zero(t, res.Dropped)
}

func TestRetrieve_FailingSourceIsIsolated(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := observability.NewPipelineMetrics(reg)
	r := NewRetriever(Config{}, metrics,
		&fakeSource{engine: datatypes.EngineDocs},
		&fakeSource{engine: datatypes.EngineGeneral, err: errors.New("503")},
		&fakeSource{engine: datatypes.EngineQA, panicMsg: "boom"},
		&fakeSource{engine: datatypes.EngineCode},
	)

	res := r.Retrieve(context.Background(), mixedQueries())

	require.Len(t, res.Resources, 2)
	assert.Equal(t, "d1", res.Resources[0].Title)
	assert.Equal(t, "c1", res.Resources[1].Title)
	assert.Equal(t, 2, res.Stats[datatypes.EngineGeneral].Failed)
	assert.Equal(t, 1, res.Stats[datatypes.EngineQA].Failed)

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.FetchesTotal.WithLabelValues("general", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.FetchesTotal.WithLabelValues("qa", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.FetchesTotal.WithLabelValues("docs", "ok")))
}

func TestRetrieve_AllSourcesFailing(t *testing.T) {
	fail := errors.New("network unreachable")
	r := NewRetriever(Config{}, nil,
		&fakeSource{engine: datatypes.EngineDocs, err: fail},
		&fakeSource{engine: datatypes.EngineGeneral, err: fail},
		&fakeSource{engine: datatypes.EngineQA, err: fail},
		&fakeSource{engine: datatypes.EngineCode, err: fail},
	)

	res := r.Retrieve(context.Background(), mixedQueries())
	assert.Empty(t, res.Resources)
	assert.Len(t, res.Stats, 4)
}

func TestRetrieve_UnregisteredEngineIsDropped(t *testing.T) {
	docs := &fakeSource{engine: datatypes.EngineDocs}
	r := NewRetriever(Config{}, nil, docs)

	res := r.Retrieve(context.Background(), append(mixedQueries(),
		query("bogus", datatypes.IntentGeneral, datatypes.SearchEngine(99))))

	require.Len(t, res.Resources, 1)
	assert.Equal(t, 5, res.Dropped)
	assert.EqualValues(t, 1, docs.calls.Load())
}

func TestRetrieve_NoQueries(t *testing.T) {
	r := NewRetriever(Config{}, nil, &fakeSource{engine: datatypes.EngineDocs})
	res := r.Retrieve(context.Background(), nil)
	assert.Empty(t, res.Resources)
	assert.Empty(t, res.Stats)
}

func TestRetrieve_CancellationDegradesToEmpty(t *testing.T) {
	slow := &fakeSource{engine: datatypes.EngineDocs, delay: time.Minute}
	r := NewRetriever(Config{}, nil, slow)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	done := make(chan Result, 1)
	go func() { done <- r.Retrieve(ctx, mixedQueries()) }()

	select {
	case res := <-done:
		assert.Empty(t, res.Resources)
		assert.Equal(t, 1, res.Stats[datatypes.EngineDocs].Failed)
	case <-time.After(5 * time.Second):
		t.Fatal("Retrieve did not return after cancellation")
	}
}

func TestRetrieve_ConcurrencyLimit(t *testing.T) {
	var inFlight, peak atomic.Int32
	src := &trackingSource{inFlight: &inFlight, peak: &peak}
	r := NewRetriever(Config{Concurrency: 2}, nil, src)

	var qs []datatypes.Query
	for i := 0; i < 8; i++ {
		qs = append(qs, query(string(rune('a'+i)), datatypes.IntentTroubleshooting, datatypes.EngineQA))
	}
	res := r.Retrieve(context.Background(), qs)

	assert.Len(t, res.Resources, 8)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

type trackingSource struct {
	inFlight *atomic.Int32
	peak     *atomic.Int32
}

func (s *trackingSource) Engine() datatypes.SearchEngine { return datatypes.EngineQA }

func (s *trackingSource) Batches(queries []datatypes.Query) []Batch { return onePerQuery(queries) }

func (s *trackingSource) Fetch(ctx context.Context, batch Batch) ([]datatypes.Resource, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	return []datatypes.Resource{{URL: "https://qa.example.com/" + batch.Text}}, nil
}
