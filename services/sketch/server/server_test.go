// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/BNSketch/services/sketch/archive"
	"github.com/AleutianAI/BNSketch/services/sketch/inference"
	"github.com/AleutianAI/BNSketch/services/sketch/network"
	"github.com/AleutianAI/BNSketch/services/sketch/sketchbook"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T, mutate func(*Config)) *Server {
	t.Helper()
	arc, err := archive.Open(archive.InMemoryConfig())
	require.NoError(t, err)
	cfg := DefaultConfig()
	cfg.RateBurst = 100
	cfg.RateLimit = 100
	if mutate != nil {
		mutate(&cfg)
	}
	s, err := New(cfg, arc)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		assert.NoError(t, s.Shutdown(ctx))
		assert.NoError(t, arc.Close())
	})
	return s
}

// sketchJSON is A <-? B with no properties: 16 candidates.
func sketchJSON(t *testing.T) json.RawMessage {
	t.Helper()
	data, err := sketchbook.Marshal(&sketchbook.Sketch{
		Name: "two",
		Model: network.Model{
			Variables: []network.Variable{{ID: "A"}, {ID: "B"}},
			Regulations: []network.Regulation{
				{Regulator: "B", Target: "A"},
				{Regulator: "A", Target: "B"},
			},
		},
	}, sketchbook.FormatJSON)
	require.NoError(t, err)
	return data
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func submit(t *testing.T, s *Server) SubmitResponse {
	t.Helper()
	rec := do(t, s.Handler(), http.MethodPost, "/v1/inference/runs", SubmitRequest{Sketch: sketchJSON(t)})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	var resp SubmitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func waitArchived(t *testing.T, s *Server, id string) *archive.Record {
	t.Helper()
	var rec *archive.Record
	require.Eventually(t, func() bool {
		if _, live := s.lookup(id); live {
			return false
		}
		r, err := s.archive.Get(context.Background(), id)
		if err != nil {
			return false
		}
		rec = r
		return true
	}, 10*time.Second, 10*time.Millisecond)
	return rec
}

func TestServer_Health(t *testing.T) {
	s := newTestServer(t, nil)
	rec := do(t, s.Handler(), http.MethodGet, "/v1/inference/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestServer_SubmitAndArchive(t *testing.T) {
	s := newTestServer(t, nil)
	resp := submit(t, s)
	assert.Equal(t, "full", resp.Mode)
	assert.Equal(t, "/v1/inference/runs/"+resp.ID+"/stream", resp.StreamURL)

	rec := waitArchived(t, s, resp.ID)
	assert.Equal(t, archive.OutcomeFinished, rec.Outcome)
	assert.Equal(t, "two", rec.SketchName)
	require.NotNil(t, rec.Results)
	assert.Equal(t, int64(16), rec.Results.NumSatNetworks.Int64())

	got := do(t, s.Handler(), http.MethodGet, resp.StatusURL, nil)
	assert.Equal(t, http.StatusOK, got.Code)
	assert.Contains(t, got.Body.String(), `"outcome":"finished"`)

	report := do(t, s.Handler(), http.MethodGet, resp.StatusURL+"/report", nil)
	assert.Equal(t, http.StatusOK, report.Code)
	assert.Contains(t, report.Body.String(), "Number of satisfying candidates: 16")

	list := do(t, s.Handler(), http.MethodGet, "/v1/inference/runs", nil)
	var runs []RunSummary
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, resp.ID, runs[0].ID)
	assert.Equal(t, "finished", runs[0].State)
}

func TestServer_SubmitStaticMode(t *testing.T) {
	s := newTestServer(t, nil)
	rec := do(t, s.Handler(), http.MethodPost, "/v1/inference/runs",
		SubmitRequest{Sketch: sketchJSON(t), Mode: "static"})
	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp SubmitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "static", resp.Mode)
	assert.Equal(t, inference.ModeStaticOnly, waitArchived(t, s, resp.ID).Mode)
}

func TestServer_SubmitRejected(t *testing.T) {
	s := newTestServer(t, nil)
	tests := []struct {
		name string
		body any
	}{
		{"malformed json", `{"sketch":`},
		{"missing sketch", `{"mode":"full"}`},
		{"bad mode", map[string]any{"sketch": json.RawMessage(`{}`), "mode": "hybrid"}},
		{"invalid sketch", map[string]any{"sketch": json.RawMessage(`{"model":{"variables":[]}}`)}},
		{"unknown field", map[string]any{"sketch": json.RawMessage(`{"modle":{}}`)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s.Handler(), http.MethodPost, "/v1/inference/runs", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestServer_RateLimited(t *testing.T) {
	s := newTestServer(t, func(c *Config) {
		c.RateLimit = 0.001
		c.RateBurst = 1
	})
	submit(t, s)
	rec := do(t, s.Handler(), http.MethodPost, "/v1/inference/runs", SubmitRequest{Sketch: sketchJSON(t)})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestServer_UnknownRuns(t *testing.T) {
	s := newTestServer(t, nil)
	missing := "/v1/inference/runs/" + uuid.NewString()
	tests := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, missing, http.StatusNotFound},
		{http.MethodGet, missing + "/report", http.StatusNotFound},
		{http.MethodGet, missing + "/stream", http.StatusNotFound},
		{http.MethodDelete, missing, http.StatusNotFound},
		{http.MethodGet, "/v1/inference/runs/not-a-uuid", http.StatusBadRequest},
		{http.MethodDelete, "/v1/inference/runs/not-a-uuid", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, do(t, s.Handler(), tt.method, tt.path, nil).Code)
		})
	}
}

func TestServer_DeleteArchived(t *testing.T) {
	s := newTestServer(t, nil)
	resp := submit(t, s)
	waitArchived(t, s, resp.ID)

	assert.Equal(t, http.StatusNoContent, do(t, s.Handler(), http.MethodDelete, resp.StatusURL, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, s.Handler(), http.MethodGet, resp.StatusURL, nil).Code)
}

func TestServer_RejectsAfterShutdown(t *testing.T) {
	s := newTestServer(t, nil)
	require.NoError(t, s.Shutdown(context.Background()))
	rec := do(t, s.Handler(), http.MethodPost, "/v1/inference/runs", SubmitRequest{Sketch: sketchJSON(t)})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func readStream(t *testing.T, url string) []inference.StatusReport {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()

	var out []inference.StatusReport
	for {
		var r inference.StatusReport
		if err := ws.ReadJSON(&r); err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "unexpected error: %v", err)
			return out
		}
		out = append(out, r)
	}
}

func TestServer_Stream(t *testing.T) {
	s := newTestServer(t, nil)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()
	wsBase := "ws" + strings.TrimPrefix(ts.URL, "http")

	resp := submit(t, s)
	live := readStream(t, wsBase+resp.StreamURL)
	require.NotEmpty(t, live)
	assert.Equal(t, inference.StatusCreated, live[0].Status)
	assert.Equal(t, inference.StatusFinishedSuccessfully, live[len(live)-1].Status)

	waitArchived(t, s, resp.ID)
	replayed := readStream(t, wsBase+resp.StreamURL)
	require.NotEmpty(t, replayed)
	assert.Equal(t, inference.StatusCreated, replayed[0].Status)
	assert.Equal(t, inference.StatusFinishedSuccessfully, replayed[len(replayed)-1].Status)
}

func TestBroadcaster(t *testing.T) {
	b := newBroadcaster()
	early := inference.StatusReport{Status: inference.StatusStarted}
	assert.True(t, b.Notify(early))
	b.setCreated(inference.StatusReport{Status: inference.StatusCreated})

	history, sub := b.subscribe(4)
	require.Len(t, history, 2)
	assert.Equal(t, inference.StatusCreated, history[0].Status)

	next := inference.StatusReport{Status: inference.StatusProcessedInputs}
	assert.True(t, b.Notify(next))
	assert.Equal(t, next, <-sub.Updates())

	b.unsubscribe(sub)
	assert.True(t, b.Notify(inference.StatusReport{Status: inference.StatusGeneratedContextStatic}))
	assert.Empty(t, b.subs)
	assert.Len(t, b.history, 4)
}
