package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nullbench/domain/sequence"
	"nullbench/internal"
	"nullbench/internal/config"
	"nullbench/internal/testkit"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := config.DefaultValidationConfig()
	cfg.BaseSeed = 42
	cfg.MaxAttempts = 200
	cfg.MinTrials = 20
	cfg.Trials = 30

	kit := testkit.NewKit(42)
	service := kit.Service(cfg)

	registry := NewScorerRegistry()
	registry.Register(testkit.ConstantScorer(1.0))
	registry.Register(testkit.StreakScorer(sequence.LabelGreen))

	return NewServer(service, registry, internal.NewLogger(internal.LogLevelError))
}

func labelsFixture(n int) []string {
	kit := testkit.NewKit(7)
	seq := kit.TwoStateSequence(n, 0.8, 0.9)
	out := make([]string, seq.Len())
	for i, l := range seq.Labels() {
		out[i] = string(l)
	}
	return out
}

func postJSON(t *testing.T, handler http.Handler, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

// TestHealthEndpoint tests the liveness probe
func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

// TestListScorers tests the scorer registry listing
func TestListScorers(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/scorers", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var payload map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Contains(t, payload["scorers"], "constant")
	assert.Contains(t, payload["scorers"], "streak_GREEN")
}

// TestCreateRunEndToEnd tests submitting a sequence and reading the verdict back
func TestCreateRunEndToEnd(t *testing.T) {
	s := newTestServer(t)
	handler := s.Handler()

	rec := postJSON(t, handler, "/api/runs", createRunRequest{
		Labels: labelsFixture(800),
		Scorer: "streak_GREEN",
		Trials: 30,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var created runResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "EVALUATED", created.Status)
	assert.Equal(t, 30, created.Counts.Completed)
	require.NotNil(t, created.Result)
	assert.GreaterOrEqual(t, created.Result.Percentile, 0.0)
	assert.LessOrEqual(t, created.Result.Percentile, 100.0)
	require.NotNil(t, created.Convergence)

	// The run is retrievable afterwards
	req := httptest.NewRequest(http.MethodGet, "/api/runs/"+created.ID, nil)
	getRec := httptest.NewRecorder()
	handler.ServeHTTP(getRec, req)
	require.Equal(t, http.StatusOK, getRec.Code)

	var fetched runResponse
	require.NoError(t, json.Unmarshal(getRec.Body.Bytes(), &fetched))
	assert.Equal(t, created.ID, fetched.ID)
	assert.Equal(t, "EVALUATED", fetched.Status)
}

// TestCreateRunUnknownScorer tests the bad-scorer rejection
func TestCreateRunUnknownScorer(t *testing.T) {
	s := newTestServer(t)

	rec := postJSON(t, s.Handler(), "/api/runs", createRunRequest{
		Labels: labelsFixture(100),
		Scorer: "sharpe_ratio",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// TestCreateRunRejectsBadInput tests empty and malformed submissions
func TestCreateRunRejectsBadInput(t *testing.T) {
	s := newTestServer(t)
	handler := s.Handler()

	rec := postJSON(t, handler, "/api/runs", createRunRequest{Scorer: "constant"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/runs", bytes.NewReader([]byte("not json")))
	raw := httptest.NewRecorder()
	handler.ServeHTTP(raw, req)
	assert.Equal(t, http.StatusBadRequest, raw.Code)

	// Label outside the declared alphabet
	rec = postJSON(t, handler, "/api/runs", createRunRequest{
		Alphabet: []string{"RED", "GREEN"},
		Labels:   []string{"RED", "BLUE"},
		Scorer:   "constant",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// TestInsufficientRunThenExtend tests the 202 + extend flow over HTTP
func TestInsufficientRunThenExtend(t *testing.T) {
	s := newTestServer(t)
	handler := s.Handler()

	rec := postJSON(t, handler, "/api/runs", createRunRequest{
		Labels: labelsFixture(800),
		Scorer: "constant",
		Trials: 5, // below the 20-trial minimum
	})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var partial runResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &partial))
	assert.Equal(t, "INSUFFICIENT", partial.Status)
	assert.Nil(t, partial.Result)
	assert.NotEmpty(t, partial.Warning)

	extendRec := postJSON(t, handler, "/api/runs/"+partial.ID+"/extend", extendRunRequest{Trials: 25})
	require.Equal(t, http.StatusOK, extendRec.Code, extendRec.Body.String())

	var full runResponse
	require.NoError(t, json.Unmarshal(extendRec.Body.Bytes(), &full))
	assert.Equal(t, partial.ID, full.ID)
	assert.Equal(t, "EVALUATED", full.Status)
	assert.Equal(t, 30, full.Counts.Completed)
	require.NotNil(t, full.Result)
}

// TestGetRunNotFound tests the 404 path
func TestGetRunNotFound(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/runs/does-not-exist", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// TestListRuns tests the collection endpoint
func TestListRuns(t *testing.T) {
	s := newTestServer(t)
	handler := s.Handler()

	for i := 0; i < 2; i++ {
		rec := postJSON(t, handler, "/api/runs", createRunRequest{
			Labels: labelsFixture(600),
			Scorer: "constant",
			Trials: 25,
		})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/runs?limit=10", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Runs []runResponse `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Len(t, payload.Runs, 2)
}
