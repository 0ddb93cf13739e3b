package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"nullbench/app"
	"nullbench/domain/core"
	"nullbench/domain/run"
	"nullbench/domain/sequence"
	"nullbench/domain/verdict"
	"nullbench/internal/convergence"
	apperrors "nullbench/internal/errors"
)

// createRunRequest submits a real state sequence for evaluation
type createRunRequest struct {
	Alphabet []string `json:"alphabet,omitempty"` // inferred from labels when omitted
	Labels   []string `json:"labels"`
	Scorer   string   `json:"scorer"`
	Trials   int      `json:"trials,omitempty"`
}

type extendRunRequest struct {
	Trials int `json:"trials"`
}

// runResponse is the wire shape of an evaluation run
type runResponse struct {
	ID           string                      `json:"id"`
	Status       string                      `json:"status"`
	ScorerName   string                      `json:"scorer_name"`
	SequenceHash string                      `json:"sequence_hash"`
	Counts       run.TrialCounts             `json:"counts"`
	NullSize     int                         `json:"null_size"`
	Result       *verdict.SignificanceResult `json:"result,omitempty"`
	Convergence  *convergence.Report         `json:"convergence,omitempty"`
	Warning      string                      `json:"warning,omitempty"`
}

func toRunResponse(r *run.EvaluationRun, report *convergence.Report, warning string) runResponse {
	return runResponse{
		ID:           r.ID.String(),
		Status:       string(r.Status),
		ScorerName:   r.ScorerName,
		SequenceHash: r.SequenceHash.String(),
		Counts:       r.Counts,
		NullSize:     r.Null.Len(),
		Result:       r.Result,
		Convergence:  report,
		Warning:      warning,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleScorers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"scorers": s.registry.Names()})
}

func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req createRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, apperrors.InvalidInput("malformed request body"))
		return
	}

	seq, err := buildSequence(req.Alphabet, req.Labels)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	scorer, err := s.registry.Get(req.Scorer)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	outcome, err := s.service.Evaluate(r.Context(), seq, scorer, req.Trials)
	s.writeOutcome(w, outcome, err)
}

func (s *Server) handleExtendRun(w http.ResponseWriter, r *http.Request) {
	runID := core.RunID(chi.URLParam(r, "runID"))

	var req extendRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, apperrors.InvalidInput("malformed request body"))
		return
	}

	outcome, err := s.service.Extend(r.Context(), runID, req.Trials)
	s.writeOutcome(w, outcome, err)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID := core.RunID(chi.URLParam(r, "runID"))

	er, err := s.service.GetRun(r.Context(), runID)
	if err != nil {
		if core.IsNotFoundError(err) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, toRunResponse(er, nil, ""))
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	runs, err := s.service.ListRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	out := make([]runResponse, 0, len(runs))
	for _, er := range runs {
		out = append(out, toRunResponse(er, nil, ""))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"runs": out})
}

// writeOutcome maps service results onto HTTP. An INSUFFICIENT run is not an
// HTTP failure: the caller gets the partial run with a warning and can extend
// it. Aborted runs surface as 500; bad input as 400.
func (s *Server) writeOutcome(w http.ResponseWriter, outcome *app.EvaluationOutcome, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, toRunResponse(outcome.Run, &outcome.Convergence, ""))
	case core.IsInsufficientTrialsError(err) && outcome != nil:
		writeJSON(w, http.StatusAccepted, toRunResponse(outcome.Run, &outcome.Convergence, err.Error()))
	case core.IsNotFoundError(err):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, core.ErrUnknownScorer) || apperrors.GetCode(err) == apperrors.CodeInvalidInput:
		writeError(w, http.StatusBadRequest, err)
	default:
		s.logger.Error("evaluation failed: %v", err)
		writeError(w, http.StatusInternalServerError, err)
	}
}

func buildSequence(alphabet, labels []string) (*sequence.StateSequence, error) {
	if len(labels) == 0 {
		return nil, apperrors.InvalidInput("labels are required")
	}

	seqLabels := make([]sequence.Label, len(labels))
	for i, l := range labels {
		seqLabels[i] = sequence.Label(l)
	}

	if len(alphabet) == 0 {
		return sequence.FromLabels(seqLabels)
	}

	alphaLabels := make([]sequence.Label, len(alphabet))
	for i, l := range alphabet {
		alphaLabels[i] = sequence.Label(l)
	}
	alpha, err := sequence.NewAlphabet(alphaLabels...)
	if err != nil {
		return nil, err
	}
	return sequence.NewStateSequence(alpha, seqLabels)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{
		"error": err.Error(),
		"code":  apperrors.GetCode(err),
	})
}
