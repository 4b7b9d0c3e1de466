package server

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dataviz-ai/dataviz-go/internal/dataset"
	"github.com/dataviz-ai/dataviz-go/internal/history"
	"github.com/dataviz-ai/dataviz-go/internal/insight"
	"github.com/dataviz-ai/dataviz-go/internal/profile"
	"github.com/dataviz-ai/dataviz-go/internal/recommend"
)

// sampleRows is how many leading records the upload response previews.
const sampleRows = 5

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Format("2006-01-02T15:04:05"),
		"version":   Version,
	})
}

// dataAnalysis is the successful upload response.
type dataAnalysis struct {
	Error         bool             `json:"error"`
	DatasetID     string           `json:"dataset_id"`
	Filename      string           `json:"filename"`
	NRows         int              `json:"n_rows"`
	NCols         int              `json:"n_cols"`
	Columns       []profile.Column `json:"columns"`
	HasTimeSeries bool             `json:"has_time_series"`
	HasGeographic bool             `json:"has_geographic"`
	SampleData    []map[string]any `json:"sample_data"`
}

// uploadFault is the in-band upload failure shape. Upload problems are part of
// the normal flow, so the status code stays 200.
type uploadFault struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

func (s *Server) handleUploadData(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusOK, uploadFault{Error: true, Message: "missing upload: " + err.Error()})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusOK, uploadFault{Error: true, Message: "read upload: " + err.Error()})
		return
	}

	tbl, err := dataset.Read(header.Filename, data)
	if err != nil {
		writeJSON(w, http.StatusOK, uploadFault{Error: true, Message: err.Error()})
		return
	}

	cols := profile.Dataset(tbl)
	sig := profile.DeriveSignals(cols)
	id := uuid.NewString()

	resp := dataAnalysis{
		DatasetID:     id,
		Filename:      header.Filename,
		NRows:         tbl.NumRows(),
		NCols:         tbl.NumCols(),
		Columns:       cols,
		HasTimeSeries: sig.HasTimeSeries,
		HasGeographic: sig.HasGeographic,
		SampleData:    tbl.SampleRecords(sampleRows),
	}

	if s.store != nil {
		// Best effort: history failures never fail the upload.
		err := s.store.Record(r.Context(), history.Upload{
			ID:              id,
			Filename:        header.Filename,
			Rows:            tbl.NumRows(),
			Cols:            tbl.NumCols(),
			NumericCols:     len(sig.NumericColumns),
			CategoricalCols: len(sig.CategoricalColumns),
			DateCols:        len(sig.DateColumns),
			BooleanCols:     len(sig.BooleanColumns),
			HasTimeSeries:   sig.HasTimeSeries,
			HasGeographic:   sig.HasGeographic,
			UploadedAt:      time.Now(),
		})
		if err != nil {
			s.log.WithError(err).Warn("record upload history")
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

type suggestRequest struct {
	Columns       []recommend.Column `json:"columns"`
	HasTimeSeries bool               `json:"has_time_series"`
}

func (s *Server) handleSuggestPlots(w http.ResponseWriter, r *http.Request) {
	var req suggestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid request body: " + err.Error()})
		return
	}
	charts := recommend.Charts(req.Columns, req.HasTimeSeries)
	writeJSON(w, http.StatusOK, map[string]any{
		"recommended": charts,
		"total_count": len(charts),
	})
}

// insightFault reports AI endpoint failures in-band with status 200 so the UI
// can show them without special casing transport errors.
type insightFault struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

func (s *Server) handleGeminiInsight(w http.ResponseWriter, r *http.Request) {
	var req insight.InsightRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid request body: " + err.Error()})
		return
	}
	if s.ai == nil {
		writeJSON(w, http.StatusOK, insightFault{Error: true, Message: "AI insight is not configured: missing API key"})
		return
	}
	result, err := s.ai.DatasetInsight(r.Context(), req)
	if err != nil {
		writeJSON(w, http.StatusOK, insightFault{Error: true, Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"error":                 false,
		"analysis_text":         result.AnalysisText,
		"suggested_chart_types": result.ChartTypes,
		"confidence":            result.Confidence,
	})
}

type rCodeRequest struct {
	Image     string   `json:"image"`
	Columns   []string `json:"columns"`
	ChartType string   `json:"chartType"`
}

func (s *Server) handleGenerateRCode(w http.ResponseWriter, r *http.Request) {
	var req rCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid request body: " + err.Error()})
		return
	}
	if s.ai == nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"code": "", "status": "error", "message": "R code generation is not configured: missing API key",
		})
		return
	}
	code, err := s.ai.GenerateRCode(r.Context(), req.Image, req.Columns, req.ChartType)
	if err != nil {
		s.log.WithError(err).Error("generate r code")
		writeJSON(w, http.StatusOK, map[string]any{"code": "", "status": "error", "message": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"code": code, "status": "success"})
}

func (s *Server) handleDatasets(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusOK, map[string]any{"datasets": []history.Upload{}, "total_count": 0})
		return
	}
	uploads, err := s.store.Recent(r.Context(), 50)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": err.Error()})
		return
	}
	if uploads == nil {
		uploads = []history.Upload{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"datasets": uploads, "total_count": len(uploads)})
}
