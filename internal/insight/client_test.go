package insight

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func testClient(baseURL string) *Client {
	return NewClientWithBaseURL("test-key", "test-model", 5*time.Second, 3, time.Millisecond, 5*time.Millisecond, baseURL)
}

func geminiReply(text string) map[string]any {
	return map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]any{{"text": text}}}},
		},
	}
}

func TestDatasetInsightParsesJSONReply(t *testing.T) {
	var gotPath, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-Goog-Api-Key")
		reply := `Here is my analysis:
{"analysis": "Sales by region over time.", "chart_types": ["line", "bar"], "confidence": 0.9}
Hope that helps.`
		_ = json.NewEncoder(w).Encode(geminiReply(reply))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	got, err := c.DatasetInsight(context.Background(), InsightRequest{
		Rows: 100, Cols: 3, HasTimeSeries: true,
		Columns: []ColumnInfo{{Name: "date", Type: "date"}, {Name: "sales", Type: "numeric"}},
	})
	if err != nil {
		t.Fatalf("DatasetInsight: %v", err)
	}
	if gotPath != "/models/test-model:generateContent" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("api key header = %q", gotKey)
	}
	if got.AnalysisText != "Sales by region over time." {
		t.Errorf("AnalysisText = %q", got.AnalysisText)
	}
	if len(got.ChartTypes) != 2 || got.ChartTypes[0] != "line" {
		t.Errorf("ChartTypes = %v", got.ChartTypes)
	}
	if got.Confidence != 0.9 {
		t.Errorf("Confidence = %v, want 0.9", got.Confidence)
	}
}

func TestDatasetInsightDefaultConfidence(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(geminiReply(`{"analysis": "Short.", "chart_types": []}`))
	}))
	defer srv.Close()

	got, err := testClient(srv.URL).DatasetInsight(context.Background(), InsightRequest{})
	if err != nil {
		t.Fatalf("DatasetInsight: %v", err)
	}
	if got.Confidence != 0.7 {
		t.Errorf("Confidence = %v, want default 0.7 for parsed reply", got.Confidence)
	}
}

func TestDatasetInsightUnparsableReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(geminiReply("The dataset looks fine, plain prose only."))
	}))
	defer srv.Close()

	got, err := testClient(srv.URL).DatasetInsight(context.Background(), InsightRequest{})
	if err != nil {
		t.Fatalf("DatasetInsight: %v", err)
	}
	if got.AnalysisText != "The dataset looks fine, plain prose only." {
		t.Errorf("AnalysisText = %q", got.AnalysisText)
	}
	if len(got.ChartTypes) != 0 {
		t.Errorf("ChartTypes = %v, want empty", got.ChartTypes)
	}
	if got.Confidence != 0.5 {
		t.Errorf("Confidence = %v, want 0.5 for unparsed reply", got.Confidence)
	}
}

func TestGenerateRetriesOn500(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error": {"message": "transient"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(geminiReply("ok"))
	}))
	defer srv.Close()

	text, err := testClient(srv.URL).generate(context.Background(), []part{{Text: "hi"}})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if text != "ok" {
		t.Errorf("text = %q, want ok", text)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestGenerateDoesNotRetryOn400(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"message": "bad prompt"}}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).generate(context.Background(), []part{{Text: "hi"}})
	if err == nil {
		t.Fatal("expected error")
	}
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("err is %T, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest || apiErr.Message != "bad prompt" {
		t.Errorf("apiErr = %+v", apiErr)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestGenerateMissingAPIKey(t *testing.T) {
	c := NewClient("", "", time.Second, 1, time.Millisecond, time.Millisecond)
	if _, err := c.generate(context.Background(), []part{{Text: "hi"}}); err == nil {
		t.Fatal("expected error for missing API key")
	}
}

func TestGenerateRCodeStripsFencesAndDataURL(t *testing.T) {
	var gotReq generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		_ = json.NewEncoder(w).Encode(geminiReply("```r\nlibrary(ggplot2)\np <- ggplot(data)\np\n```"))
	}))
	defer srv.Close()

	code, err := testClient(srv.URL).GenerateRCode(context.Background(),
		"data:image/png;base64,QUJD", []string{"region", "sales"}, "bar")
	if err != nil {
		t.Fatalf("GenerateRCode: %v", err)
	}
	if strings.Contains(code, "```") {
		t.Errorf("fences not stripped: %q", code)
	}
	if !strings.HasPrefix(code, "library(ggplot2)") || !strings.HasSuffix(code, "p") {
		t.Errorf("code = %q", code)
	}

	parts := gotReq.Contents[0].Parts
	if len(parts) != 2 {
		t.Fatalf("len(parts) = %d, want 2", len(parts))
	}
	if !strings.Contains(parts[0].Text, "region, sales") {
		t.Errorf("prompt missing column list: %q", parts[0].Text)
	}
	if !strings.Contains(parts[0].Text, "The detected chart type is: bar") {
		t.Errorf("prompt missing chart type: %q", parts[0].Text)
	}
	if parts[1].InlineData == nil || parts[1].InlineData.Data != "QUJD" {
		t.Errorf("inline data = %+v, want QUJD without data-URL prefix", parts[1].InlineData)
	}
}

func TestGenerateRCodeNoImage(t *testing.T) {
	var gotReq generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		_ = json.NewEncoder(w).Encode(geminiReply("p"))
	}))
	defer srv.Close()

	if _, err := testClient(srv.URL).GenerateRCode(context.Background(), "", []string{"x"}, ""); err != nil {
		t.Fatalf("GenerateRCode: %v", err)
	}
	if len(gotReq.Contents[0].Parts) != 1 {
		t.Errorf("parts = %d, want 1 when no image", len(gotReq.Contents[0].Parts))
	}
}
