// Package insight calls the Gemini generateContent API to produce natural
// language dataset analyses and R plotting code.
package insight

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// DefaultModel is the Gemini model used when the configuration does not name one.
const DefaultModel = "gemini-2.0-flash-exp"

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Client is a Gemini API client with retry and backoff. Safe for concurrent use.
type Client struct {
	httpClient       *http.Client
	apiKey           string
	model            string
	baseURL          string
	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
}

// APIError represents a structured API error response.
type APIError struct {
	StatusCode int            `json:"-"`
	Message    string         `json:"message,omitempty"`
	Raw        map[string]any `json:"-"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("gemini api error: status=%d message=%s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("gemini api error: status=%d", e.StatusCode)
}

// NewClient returns a client with the given credentials and retry behavior.
// Zero or negative settings fall back to sane defaults.
func NewClient(apiKey, model string, httpTimeout time.Duration, retryMax int, baseDelay, maxDelay time.Duration) *Client {
	if model == "" {
		model = DefaultModel
	}
	if httpTimeout <= 0 {
		httpTimeout = 60 * time.Second
	}
	if retryMax <= 0 {
		retryMax = 3
	}
	if baseDelay <= 0 {
		baseDelay = 500 * time.Millisecond
	}
	if maxDelay <= 0 {
		maxDelay = 4 * time.Second
	}
	return &Client{
		httpClient:       &http.Client{Timeout: httpTimeout},
		apiKey:           apiKey,
		model:            model,
		baseURL:          defaultBaseURL,
		retryMaxAttempts: retryMax,
		retryBaseDelay:   baseDelay,
		retryMaxDelay:    maxDelay,
	}
}

// NewClientWithBaseURL allows injecting a custom base URL (used in tests).
func NewClientWithBaseURL(apiKey, model string, httpTimeout time.Duration, retryMax int, baseDelay, maxDelay time.Duration, baseURL string) *Client {
	c := NewClient(apiKey, model, httpTimeout, retryMax, baseDelay, maxDelay)
	if baseURL != "" {
		c.baseURL = baseURL
	}
	return c
}

// Gemini generateContent wire types.

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// generate posts the given parts to the model and returns the concatenated
// text of the first candidate. Retries 429 and 5xx with exponential backoff.
func (c *Client) generate(ctx context.Context, parts []part) (string, error) {
	if c.apiKey == "" {
		return "", errors.New("GEMINI_API_KEY is missing")
	}
	payload, err := json.Marshal(generateRequest{Contents: []content{{Parts: parts}}})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)

	backoff := c.retryBaseDelay
	var lastErr error
	for attempt := 1; attempt <= c.retryMaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return "", fmt.Errorf("build request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("X-Goog-Api-Key", c.apiKey)

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			if isRetryableNetErr(err) && attempt < c.retryMaxAttempts {
				lastErr = err
				time.Sleep(withJitter(backoff, c.retryMaxDelay))
				backoff *= 2
				continue
			}
			return "", fmt.Errorf("http request: %w", err)
		}

		text, apiErr := decodeResponse(resp)
		if apiErr == nil {
			return text, nil
		}
		lastErr = apiErr
		retryable := apiErr.StatusCode == http.StatusTooManyRequests ||
			(apiErr.StatusCode >= 500 && apiErr.StatusCode <= 599)
		if !retryable || attempt == c.retryMaxAttempts {
			return "", apiErr
		}
		time.Sleep(withJitter(backoff, c.retryMaxDelay))
		backoff *= 2
	}
	return "", lastErr
}

func decodeResponse(resp *http.Response) (string, *APIError) {
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		var raw map[string]any
		_ = json.Unmarshal(body, &raw)
		apiErr := &APIError{StatusCode: resp.StatusCode, Raw: raw}
		if v, ok := raw["error"].(map[string]any); ok {
			if msg, ok := v["message"].(string); ok {
				apiErr.Message = msg
			}
		}
		return "", apiErr
	}
	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &APIError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("decode response: %v", err)}
	}
	if len(out.Candidates) == 0 {
		return "", &APIError{StatusCode: resp.StatusCode, Message: "empty response: no candidates"}
	}
	var sb strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String(), nil
}

// ColumnInfo is the name/type pair the insight prompt describes per column.
type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// InsightRequest describes the dataset the model should analyze.
type InsightRequest struct {
	Rows          int          `json:"n_rows"`
	Cols          int          `json:"n_cols"`
	HasTimeSeries bool         `json:"has_time_series"`
	Columns       []ColumnInfo `json:"columns"`
}

// Insight is a parsed model analysis. When the reply carries no parsable JSON
// object the whole reply text becomes AnalysisText with low confidence.
type Insight struct {
	AnalysisText string   `json:"analysis_text"`
	ChartTypes   []string `json:"suggested_chart_types"`
	Confidence   float64  `json:"confidence"`
}

// jsonObjectRE matches a JSON object with at most one level of nesting, which
// is enough to fish the reply object out of surrounding prose.
var jsonObjectRE = regexp.MustCompile(`\{[^{}]*(?:\{[^{}]*\}[^{}]*)*\}`)

// DatasetInsight asks the model for a dataset description, notable patterns
// and suitable chart types.
func (c *Client) DatasetInsight(ctx context.Context, req InsightRequest) (*Insight, error) {
	var cols strings.Builder
	for _, col := range req.Columns {
		fmt.Fprintf(&cols, "  - %s (%s)\n", col.Name, col.Type)
	}
	hasTS := "No"
	if req.HasTimeSeries {
		hasTS = "Yes"
	}
	prompt := fmt.Sprintf(`Analyze this dataset and provide insights:

Dataset Overview:
- Total Rows: %d
- Total Columns: %d
- Has Time Series: %s

Columns:
%s
Please provide:
1. A brief description of what this dataset contains
2. Key patterns or observations
3. Recommended chart types (choose from: bar, line, scatter, pie, area, histogram)

Respond in JSON format:
{
  "analysis": "Your analysis",
  "chart_types": ["chart1", "chart2"],
  "confidence": 0.85
}
`, req.Rows, req.Cols, hasTS, cols.String())

	text, err := c.generate(ctx, []part{{Text: prompt}})
	if err != nil {
		return nil, err
	}
	return parseInsight(text), nil
}

func parseInsight(text string) *Insight {
	match := jsonObjectRE.FindString(text)
	if match == "" {
		return &Insight{AnalysisText: text, ChartTypes: []string{}, Confidence: 0.5}
	}
	var raw struct {
		Analysis   string   `json:"analysis"`
		ChartTypes []string `json:"chart_types"`
		Confidence *float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(match), &raw); err != nil {
		return &Insight{AnalysisText: text, ChartTypes: []string{}, Confidence: 0.5}
	}
	out := &Insight{AnalysisText: raw.Analysis, ChartTypes: raw.ChartTypes, Confidence: 0.7}
	if out.AnalysisText == "" {
		out.AnalysisText = text
	}
	if out.ChartTypes == nil {
		out.ChartTypes = []string{}
	}
	if raw.Confidence != nil {
		out.Confidence = *raw.Confidence
	}
	return out
}

// GenerateRCode asks the model for ggplot2 code recreating the chart shown in
// the given image, bound to the caller's column names. The image is a base64
// string, optionally with a data-URL prefix; it may be empty. Markdown code
// fences in the reply are stripped.
func (c *Client) GenerateRCode(ctx context.Context, image string, columns []string, chartType string) (string, error) {
	chartLine := ""
	if chartType != "" {
		chartLine = fmt.Sprintf("The detected chart type is: %s", chartType)
	}
	prompt := fmt.Sprintf(`You are an expert R developer and data visualization specialist.

Task: Write R code using 'ggplot2' to recreate the chart style shown in the image, adapted for the user's dataset.

Context:
- The user has provided an image of a chart they want to replicate.
- The user's dataset has the following columns: %s
- %s

Instructions:
1. Assume the data is already loaded into a dataframe called 'data'.
2. Use the most appropriate columns from the provided list to map to x, y, color, size, etc.
3. Try to match the visual style (theme, colors, labels) of the image as closely as possible.
4. Use 'ggplot2' and 'dplyr' libraries.
5. Return ONLY the raw R code without markdown formatting.
6. Do not include any data loading or library installation code. Just the plot generation.
7. The last line of the code MUST be the plot object itself (e.g. 'p'). Do NOT call 'print(p)'.
`, strings.Join(columns, ", "), chartLine)

	parts := []part{{Text: prompt}}
	if image != "" {
		data := image
		if i := strings.Index(data, ","); i >= 0 {
			data = data[i+1:]
		}
		parts = append(parts, part{InlineData: &inlineData{MimeType: "image/png", Data: data}})
	}

	text, err := c.generate(ctx, parts)
	if err != nil {
		return "", err
	}
	code := strings.ReplaceAll(text, "```r", "")
	code = strings.ReplaceAll(code, "```", "")
	return strings.TrimSpace(code), nil
}

func isRetryableNetErr(err error) bool {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}
	return errors.Is(err, io.EOF)
}

// withJitter applies +/- 20% jitter and caps the result.
func withJitter(d, max time.Duration) time.Duration {
	if d <= 0 {
		d = 500 * time.Millisecond
	}
	out := time.Duration(float64(d) * (0.8 + rand.Float64()*0.4))
	if max > 0 && out > max {
		out = max
	}
	return out
}
