package app

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classify/catalog/pkg/logger"
)

// startServer runs a memory-backed application behind a real listener.
func startServer(t *testing.T) string {
	t.Helper()
	a, err := NewApp(loadConfig(t, nil), logger.Discard())
	require.NoError(t, err)

	srv := httptest.NewServer(a.Handler())
	t.Cleanup(func() {
		srv.Close()
		_ = a.closeBackends()
	})
	return srv.URL
}

// doJSONRequest sends body as JSON and decodes the JSON response.
func doJSONRequest(t *testing.T, method, url string, body any) (int, map[string]any) {
	t.Helper()
	var bodyReader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		bodyReader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

// extractField walks a dotted path such as "data.reviews" through decoded JSON.
func extractField(data map[string]any, path string) any {
	var cur any = data
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[part]
	}
	return cur
}

func courseBody(code string, prereqs ...string) map[string]any {
	if prereqs == nil {
		prereqs = []string{}
	}
	return map[string]any{
		"course_code":   code,
		"course_level":  "Undergraduate",
		"course_name":   "Course " + code,
		"department":    "CS",
		"credits":       3,
		"description":   "Flow test course.",
		"prerequisites": prereqs,
		"professors":    []string{"Smith"},
		"usefulness":    map[string]any{"required_for": []string{}, "elective": false},
		"reviews":       []any{},
	}
}

func TestFlow_CreateReviewAndQuery(t *testing.T) {
	base := startServer(t) + "/api/v1/courses"

	status, _ := doJSONRequest(t, http.MethodPost, base, courseBody("CS 0445"))
	require.Equal(t, http.StatusCreated, status)
	status, _ = doJSONRequest(t, http.MethodPost, base, courseBody("cs1501", "CS0445"))
	require.Equal(t, http.StatusCreated, status)

	status, data := doJSONRequest(t, http.MethodGet, base+"/CS0445/reviews", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, extractField(data, "data"))

	review := map[string]any{
		"professor": "Smith",
		"semester":  "Fall 2025",
		"ratings":   map[string]int{"workload": 4, "difficulty": 3, "usefulness": 5, "overall": 4},
		"comment":   "Good",
	}
	status, _ = doJSONRequest(t, http.MethodPost, base+"/cs0445/reviews", review)
	require.Equal(t, http.StatusCreated, status)

	status, data = doJSONRequest(t, http.MethodGet, base+"/CS0445/reviews", nil)
	require.Equal(t, http.StatusOK, status)
	reviews, ok := extractField(data, "data").([]any)
	require.True(t, ok)
	require.Len(t, reviews, 1)
	got := reviews[0].(map[string]any)
	assert.Equal(t, "Smith", got["professor"])
	assert.Equal(t, "Good", got["comment"])
	assert.NotEmpty(t, got["id"])
	assert.NotEmpty(t, got["created_at"])

	status, data = doJSONRequest(t, http.MethodGet, base+"/CS0445/required-for", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{"CS1501"}, extractField(data, "data.required_for"))

	status, _ = doJSONRequest(t, http.MethodDelete, base+"/CS0445", nil)
	require.Equal(t, http.StatusNoContent, status)

	status, data = doJSONRequest(t, http.MethodGet, base+"/CS0445", nil)
	require.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", extractField(data, "error.code"))
}

func TestFlow_DuplicateCourseConflicts(t *testing.T) {
	base := startServer(t) + "/api/v1/courses"

	status, _ := doJSONRequest(t, http.MethodPost, base, courseBody("CS0007"))
	require.Equal(t, http.StatusCreated, status)

	status, data := doJSONRequest(t, http.MethodPost, base, courseBody("cs 0007"))
	require.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "DUPLICATE_KEY", extractField(data, "error.code"))
}
