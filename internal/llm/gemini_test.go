package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCategories = []string{"Academic Supplies", "Electronics", "Furniture", "Services", "Textbooks"}

func TestExtractJSONObject(t *testing.T) {
	got, err := extractJSONObject("```json\n{\"title\": \"Lamp\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, `{"title": "Lamp"}`, got)

	_, err = extractJSONObject("I cannot help with that.")
	assert.Error(t, err)
}

func TestParseItemDescription(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    *ItemDescription
		wantErr bool
	}{
		{
			name: "known category and condition",
			text: `{"title": " TI-84 Plus ", "description": "Graphing calculator.", "category": "electronics", "condition": "like new"}`,
			want: &ItemDescription{Title: "TI-84 Plus", Description: "Graphing calculator.", Category: "Electronics", Condition: "Like New"},
		},
		{
			name: "unknown values are cleared",
			text: `{"title": "Kayak", "description": "Two-person kayak.", "category": "Sports", "condition": "battered"}`,
			want: &ItemDescription{Title: "Kayak", Description: "Two-person kayak."},
		},
		{
			name:    "missing title",
			text:    `{"description": "Something"}`,
			wantErr: true,
		},
		{
			name:    "not json",
			text:    `{title: Lamp}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseItemDescription(tt.text, testCategories)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCalculateGeminiCost(t *testing.T) {
	cost := calculateGeminiCost(1_000_000, 500_000, geminiLiteInputPricePerMillion, geminiLiteOutputPricePerMillion)
	assert.InDelta(t, 0.30, cost, 1e-9)
}

func TestImageMIMEType(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	assert.Equal(t, "image/png", imageMIMEType(png))
	assert.Equal(t, "image/jpeg", imageMIMEType([]byte("\xff\xd8\xff\xe0")))
	assert.Equal(t, "image/jpeg", imageMIMEType([]byte("plain text")))
}

func geminiResponse(text string) string {
	body, _ := json.Marshal(map[string]any{
		"candidates": []map[string]any{{
			"content": map[string]any{
				"role":  "model",
				"parts": []map[string]any{{"text": text}},
			},
		}},
		"usageMetadata": map[string]any{
			"promptTokenCount":     120,
			"candidatesTokenCount": 30,
			"totalTokenCount":      150,
		},
	})
	return string(body)
}

func newTestGemini(t *testing.T, handler http.HandlerFunc) *GeminiClient {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	g, err := NewGeminiClient(context.Background(), GeminiOpts{
		APIKey:     "test-key",
		Categories: testCategories,
		BaseURL:    ts.URL,
	})
	require.NoError(t, err)
	return g
}

func TestGeminiClient_Generate(t *testing.T) {
	var gotPath, gotBody string
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, geminiResponse("SUGGESTED_PRICE: 45\n"))
	})

	text, err := g.Generate(context.Background(), "price this desk")
	require.NoError(t, err)
	assert.Equal(t, "SUGGESTED_PRICE: 45", text)
	assert.Contains(t, gotPath, geminiLiteModel+":generateContent")
	assert.Contains(t, gotBody, "price this desk")
}

func TestGeminiClient_AnalyzeImages(t *testing.T) {
	var gotBody string
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, geminiResponse(`{"title": "Desk lamp", "description": "LED lamp.", "category": "Furniture", "condition": "Good"}`))
	})

	result, err := g.AnalyzeImages(context.Background(), [][]byte{[]byte("\xff\xd8\xff\xe0img")})
	require.NoError(t, err)
	assert.Equal(t, &ItemDescription{Title: "Desk lamp", Description: "LED lamp.", Category: "Furniture", Condition: "Good"}, result.Item)
	assert.Equal(t, int64(150), result.Usage.TotalTokens)
	assert.True(t, strings.Contains(gotBody, "Academic Supplies, Electronics"))

	_, err = g.AnalyzeImages(context.Background(), nil)
	assert.Error(t, err)
}

func TestGeminiClient_ErrorStatus(t *testing.T) {
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error": {"code": 400, "message": "API key not valid", "status": "INVALID_ARGUMENT"}}`)
	})

	_, err := g.Generate(context.Background(), "prompt")
	assert.Error(t, err)
}

func TestNewGeminiClient_RequiresKey(t *testing.T) {
	_, err := NewGeminiClient(context.Background(), GeminiOpts{})
	assert.Error(t, err)
}
