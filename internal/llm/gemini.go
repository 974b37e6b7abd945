// Package llm wraps the Gemini API: free-form text generation for the price
// advisor and photo analysis for listing drafts.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/campusconnect/campusconnect/internal/pricing"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

const (
	geminiModel     = "gemini-2.5-flash"
	geminiLiteModel = "gemini-2.5-flash-lite"
)

// MaxImages is the most photos sent in one vision request.
const MaxImages = 10

// Gemini pricing (per million tokens)
const (
	geminiInputPricePerMillion      = 0.30
	geminiOutputPricePerMillion     = 2.50
	geminiLiteInputPricePerMillion  = 0.10
	geminiLiteOutputPricePerMillion = 0.40
)

const visionPrompt = `Analyze the photo(s) of an item a student wants to sell on a campus marketplace. All photos show the same item.

Respond in JSON format with these fields:
- title: A short, descriptive listing title. Include brand and model if visible.
- description: 2-3 sentences describing the item and any visible wear.
- category: Exactly one of: %s. Use an empty string if none fit.
- condition: Exactly one of: %s. Use an empty string if it cannot be judged from the photos.

Example response:
{"title": "TI-84 Plus CE graphing calculator", "description": "Color graphing calculator with charging cable. Light scratches on the case, screen is clean.", "category": "Electronics", "condition": "Good"}

Respond ONLY with the JSON object, no markdown or other text.`

// GeminiOpts configures a GeminiClient.
type GeminiOpts struct {
	APIKey string
	// Categories constrains the category the vision model may choose.
	Categories []string
	// BaseURL overrides the API endpoint.
	BaseURL string
}

// GeminiClient generates text and analyzes images with Gemini.
type GeminiClient struct {
	client     *genai.Client
	categories []string
}

// NewGeminiClient creates a Gemini client.
func NewGeminiClient(ctx context.Context, opts GeminiOpts) (*GeminiClient, error) {
	if opts.APIKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	config := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		config.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}

	client, err := genai.NewClient(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	categories := opts.Categories
	if len(categories) == 0 {
		categories = pricing.NewBasePrices().Categories()
	}

	return &GeminiClient{client: client, categories: categories}, nil
}

// Generate implements pricing.TextGenerator using the lite model.
func (g *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	result, err := g.client.Models.GenerateContent(ctx, geminiLiteModel, []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{genai.NewPartFromText(prompt)}, genai.RoleUser),
	}, nil)
	if err != nil {
		return "", fmt.Errorf("gemini lite call failed: %w", err)
	}

	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from gemini lite")
	}

	text := strings.TrimSpace(result.Text())

	if result.UsageMetadata != nil {
		cost := calculateGeminiCost(
			int64(result.UsageMetadata.PromptTokenCount),
			int64(result.UsageMetadata.CandidatesTokenCount),
			geminiLiteInputPricePerMillion,
			geminiLiteOutputPricePerMillion,
		)
		log.Info().
			Str("model", geminiLiteModel).
			Int("inputTokens", int(result.UsageMetadata.PromptTokenCount)).
			Int("outputTokens", int(result.UsageMetadata.CandidatesTokenCount)).
			Float64("costUSD", cost).
			Msg("price advice llm call")
	}

	return text, nil
}

// AnalyzeImages implements Analyzer. At most MaxImages photos are sent.
func (g *GeminiClient) AnalyzeImages(ctx context.Context, images [][]byte) (*AnalysisResult, error) {
	if len(images) == 0 {
		return nil, fmt.Errorf("no images provided")
	}
	if len(images) > MaxImages {
		images = images[:MaxImages]
	}

	parts := []*genai.Part{
		genai.NewPartFromText(g.visionPrompt()),
	}
	for _, img := range images {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{Data: img, MIMEType: imageMIMEType(img)},
		})
	}

	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	result, err := g.client.Models.GenerateContent(ctx, geminiModel, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no response from Gemini")
	}

	item, err := parseItemDescription(result.Text(), g.categories)
	if err != nil {
		return nil, err
	}

	usage := Usage{}
	if result.UsageMetadata != nil {
		usage.InputTokens = int64(result.UsageMetadata.PromptTokenCount)
		usage.OutputTokens = int64(result.UsageMetadata.CandidatesTokenCount)
		usage.TotalTokens = int64(result.UsageMetadata.TotalTokenCount)
		usage.CostUSD = calculateGeminiCost(usage.InputTokens, usage.OutputTokens, geminiInputPricePerMillion, geminiOutputPricePerMillion)
	}

	log.Info().
		Str("model", geminiModel).
		Int("imageCount", len(images)).
		Int64("inputTokens", usage.InputTokens).
		Int64("outputTokens", usage.OutputTokens).
		Float64("costUSD", usage.CostUSD).
		Msg("vision llm call")

	return &AnalysisResult{Item: item, Usage: usage}, nil
}

func (g *GeminiClient) visionPrompt() string {
	conditions := make([]string, len(pricing.Conditions))
	for i, c := range pricing.Conditions {
		conditions[i] = string(c)
	}
	return fmt.Sprintf(visionPrompt, strings.Join(g.categories, ", "), strings.Join(conditions, ", "))
}

// imageMIMEType sniffs the image format, defaulting to JPEG which is what
// Telegram delivers.
func imageMIMEType(data []byte) string {
	switch ct := http.DetectContentType(data); ct {
	case "image/png", "image/webp", "image/gif", "image/jpeg":
		return ct
	}
	return "image/jpeg"
}

func calculateGeminiCost(inputTokens, outputTokens int64, inputPrice, outputPrice float64) float64 {
	inputCost := float64(inputTokens) / 1_000_000 * inputPrice
	outputCost := float64(outputTokens) / 1_000_000 * outputPrice
	return inputCost + outputCost
}

// extractJSONObject extracts a JSON object from text that may contain markdown
// code blocks or other formatting.
func extractJSONObject(text string) (string, error) {
	text = strings.TrimSpace(text)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		return "", fmt.Errorf("no JSON object found in response: %s", text)
	}
	return text[start : end+1], nil
}

// parseItemDescription decodes the vision response. A category outside
// categories or an unknown condition is cleared rather than trusted.
func parseItemDescription(text string, categories []string) (*ItemDescription, error) {
	jsonStr, err := extractJSONObject(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse response JSON: %w", err)
	}

	var desc ItemDescription
	if err := json.Unmarshal([]byte(jsonStr), &desc); err != nil {
		return nil, fmt.Errorf("failed to parse response JSON: %w (response: %s)", err, jsonStr)
	}

	desc.Title = strings.TrimSpace(desc.Title)
	desc.Description = strings.TrimSpace(desc.Description)
	if desc.Title == "" {
		return nil, fmt.Errorf("vision response has no title (response: %s)", jsonStr)
	}

	category := strings.TrimSpace(desc.Category)
	desc.Category = ""
	for _, c := range categories {
		if strings.EqualFold(c, category) {
			desc.Category = c
			break
		}
	}

	condition := pricing.ParseCondition(desc.Condition)
	if condition.Known() {
		desc.Condition = string(condition)
	} else {
		desc.Condition = ""
	}

	return &desc, nil
}
