package llm

import "context"

// ItemDescription is what the vision model sees in a listing photo.
type ItemDescription struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	// Category is one of the marketplace categories, or empty if none fit.
	Category string `json:"category"`
	// Condition is one of the known conditions, or empty if it cannot be judged.
	Condition string `json:"condition"`
}

// Usage contains token usage and cost information.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
	CostUSD      float64
}

// AnalysisResult contains the item description and usage information.
type AnalysisResult struct {
	Item  *ItemDescription
	Usage Usage
}

// Analyzer describes items from photos.
type Analyzer interface {
	// AnalyzeImages analyzes photos of the same item together.
	AnalyzeImages(ctx context.Context, images [][]byte) (*AnalysisResult, error)
}
