package pricing

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// maxPromptSamples caps how many listings are quoted to the model as context.
const maxPromptSamples = 5

const priceAdvicePrompt = `You are a pricing assistant for a university student marketplace. Suggest a fair asking price in US dollars for the item below.

Title: %s
Category: %s
Condition: %s
Description: %s

Recent listings in the same category:
%s

Students price second-hand items below retail. Consider the condition and the typical student budget.

Respond in exactly this format, with whole-dollar numbers and no other text:
SUGGESTED_PRICE: <number>
MIN_PRICE: <number>
MAX_PRICE: <number>
REASONING: <one or two sentences>`

var (
	suggestedPricePattern = regexp.MustCompile(`(?i)SUGGESTED_PRICE:\s*\$?(\d+(?:\.\d+)?)`)
	minPricePattern       = regexp.MustCompile(`(?i)MIN_PRICE:\s*\$?(\d+(?:\.\d+)?)`)
	maxPricePattern       = regexp.MustCompile(`(?i)MAX_PRICE:\s*\$?(\d+(?:\.\d+)?)`)
	reasoningPattern      = regexp.MustCompile(`(?i)REASONING:\s*(.+)`)
)

// buildPrompt renders the AI fallback prompt with up to maxPromptSamples
// context listings.
func buildPrompt(req Request, examples []ListingSample) string {
	var lines []string
	for i, s := range examples {
		if i == maxPromptSamples {
			break
		}
		price := "no price"
		if s.Price > 0 {
			price = fmt.Sprintf("$%d", roundPrice(s.Price))
		}
		lines = append(lines, fmt.Sprintf("- %s (%s, %s)", s.Title, conditionLabel(s.Condition), price))
	}
	samples := "None available."
	if len(lines) > 0 {
		samples = strings.Join(lines, "\n")
	}

	description := strings.TrimSpace(req.Description)
	if description == "" {
		description = "(none)"
	}

	return fmt.Sprintf(priceAdvicePrompt, req.Title, categoryLabel(req.Category), conditionLabel(req.Condition), description, samples)
}

// aiEstimate holds the labelled fields parsed from a model response.
type aiEstimate struct {
	suggested int
	min       int
	max       int
	reasoning string
}

// parseAIResponse extracts the labelled price fields. All three numeric
// fields must be present.
// ValidateAIResponse reports whether text carries the labelled prices the AI
// tier needs.
func ValidateAIResponse(text string) error {
	_, err := parseAIResponse(text)
	return err
}

func parseAIResponse(text string) (aiEstimate, error) {
	suggested, err := matchPrice(suggestedPricePattern, text, "SUGGESTED_PRICE")
	if err != nil {
		return aiEstimate{}, err
	}
	minPrice, err := matchPrice(minPricePattern, text, "MIN_PRICE")
	if err != nil {
		return aiEstimate{}, err
	}
	maxPrice, err := matchPrice(maxPricePattern, text, "MAX_PRICE")
	if err != nil {
		return aiEstimate{}, err
	}
	if minPrice > maxPrice {
		minPrice, maxPrice = maxPrice, minPrice
	}

	reasoning := "Estimated by AI from the item details and current campus market conditions."
	if m := reasoningPattern.FindStringSubmatch(text); m != nil {
		if r := strings.TrimSpace(m[1]); r != "" {
			reasoning = r
		}
	}

	return aiEstimate{
		suggested: suggested,
		min:       minPrice,
		max:       maxPrice,
		reasoning: reasoning,
	}, nil
}

func matchPrice(re *regexp.Regexp, text, label string) (int, error) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0, fmt.Errorf("missing %s in response", label)
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", label, m[1], err)
	}
	return roundPrice(v), nil
}
