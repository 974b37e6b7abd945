package bot

import (
	"fmt"
	"strings"

	"github.com/campusconnect/campusconnect/internal/llm"
	"github.com/campusconnect/campusconnect/internal/pricing"
)

const maxSimilarShown = 5

// parsePriceArgs parses "category | condition | title [| description]".
// A category matching one of categories, ignoring case, takes its spelling.
func parsePriceArgs(args string, categories []string) (pricing.Request, bool) {
	parts := strings.SplitN(args, "|", 4)
	if len(parts) < 3 {
		return pricing.Request{}, false
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	req := pricing.Request{
		Category:  parts[0],
		Condition: pricing.ParseCondition(parts[1]),
		Title:     parts[2],
	}
	if len(parts) == 4 {
		req.Description = parts[3]
	}
	if req.Category == "" || req.Title == "" {
		return pricing.Request{}, false
	}

	for _, c := range categories {
		if strings.EqualFold(c, req.Category) {
			req.Category = c
			break
		}
	}
	return req, true
}

func formatAnalysis(a pricing.PriceAnalysis) string {
	text := formatReplyText(msgAnalysis,
		a.SuggestedPrice,
		a.PriceRange.Min,
		a.PriceRange.Max,
		a.Confidence,
		escapeMarkdown(a.Reasoning),
	)

	if len(a.SimilarListings) == 0 {
		return text
	}

	var sb strings.Builder
	sb.WriteString(text)
	sb.WriteString("\n\n*Similar listings*")
	for i, s := range a.SimilarListings {
		if i == maxSimilarShown {
			break
		}
		fmt.Fprintf(&sb, "\n• %s: $%s", escapeMarkdown(s.Title), formatPrice(s.Price))
		if s.Condition != "" {
			fmt.Fprintf(&sb, ", %s", escapeMarkdown(string(s.Condition)))
		}
		fmt.Fprintf(&sb, ", %s", formatDaysAgo(s.DaysAgo))
	}
	return sb.String()
}

func formatPhotoAnalysis(item *llm.ItemDescription) string {
	category := item.Category
	if category == "" {
		category = "unknown"
	}
	condition := item.Condition
	if condition == "" {
		condition = "unknown"
	}
	return formatReplyText(msgPhotoAnalysis,
		escapeMarkdown(item.Title),
		escapeMarkdown(item.Description),
		escapeMarkdown(category),
		escapeMarkdown(condition),
	)
}

func formatPrice(p float64) string {
	if p == float64(int64(p)) {
		return fmt.Sprintf("%d", int64(p))
	}
	return fmt.Sprintf("%.2f", p)
}

func formatDaysAgo(days int) string {
	switch days {
	case 0:
		return "today"
	case 1:
		return "1 day ago"
	default:
		return fmt.Sprintf("%d days ago", days)
	}
}
