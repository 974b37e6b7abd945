package pricing

import "strings"

// minKeywordLen is the shortest token that counts as a keyword.
const minKeywordLen = 3

// Keywords splits a title into lower-cased keywords, dropping tokens of two
// characters or fewer.
func Keywords(title string) []string {
	var keywords []string
	for _, token := range strings.Fields(title) {
		if len([]rune(token)) < minKeywordLen {
			continue
		}
		keywords = append(keywords, strings.ToLower(token))
	}
	return keywords
}

// MatchesAny reports whether title contains at least one of the keywords,
// ignoring case. Keywords must already be lower-cased.
func MatchesAny(title string, keywords []string) bool {
	if len(keywords) == 0 {
		return false
	}
	lower := strings.ToLower(title)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
