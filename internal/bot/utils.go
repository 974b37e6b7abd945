package bot

import (
	"fmt"
	"strings"

	"github.com/lithammer/dedent"
)

func formatReplyText(text string, a ...any) string {
	return fmt.Sprintf(strings.TrimSpace(dedent.Dedent(text)), a...)
}

// parseCommand splits "/price a | b" into "/price" and its argument string.
// A bot mention suffix ("/price@campus_bot") is dropped.
func parseCommand(s string) (string, string) {
	s = strings.TrimSpace(s)
	name, args, _ := strings.Cut(s, " ")
	if at := strings.Index(name, "@"); at != -1 {
		name = name[:at]
	}
	return strings.ToLower(name), strings.TrimSpace(args)
}

// escapeMarkdown escapes special characters for Telegram Markdown V1
func escapeMarkdown(text string) string {
	text = strings.ReplaceAll(text, "*", "\\*")
	text = strings.ReplaceAll(text, "_", "\\_")
	text = strings.ReplaceAll(text, "`", "\\`")
	text = strings.ReplaceAll(text, "[", "\\[")
	return text
}
