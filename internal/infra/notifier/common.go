package notifier

import (
	"strings"
)

// telegramMessageLimit is the Bot API hard cap on message text length.
const telegramMessageLimit = 4096

// escapeHTML neutralizes user-supplied text for parse_mode=HTML. Telegram
// only requires the three entity characters.
func escapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

// flattenText collapses newlines inside model-generated fields so a story
// field renders as one paragraph.
func flattenText(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
}

// splitByLimit cuts text into chunks not exceeding limit runes, preferring
// whitespace boundaries.
func splitByLimit(text string, limit int) []string {
	runes := []rune(text)
	if len(runes) <= limit {
		return []string{text}
	}

	var chunks []string
	for len(runes) > limit {
		cut := limit
		for i := limit; i > limit/2; i-- {
			if runes[i-1] == ' ' || runes[i-1] == '\n' {
				cut = i
				break
			}
		}
		chunks = append(chunks, strings.TrimSpace(string(runes[:cut])))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		chunks = append(chunks, strings.TrimSpace(string(runes)))
	}
	return chunks
}
