// Package reasoning splits backend output into its thinking and answer parts.
package reasoning

import (
	"regexp"
	"strings"
)

var (
	detailsBlock = regexp.MustCompile(`(?s)<details.*?>(.*?)</details>(.*)`)
	summaryBlock = regexp.MustCompile(`(?s)<summary>.*?</summary>`)
)

// Extract looks for the first <details>...</details> block in text. When one
// is found, reasoning is its inner text without any <summary> element and
// content is whatever follows the closing tag, both trimmed. Otherwise
// reasoning is empty and content is text unchanged.
//
// Only the first block is considered; output with several blocks keeps the
// rest inside content.
func Extract(text string) (reasoning, content string) {
	m := detailsBlock.FindStringSubmatch(text)
	if m == nil {
		return "", text
	}
	reasoning = strings.TrimSpace(summaryBlock.ReplaceAllString(m[1], ""))
	content = strings.TrimSpace(m[2])
	return reasoning, content
}
