package parser

import (
	"regexp"
	"strings"
)

var (
	blockOpenRe  = regexp.MustCompile(`(?i)\[NEW CHARACTERS\]`)
	blockCloseRe = regexp.MustCompile(`(?i)\[/NEW CHARACTERS\]`)
	sectionTagRe = regexp.MustCompile(`(?i)\[/?(?:STORY|CHOICES)\]`)

	// rosterFieldRe matches the "Key: value" lines of a character entry.
	rosterFieldRe = regexp.MustCompile(`(?i)^\s*(?:[-*•]\s*)?(?:\*\*)?(?:name|relationship|relation|sect|role)(?:\*\*)?\s*:`)
)

// stripCharacterBlocks removes [NEW CHARACTERS] blocks so roster lines never
// reach content or choices. The character extractor reads them from the raw
// response. An unclosed block ends at the next section tag or at the first
// line that is not a roster field.
func stripCharacterBlocks(text string) string {
	for {
		open := blockOpenRe.FindStringIndex(text)
		if open == nil {
			return text
		}
		end := open[1] + blockEnd(text[open[1]:])
		text = text[:open[0]] + "\n" + text[end:]
	}
}

// blockEnd returns the offset in rest just past the block body.
func blockEnd(rest string) int {
	limit := len(rest)
	if loc := sectionTagRe.FindStringIndex(rest); loc != nil {
		limit = loc[0]
	}
	if loc := blockCloseRe.FindStringIndex(rest[:limit]); loc != nil {
		return loc[1]
	}

	pos := 0
	for pos < limit {
		lineEnd, next := limit, limit
		if nl := strings.IndexByte(rest[pos:limit], '\n'); nl >= 0 {
			lineEnd, next = pos+nl, pos+nl+1
		}
		line := strings.TrimSpace(rest[pos:lineEnd])
		if line != "" && !rosterFieldRe.MatchString(line) {
			return pos
		}
		pos = next
	}
	return limit
}
