package chatclient

import (
	"regexp"
	"strings"
)

// Assistant replies can carry retrieval citation markers like 【4:0†source】
// or [3:1†notes.pdf]. They mean nothing to students, so the client strips
// them before display.
var citationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`【\d+:\d+†[^】]*】`),
	regexp.MustCompile(`【\d+†[^】]*】`),
	regexp.MustCompile(`\[\d+:\d+†[^\]]*\]`),
	regexp.MustCompile(`\[\d+†[^\]]*\]`),
}

var (
	multiSpace       = regexp.MustCompile(` {2,}`)
	spaceBeforePunct = regexp.MustCompile(` +([.,!?;:])`)
)

// CleanText removes citation markers and repairs the spacing damage their
// removal leaves behind.
func CleanText(s string) string {
	for _, p := range citationPatterns {
		s = p.ReplaceAllString(s, "")
	}
	s = multiSpace.ReplaceAllString(s, " ")
	s = spaceBeforePunct.ReplaceAllString(s, "$1")
	return strings.TrimSpace(s)
}
