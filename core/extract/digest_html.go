// Package extract converts raw HTML email bodies into normalized plain text.
package extract

import (
	"strings"

	"golang.org/x/net/html"
)

// Text parses HTML and returns only the human-visible text with all
// whitespace runs collapsed to single spaces. Malformed HTML degrades to
// best-effort text; the parser never fails on real-world newsletter markup.
func Text(htmlContent string) string {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return ""
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "noscript", "iframe", "head", "meta", "link":
				return
			}
		case html.TextNode:
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return strings.Join(strings.Fields(b.String()), " ")
}

// TextStripEmoji is Text with emoji and pictograph code points removed,
// used by the batch ingestion path.
func TextStripEmoji(htmlContent string) string {
	return strings.Join(strings.Fields(stripEmoji(Text(htmlContent))), " ")
}

// emojiRanges covers emoticons, pictographs, transport symbols, dingbats,
// extended symbol blocks, and the zero-width joiner.
var emojiRanges = [][2]rune{
	{0x1F600, 0x1F64F},
	{0x1F300, 0x1F5FF},
	{0x1F680, 0x1F6FF},
	{0x1F700, 0x1F77F},
	{0x1F780, 0x1F7FF},
	{0x1F800, 0x1F8FF},
	{0x1F900, 0x1F9FF},
	{0x1FA00, 0x1FA6F},
	{0x1FA70, 0x1FAFF},
	{0x2702, 0x27B0},
	{0x24C2, 0x1F251},
	{0x200D, 0x200D},
}

func stripEmoji(s string) string {
	return strings.Map(func(r rune) rune {
		for _, rng := range emojiRanges {
			if r >= rng[0] && r <= rng[1] {
				return -1
			}
		}
		return r
	}, s)
}
