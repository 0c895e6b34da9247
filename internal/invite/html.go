package invite

import (
	"fmt"
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// blockElements end a line when flattened to text.
const blockElements = "p, div, li, tr, h1, h2, h3, h4, h5, h6, pre, blockquote"

// ParseHTML flattens an HTML invite (as copied from a mail client) to text and parses it.
func ParseHTML(markup string) (ParsedInvite, error) {
	text, err := HTMLToText(markup)
	if err != nil {
		return ParsedInvite{}, err
	}
	return Parse(text), nil
}

// HTMLToText converts HTML to plain text, keeping line breaks at <br> and block boundaries.
// Link targets are appended after the anchor text so join URLs hidden behind labels survive.
func HTMLToText(markup string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return "", fmt.Errorf("failed to parse invite HTML: %w", err)
	}

	doc.Find("script, style").Remove()
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if href != "" && !strings.Contains(a.Text(), href) {
			a.AppendHtml(" " + html.EscapeString(href))
		}
	})
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find(blockElements).AppendHtml("\n")

	lines := strings.Split(doc.Text(), "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(strings.ReplaceAll(line, "\u00a0", " "))
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n"), nil
}
