package extract

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// NormalizeSpace trims s and collapses every internal run of whitespace
// (spaces, tabs, newlines) to a single space.
func NormalizeSpace(s string) string {
	return whitespaceRun.ReplaceAllString(strings.TrimSpace(s), " ")
}

// stripQuotes removes surrounding straight double quotes from a text chunk.
func stripQuotes(s string) string {
	return strings.Trim(s, `"`)
}

// nodeText returns the concatenated text of n's subtree.
func nodeText(n *html.Node) string {
	if n == nil {
		return ""
	}
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(nodeText(c))
	}
	return b.String()
}

// textLines flattens n's subtree into newline-separated text chunks, one per
// text node, skipping empties. This is what the line-based splitter scans.
func textLines(n *html.Node) string {
	var lines []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				lines = append(lines, t)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(lines, "\n")
}

// isLabelNode reports whether n is a <b>/<strong> element, the markers that
// delimit sections inside a detail panel.
func isLabelNode(n *html.Node) bool {
	return n.Type == html.ElementNode && (n.Data == "b" || n.Data == "strong")
}

func isStatusLabel(text string) bool {
	return strings.Contains(strings.ToLower(text), "status:")
}

func isDetailsLabel(text string) bool {
	return strings.Contains(text, "Details") && !isStatusLabel(text)
}

// splitSections separates the text that follows a "Details" label from the
// text that follows a "State status:"-style label inside a detail cell.
// Labels are bold elements; everything between a label and the next one
// belongs to that label's section. A missing label leaves its field empty.
func splitSections(cell *html.Node) (details, status string) {
	detailsMarker := findLabel(cell, isDetailsLabel)
	statusMarker := findLabel(cell, isStatusLabel)

	if detailsMarker != nil {
		var parts []string
		for sib := detailsMarker.NextSibling; sib != nil; sib = sib.NextSibling {
			if sib.Type == html.ElementNode && sib.Data == "br" {
				continue
			}
			if isLabelNode(sib) && isStatusLabel(nodeText(sib)) {
				break
			}
			text := strings.TrimSpace(nodeText(sib))
			if len(parts) == 0 {
				// Handle "<b>Details</b>: text" where the colon lands in
				// the first following text node.
				text = strings.TrimSpace(strings.TrimPrefix(text, ":"))
			}
			if text == "" || isStatusLabel(text) {
				continue
			}
			parts = append(parts, stripQuotes(text))
		}
		details = NormalizeSpace(strings.Join(parts, " "))
	}

	if statusMarker != nil {
		markerText := nodeText(statusMarker)
		if idx := strings.Index(markerText, ":"); idx >= 0 {
			status = NormalizeSpace(markerText[idx+1:])
		}
		// Text following the marker wins over text inside it.
		for sib := statusMarker.NextSibling; sib != nil; sib = sib.NextSibling {
			if sib.Type == html.ElementNode && sib.Data == "br" {
				continue
			}
			if isLabelNode(sib) {
				break
			}
			if text := strings.TrimSpace(nodeText(sib)); text != "" {
				status = NormalizeSpace(stripQuotes(text))
				break
			}
		}
	}

	return details, status
}

// findLabel returns the first bold element in the subtree whose text
// satisfies match, or nil.
func findLabel(n *html.Node, match func(string) bool) *html.Node {
	if isLabelNode(n) && match(nodeText(n)) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findLabel(c, match); found != nil {
			return found
		}
	}
	return nil
}

// splitSectionsText is the line-based splitter used when the cell carries no
// bold labels, and by the live extractor (which only sees flat cell text).
// Same label rules: no "Details" line, no details; no "status:" line, no
// status.
func splitSectionsText(text string) (details, status string) {
	var detailParts, statusParts []string
	inDetails, inStatus := false, false

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !inDetails && strings.Contains(line, "Details") && !isStatusLabel(line) {
			inDetails, inStatus = true, false
			// "Details: inline text" keeps the text after the colon.
			if idx := strings.Index(line, ":"); idx >= 0 {
				if rest := strings.TrimSpace(line[idx+1:]); rest != "" {
					detailParts = append(detailParts, stripQuotes(rest))
				}
			}
			continue
		}
		if isStatusLabel(line) {
			inDetails, inStatus = false, true
			if idx := strings.Index(line, ":"); idx >= 0 {
				if rest := strings.TrimSpace(line[idx+1:]); rest != "" {
					statusParts = append(statusParts, stripQuotes(rest))
				}
			}
			continue
		}
		switch {
		case inStatus:
			statusParts = append(statusParts, stripQuotes(line))
		case inDetails:
			detailParts = append(detailParts, stripQuotes(line))
		}
	}

	return NormalizeSpace(strings.Join(detailParts, " ")),
		NormalizeSpace(strings.Join(statusParts, " "))
}
