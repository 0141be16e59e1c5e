// Package htmlutil converts HTML documents into clean markdown-flavoured
// text suitable for chunking.
package htmlutil

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// Tags whose entire subtree is boilerplate, not content.
var dropTags = map[string]bool{
	"script": true,
	"style":  true,
	"nav":    true,
	"footer": true,
	"header": true,
	"aside":  true,
	"form":   true,
}

// Block-level tags that delimit paragraphs in the output.
var blockTags = map[string]bool{
	"p":          true,
	"div":        true,
	"section":    true,
	"article":    true,
	"main":       true,
	"ul":         true,
	"ol":         true,
	"table":      true,
	"blockquote": true,
	"pre":        true,
	"figure":     true,
}

var (
	blankRunRegex   = regexp.MustCompile(`\n{3,}`)
	spaceRunRegex   = regexp.MustCompile(`[ \t]+`)
	trailingWSRegex = regexp.MustCompile(`(?m)[ \t]+$`)
)

// Normalize parses HTML and renders it as clean text: boilerplate
// subtrees removed, headings as ATX markdown lines, images without a
// usable source dropped, and runs of three or more newlines collapsed
// to two. The result is trimmed; an empty result means the document has
// no usable content.
func Normalize(src string) (string, error) {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	var sb strings.Builder
	renderNode(&sb, doc)

	out := sb.String()
	out = spaceRunRegex.ReplaceAllString(out, " ")
	out = trailingWSRegex.ReplaceAllString(out, "")
	out = blankRunRegex.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out), nil
}

func renderNode(sb *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		text := strings.ReplaceAll(n.Data, "\n", " ")
		if strings.TrimSpace(text) != "" {
			sb.WriteString(text)
		}
		return
	case html.CommentNode, html.DoctypeNode:
		return
	case html.ElementNode:
		name := n.Data
		if dropTags[name] {
			return
		}

		switch {
		case isHeading(name):
			sb.WriteString("\n\n")
			sb.WriteString(strings.Repeat("#", headingLevel(name)))
			sb.WriteString(" ")
			sb.WriteString(strings.TrimSpace(collectText(n)))
			sb.WriteString("\n\n")
			return
		case name == "img":
			writeImage(sb, n)
			return
		case name == "br":
			sb.WriteString("\n")
			return
		case name == "li":
			sb.WriteString("\n- ")
			renderChildren(sb, n)
			return
		case name == "tr":
			sb.WriteString("\n")
			renderChildren(sb, n)
			return
		case name == "td", name == "th":
			renderChildren(sb, n)
			sb.WriteString(" ")
			return
		case blockTags[name]:
			sb.WriteString("\n\n")
			renderChildren(sb, n)
			sb.WriteString("\n\n")
			return
		}
	}

	renderChildren(sb, n)
}

func renderChildren(sb *strings.Builder, n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		renderNode(sb, c)
	}
}

// writeImage emits a markdown image for img tags with a real source.
// Empty and data-URI sources are dropped.
func writeImage(sb *strings.Builder, n *html.Node) {
	var src, alt string
	for _, attr := range n.Attr {
		switch attr.Key {
		case "src":
			src = strings.TrimSpace(attr.Val)
		case "alt":
			alt = strings.TrimSpace(attr.Val)
		}
	}
	if src == "" || strings.HasPrefix(src, "data:") {
		return
	}
	fmt.Fprintf(sb, "![%s](%s)", alt, src)
}

func collectText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(strings.ReplaceAll(node.Data, "\n", " "))
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return spaceRunRegex.ReplaceAllString(sb.String(), " ")
}

func isHeading(name string) bool {
	return len(name) == 2 && name[0] == 'h' && name[1] >= '1' && name[1] <= '6'
}

func headingLevel(name string) int {
	return int(name[1] - '0')
}
