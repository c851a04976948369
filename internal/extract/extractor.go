// Package extract strips boilerplate markup from crawled pages and
// yields the title, main textual content and a best-effort publication
// timestamp.
package extract

import (
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// Result is the normalized output for one page. PublishedAt is nil when
// no usable timestamp was found; extraction is best-effort only.
type Result struct {
	Title       string
	Content     string
	PublishedAt *time.Time
}

// Element names removed wholesale before text extraction.
var strippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"header":   true,
	"footer":   true,
	"nav":      true,
	"aside":    true,
}

// Class tokens that mark navigation chrome on pages that don't use
// semantic elements.
var strippedClasses = map[string]bool{
	"nav":     true,
	"header":  true,
	"footer":  true,
	"sidebar": true,
	"menu":    true,
}

// Layouts tried when parsing datetime attributes and meta tags.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"02 January 2006",
	"2 January 2006",
}

// Extract parses the markup, removes non-content elements destructively
// and returns the page title, normalized text and publication time.
// Content comes from the first <main> element when present, otherwise
// from the whole body.
func Extract(src string) (*Result, error) {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return nil, err
	}

	res := &Result{
		Title: strings.TrimSpace(textContent(find(doc, "title"))),
	}

	// Strip before looking for datetime attributes so a <time> in a
	// nav or footer cannot shadow the article's own timestamp.
	stripBoilerplate(doc)
	res.PublishedAt = publishedAt(doc)

	root := find(doc, "main")
	if root == nil || strings.TrimSpace(textContent(root)) == "" {
		root = find(doc, "body")
	}
	if root != nil {
		res.Content = normalize(blockText(root))
	}

	return res, nil
}

// publishedAt returns, in order of preference: an explicit datetime
// attribute, the article:modified_time meta tag, the last-modified meta
// tag. Unparseable values are treated as absent.
func publishedAt(doc *html.Node) *time.Time {
	if v := firstAttrValue(doc, "datetime"); v != "" {
		if t := parseTime(v); t != nil {
			return t
		}
	}
	if v := metaContent(doc, "property", "article:modified_time"); v != "" {
		if t := parseTime(v); t != nil {
			return t
		}
	}
	if v := metaContent(doc, "name", "last-modified"); v != "" {
		if t := parseTime(v); t != nil {
			return t
		}
	}
	return nil
}

func parseTime(v string) *time.Time {
	v = strings.TrimSpace(v)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return &t
		}
	}
	return nil
}

// stripBoilerplate detaches non-content subtrees from the document.
func stripBoilerplate(n *html.Node) {
	var doomed []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (strippedElements[c.Data] || hasStrippedClass(c)) {
			doomed = append(doomed, c)
			continue
		}
		stripBoilerplate(c)
	}
	for _, c := range doomed {
		n.RemoveChild(c)
	}
}

func hasStrippedClass(n *html.Node) bool {
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		for _, cls := range strings.Fields(a.Val) {
			if strippedClasses[strings.ToLower(cls)] {
				return true
			}
		}
	}
	return false
}

func find(n *html.Node, name string) *html.Node {
	if n.Type == html.ElementNode && n.Data == name {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := find(c, name); found != nil {
			return found
		}
	}
	return nil
}

func firstAttrValue(n *html.Node, key string) string {
	if n.Type == html.ElementNode {
		for _, a := range n.Attr {
			if a.Key == key && strings.TrimSpace(a.Val) != "" {
				return a.Val
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if v := firstAttrValue(c, key); v != "" {
			return v
		}
	}
	return ""
}

func metaContent(n *html.Node, attrKey, attrVal string) string {
	if n.Type == html.ElementNode && n.Data == "meta" {
		matched := false
		content := ""
		for _, a := range n.Attr {
			switch a.Key {
			case attrKey:
				matched = strings.EqualFold(a.Val, attrVal)
			case "content":
				content = a.Val
			}
		}
		if matched {
			return content
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if v := metaContent(c, attrKey, attrVal); v != "" {
			return v
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

var blockElements = map[string]bool{
	"p": true, "div": true, "section": true, "article": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"li": true, "tr": true, "blockquote": true, "pre": true,
	"table": true, "ul": true, "ol": true,
}

// blockText renders the subtree's text with paragraph breaks at block
// element boundaries so the chunker sees real paragraph structure.
func blockText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
		case html.ElementNode:
			if n.Data == "br" || n.Data == "hr" {
				sb.WriteString("\n")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockElements[n.Data] {
			sb.WriteString("\n\n")
		}
	}
	walk(n)
	return sb.String()
}

var horizontalSpace = regexp.MustCompile(`[ \t\r]+`)

// normalize collapses runs of spaces, trims every line and bounds
// consecutive blank lines to one, yielding stable text for hashing.
func normalize(s string) string {
	s = horizontalSpace.ReplaceAllString(s, " ")

	var out []string
	blank := true // swallow leading blank lines
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			if !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, line)
		blank = false
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return strings.Join(out, "\n")
}
