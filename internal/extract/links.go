package extract

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	mdLinkPattern = regexp.MustCompile(`(!?)\[([^\]]*)\]\(\s*([^)\s]*)(?:\s+"[^"]*")?\s*\)`)
	schemePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*:`)
)

// LinkKind classifies a cross-reference target
type LinkKind string

const (
	LinkExternal LinkKind = "external" // Absolute URL
	LinkSection  LinkKind = "section"  // Contains a # fragment
	LinkFile     LinkKind = "file"     // Relative path
)

// Link is a Markdown or inline HTML link or image
type Link struct {
	Text   string // Link text, or alt text for images
	Target string
	Line   int // 1-based
	Image  bool
	HTML   bool // Found in inline HTML rather than Markdown syntax
}

// Kind classifies the link target
func (l Link) Kind() LinkKind {
	switch {
	case IsExternal(l.Target):
		return LinkExternal
	case strings.Contains(l.Target, "#"):
		return LinkSection
	default:
		return LinkFile
	}
}

// IsExternal reports whether a target is an absolute URL (any scheme, including mailto:)
func IsExternal(target string) bool {
	return schemePattern.MatchString(target) || strings.HasPrefix(target, "//")
}

// SplitTarget splits a relative target into its unescaped file part and anchor
func SplitTarget(target string) (file, anchor string) {
	file = target
	if idx := strings.Index(file, "#"); idx >= 0 {
		anchor = file[idx+1:]
		file = file[:idx]
	}
	if idx := strings.Index(file, "?"); idx >= 0 {
		file = file[:idx]
	}
	if unescaped, err := url.PathUnescape(file); err == nil {
		file = unescaped
	}
	return file, anchor
}

// extractLinks collects Markdown links/images and inline HTML anchors/images outside code blocks
func (d *Document) extractLinks() {
	for i, line := range d.Lines {
		if d.InCode(i) {
			continue
		}

		for _, m := range mdLinkPattern.FindAllStringSubmatch(line, -1) {
			link := Link{
				Text:   strings.TrimSpace(m[2]),
				Target: strings.Trim(m[3], "<>"),
				Line:   i + 1,
				Image:  m[1] == "!",
			}
			if link.Image {
				d.Images = append(d.Images, link)
			} else {
				d.Links = append(d.Links, link)
			}
		}

		lower := strings.ToLower(line)
		if strings.Contains(lower, "<a ") || strings.Contains(lower, "<img") {
			links, images := extractHTML(line, i+1)
			d.Links = append(d.Links, links...)
			d.Images = append(d.Images, images...)
		}
	}
}

// extractHTML walks an inline HTML fragment for <a href> and <img> elements
func extractHTML(fragment string, line int) (links, images []Link) {
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return nil, nil
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "a":
				href, ok := attr(n, "href")
				if ok {
					links = append(links, Link{
						Text:   strings.TrimSpace(nodeText(n)),
						Target: strings.TrimSpace(href),
						Line:   line,
						HTML:   true,
					})
				}
			case "img":
				alt, _ := attr(n, "alt")
				src, _ := attr(n, "src")
				images = append(images, Link{
					Text:   strings.TrimSpace(alt),
					Target: strings.TrimSpace(src),
					Line:   line,
					Image:  true,
					HTML:   true,
				})
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(doc)
	return links, images
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func nodeText(n *html.Node) string {
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return buf.String()
}
