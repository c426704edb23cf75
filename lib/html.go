package lib

import (
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// ExtractImageURL pulls a representative image out of a feed item's HTML
// content, preferring social-preview metadata over inline images.
func ExtractImageURL(fragment string) string {
	doc, err := htmlquery.Parse(strings.NewReader(fragment))
	if err != nil {
		return ""
	}
	if url := extractOpengraphImage(doc); url != "" {
		return url
	}
	if url := extractTwitterImage(doc); url != "" {
		return url
	}
	return extractInlineImage(doc)
}

func extractOpengraphImage(n *html.Node) string {
	elem := htmlquery.FindOne(n, "//meta[@property = 'og:image']")
	return attrValue(elem, "content")
}

func extractTwitterImage(n *html.Node) string {
	elem := htmlquery.FindOne(n, "//meta[@name = 'twitter:image']")
	return attrValue(elem, "content")
}

func extractInlineImage(n *html.Node) string {
	elem := htmlquery.FindOne(n, "//img")
	return attrValue(elem, "src")
}

func attrValue(n *html.Node, key string) string {
	if n == nil {
		return ""
	}
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
