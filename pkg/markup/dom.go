// Package markup holds the small amount of DOM walking the replay and table pages need.
package markup

import (
	"slices"
	"strings"

	"golang.org/x/net/html"
)

// Parse builds a node tree from doc. The html tokenizer recovers from any malformed input,
// so an error only surfaces from the underlying reader, which cannot fail for a string.
func Parse(doc string) *html.Node {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return &html.Node{Type: html.DocumentNode}
	}
	return root
}

// Attr returns the value of the named attribute.
func Attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// HasClass reports whether n is an element carrying class.
func HasClass(n *html.Node, class string) bool {
	if n.Type != html.ElementNode {
		return false
	}
	v, ok := Attr(n, "class")
	return ok && slices.Contains(strings.Fields(v), class)
}

// FindAll returns every descendant of n (n included) matching tag and class in document
// order. An empty tag or class matches anything.
func FindAll(n *html.Node, tag, class string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		if matches(c, tag, class) {
			out = append(out, c)
		}
		for child := c.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return out
}

// Find returns the first match of FindAll, or nil.
func Find(n *html.Node, tag, class string) *html.Node {
	if matches(n, tag, class) {
		return n
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if found := Find(child, tag, class); found != nil {
			return found
		}
	}
	return nil
}

// FindByID returns the first element of the given tag whose id attribute equals id.
func FindByID(n *html.Node, tag, id string) *html.Node {
	if n.Type == html.ElementNode && (tag == "" || n.Data == tag) {
		if v, ok := Attr(n, "id"); ok && v == id {
			return n
		}
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if found := FindByID(child, tag, id); found != nil {
			return found
		}
	}
	return nil
}

func matches(n *html.Node, tag, class string) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if tag != "" && n.Data != tag {
		return false
	}
	return class == "" || HasClass(n, class)
}

// Text concatenates every text node under n.
func Text(n *html.Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
		for child := c.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return b.String()
}
