package dom

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ParseFragment parses markup as the children of a <div>.
func ParseFragment(markup string) ([]*html.Node, error) {
	container := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(markup), container)
	if err != nil {
		return nil, fmt.Errorf("parse fragment: %w", err)
	}
	return nodes, nil
}

// ExtractScripts returns the script elements found anywhere in markup, in
// document order, and the markup with those elements removed.
func ExtractScripts(markup string) (string, []Script, error) {
	nodes, err := ParseFragment(markup)
	if err != nil {
		return "", nil, err
	}

	root := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	for _, n := range nodes {
		root.AppendChild(n)
	}

	var found []*html.Node
	walk(root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.DataAtom == atom.Script {
			found = append(found, n)
			return false
		}
		return true
	})

	scripts := make([]Script, 0, len(found))
	for _, n := range found {
		s := Script{Src: attr(n, "src")}
		if s.Src == "" {
			s.Text = innerText(n)
		}
		scripts = append(scripts, s)
		n.Parent.RemoveChild(n)
	}

	var b strings.Builder
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&b, c); err != nil {
			return "", nil, fmt.Errorf("render fragment: %w", err)
		}
	}
	return b.String(), scripts, nil
}

// TextContent flattens markup to text; <br> becomes a newline and script
// and style bodies are dropped.
func TextContent(markup string) string {
	if markup == "" {
		return ""
	}
	nodes, err := ParseFragment(markup)
	if err != nil {
		return markup
	}
	var b strings.Builder
	for _, n := range nodes {
		walk(n, func(n *html.Node) bool {
			switch {
			case n.Type == html.TextNode:
				b.WriteString(n.Data)
			case n.Type == html.ElementNode && n.DataAtom == atom.Br:
				b.WriteByte('\n')
			case n.Type == html.ElementNode && (n.DataAtom == atom.Script || n.DataAtom == atom.Style):
				return false
			}
			return true
		})
	}
	return b.String()
}

// Alert is a rendered flash banner.
type Alert struct {
	Category string
	Text     string
}

// FindAlert locates the first element carrying an "alert-<category>" class
// other than alert-dismissible.
func FindAlert(markup string) (Alert, bool) {
	nodes, err := ParseFragment(markup)
	if err != nil {
		return Alert{}, false
	}
	var (
		alert Alert
		found bool
	)
	for _, n := range nodes {
		walk(n, func(n *html.Node) bool {
			if found || n.Type != html.ElementNode {
				return !found
			}
			for _, class := range strings.Fields(attr(n, "class")) {
				if strings.HasPrefix(class, "alert-") && class != "alert-dismissible" {
					var b strings.Builder
					for c := n.FirstChild; c != nil; c = c.NextSibling {
						_ = html.Render(&b, c)
					}
					alert = Alert{
						Category: strings.TrimPrefix(class, "alert-"),
						Text:     strings.TrimSpace(TextContent(b.String())),
					}
					found = true
					return false
				}
			}
			return true
		})
	}
	return alert, found
}

// walk visits n and its descendants depth first; returning false from fn
// skips the node's children.
func walk(n *html.Node, fn func(*html.Node) bool) {
	if !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		walk(c, fn)
		c = next
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func innerText(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}
