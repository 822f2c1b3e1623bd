package utils

import (
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/Rorical/wireui/internal/dom"
)

// Markup styles
func CodeBlockStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Background(lipgloss.Color("236")).
		Padding(0, 1).
		MarginLeft(2)
}

func CodeStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Background(lipgloss.Color("236"))
}

func BoldStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Bold(true)
}

func ItalicStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Italic(true)
}

func TitleStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Bold(true).
		Underline(true)
}

func SubtitleStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Bold(true)
}

func LinkStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Underline(true)
}

func ListStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		MarginLeft(2)
}

var (
	spaceRun  = regexp.MustCompile(`[ \t\r\n\f]+`)
	blankRuns = regexp.MustCompile(`\n{3,}`)
)

// RenderMarkup turns an HTML fragment into styled terminal text. Scripts
// and styles are dropped; block elements start new lines.
func RenderMarkup(markup string) string {
	nodes, err := dom.ParseFragment(markup)
	if err != nil {
		return markup
	}

	var b strings.Builder
	for _, n := range nodes {
		b.WriteString(renderNode(n))
	}

	lines := strings.Split(b.String(), "\n")
	for i, line := range lines {
		line = strings.TrimRight(line, " ")
		if strings.TrimSpace(line) == "" {
			line = ""
		}
		lines[i] = line
	}
	out := blankRuns.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.Trim(out, "\n")
}

func renderNode(n *html.Node) string {
	switch n.Type {
	case html.TextNode:
		return spaceRun.ReplaceAllString(n.Data, " ")
	case html.ElementNode:
	default:
		return renderChildren(n)
	}

	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Head:
		return ""
	case atom.Br:
		return "\n"
	case atom.H1, atom.H2:
		return "\n" + TitleStyle().Render(inline(n)) + "\n"
	case atom.H3, atom.H4, atom.H5, atom.H6:
		return "\n" + SubtitleStyle().Render(inline(n)) + "\n"
	case atom.B, atom.Strong:
		return BoldStyle().Render(renderChildren(n))
	case atom.I, atom.Em:
		return ItalicStyle().Render(renderChildren(n))
	case atom.A:
		return LinkStyle().Render(renderChildren(n))
	case atom.Code:
		return CodeStyle().Render(renderChildren(n))
	case atom.Pre:
		return "\n" + CodeBlockStyle().Render(strings.Trim(rawText(n), "\n")) + "\n"
	case atom.Li:
		return "\n" + ListStyle().Render("• "+inline(n))
	case atom.Td, atom.Th:
		return inline(n) + "  "
	case atom.P, atom.Div, atom.Ul, atom.Ol, atom.Section, atom.Article,
		atom.Header, atom.Footer, atom.Table, atom.Tr, atom.Blockquote:
		return "\n" + renderChildren(n) + "\n"
	}
	return renderChildren(n)
}

func renderChildren(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(renderNode(c))
	}
	return b.String()
}

// inline renders children on one trimmed line.
func inline(n *html.Node) string {
	return strings.TrimSpace(renderChildren(n))
}

func rawText(n *html.Node) string {
	var b strings.Builder
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return b.String()
}
