package artifacts

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var markdown = goldmark.New()

// literalReplacer rewrites tokens that markdown would otherwise swallow as
// raw HTML, and the UTF-8 arrow that dbt docs often carry decoded as
// Windows-1252.
var literalReplacer = strings.NewReplacer(
	"<null>", `"null"`,
	"â†’", "->",
)

// PlainText renders markdown as a single line of plain text. Code blocks
// and raw HTML are dropped, inline code and link labels keep their text, and
// whitespace runs collapse to one space.
func PlainText(src string) string {
	source := []byte(literalReplacer.Replace(src))
	doc := markdown.Parser().Parse(text.NewReader(source))

	var b strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock {
				b.WriteByte(' ')
			}
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock, *ast.RawHTML:
			b.WriteByte(' ')
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			b.Write(node.Segment.Value(source))
			if node.SoftLineBreak() || node.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(node.Value)
		case *ast.AutoLink:
			b.Write(node.Label(source))
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	return strings.Join(strings.Fields(b.String()), " ")
}
