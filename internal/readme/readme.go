// Package readme pulls the overview and setup sections out of a package
// README.
package readme

import (
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// Sections are the parts of a README shown on a connector's detail page.
// Both are markdown with fenced code blocks removed.
type Sections struct {
	Overview string `json:"overview"`
	Setup    string `json:"setup"`
}

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

type heading struct {
	line  int
	title string
}

type span struct {
	start, end int // line range [start, end)
}

// Extract splits src at its second-level headings. The section titled
// "Overview" becomes the overview; "Setup" or "Prerequisites" becomes the
// setup. Without an overview section, any text before the first heading is
// used instead. When a title repeats, the last section wins.
func Extract(src string) Sections {
	if strings.TrimSpace(src) == "" {
		return Sections{}
	}
	source := []byte(src)
	doc := md.Parser().Parse(text.NewReader(source))
	lines := newLines(src)

	var heads []heading
	var fences []span
	next := 0 // first line not yet covered by a visited block
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := n.(type) {
		case *ast.FencedCodeBlock:
			if s, ok := fenceSpan(v, lines, next); ok {
				fences = append(fences, s)
				next = s.end
			}
			return ast.WalkSkipChildren, nil
		case *ast.Heading:
			if v.Level == 2 && v.Parent() == doc && v.Lines().Len() > 0 {
				heads = append(heads, heading{
					line:  lines.at(v.Lines().At(0).Start),
					title: strings.ToLower(strings.TrimSpace(string(v.Lines().Value(source)))),
				})
			}
		}
		if n.Type() == ast.TypeBlock && n.Lines().Len() > 0 {
			next = max(next, lines.at(n.Lines().At(n.Lines().Len()-1).Start)+1)
		}
		return ast.WalkContinue, nil
	})

	var out Sections
	for i, h := range heads {
		end := len(lines.text)
		if i+1 < len(heads) {
			end = heads[i+1].line
		}
		switch {
		case strings.HasPrefix(h.title, "overview"):
			out.Overview = lines.join(h.line, end, fences)
		case strings.HasPrefix(h.title, "setup"), strings.HasPrefix(h.title, "prerequisites"):
			out.Setup = lines.join(h.line, end, fences)
		}
	}
	if out.Overview == "" && len(heads) > 0 && heads[0].line > 0 {
		out.Overview = lines.join(0, heads[0].line, fences)
	}
	return out
}

// fenceSpan returns the lines a fenced code block occupies, fences included.
// A block with neither info string nor content carries no positions, so its
// opening fence is the first fence line at or after from.
func fenceSpan(b *ast.FencedCodeBlock, lines *lineIndex, from int) (span, bool) {
	n := b.Lines().Len()
	var start int
	switch {
	case b.Info != nil:
		start = lines.at(b.Info.Segment.Start)
	case n > 0:
		start = lines.at(b.Lines().At(0).Start) - 1
	default:
		return lines.emptyFence(from)
	}
	end := start + 2
	if n > 0 {
		end = lines.at(b.Lines().At(n-1).Start) + 2
	}
	return span{start: max(start, 0), end: min(end, len(lines.text))}, true
}

func (li *lineIndex) emptyFence(from int) (span, bool) {
	for i := from; i < len(li.text); i++ {
		if !isFence(li.text[i]) {
			continue
		}
		if i+1 < len(li.text) && isFence(li.text[i+1]) {
			return span{start: i, end: i + 2}, true
		}
		// Unclosed at the end of the document.
		return span{start: i, end: i + 1}, true
	}
	return span{}, false
}

func isFence(line string) bool {
	l := strings.TrimSpace(line)
	return strings.HasPrefix(l, "```") || strings.HasPrefix(l, "~~~")
}

type lineIndex struct {
	text   []string
	starts []int
}

func newLines(src string) *lineIndex {
	li := &lineIndex{text: strings.SplitAfter(src, "\n")}
	off := 0
	for _, l := range li.text {
		li.starts = append(li.starts, off)
		off += len(l)
	}
	return li
}

// at returns the index of the line containing byte offset off.
func (li *lineIndex) at(off int) int {
	return sort.Search(len(li.starts), func(i int) bool { return li.starts[i] > off }) - 1
}

// join returns lines [from, to) minus any fenced code, trimmed.
func (li *lineIndex) join(from, to int, fences []span) string {
	var b strings.Builder
	for i := from; i < to && i < len(li.text); i++ {
		if inFence(i, fences) {
			continue
		}
		b.WriteString(li.text[i])
	}
	return strings.TrimSpace(b.String())
}

func inFence(line int, fences []span) bool {
	for _, f := range fences {
		if line >= f.start && line < f.end {
			return true
		}
	}
	return false
}
