package template

import (
	"fmt"
	"io"
	"strings"
	"unicode"

	"golang.org/x/net/html"

	"github.com/vango-dev/ripple/internal/errors"
	"github.com/vango-dev/ripple/pkg/vdom"
)

// parser builds the element tree from the token stream.
type parser struct {
	src   string
	root  *Element
	stack []*Element
	line  int
	col   int
}

// Parse parses src into its root element.
func Parse(src string) (*Element, error) {
	p := &parser{src: src, line: 1, col: 1}
	z := html.NewTokenizer(strings.NewReader(src))

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if err := z.Err(); err != io.EOF {
				return nil, p.errorf("T001", p.pos(), "%v", err)
			}
			break
		}
		pos := p.pos()
		p.advance(z.Raw())

		var err error
		switch tt {
		case html.StartTagToken:
			tok := z.Token()
			err = p.start(tok, pos, vdom.IsVoidElement(tok.Data))
		case html.SelfClosingTagToken:
			err = p.start(z.Token(), pos, true)
		case html.EndTagToken:
			err = p.end(z.Token(), pos)
		case html.TextToken:
			err = p.text(z.Token().Data, pos)
		case html.CommentToken, html.DoctypeToken:
		}
		if err != nil {
			return nil, err
		}
	}

	if len(p.stack) > 0 {
		open := p.stack[len(p.stack)-1]
		return nil, p.errorf("T001", open.Position, "unclosed <%s>", open.Tag)
	}
	if p.root == nil {
		return nil, p.errorf("T001", Position{Line: 1, Column: 1}, "template has no root element")
	}
	return p.root, nil
}

func (p *parser) pos() Position {
	return Position{Line: p.line, Column: p.col}
}

func (p *parser) advance(raw []byte) {
	for _, b := range raw {
		if b == '\n' {
			p.line++
			p.col = 1
		} else {
			p.col++
		}
	}
}

func (p *parser) errorf(code string, pos Position, format string, args ...any) *errors.Error {
	return errors.New(code).
		WithDetailf(format, args...).
		WithLocation("", pos.Line, pos.Column).
		WithContext(contextLines(p.src, pos.Line))
}

func (p *parser) start(tok html.Token, pos Position, closed bool) error {
	el := &Element{Position: pos, Tag: tok.Data}
	for _, a := range tok.Attr {
		if err := p.attr(el, a); err != nil {
			return err
		}
	}

	if len(p.stack) == 0 {
		if p.root != nil {
			return p.errorf("T001", pos, "template must have a single root element, found a second <%s>", el.Tag)
		}
		if el.For != nil {
			return p.errorf("T002", pos, "v-for cannot be used on the root element")
		}
		p.root = el
	} else {
		parent := p.stack[len(p.stack)-1]
		parent.Children = append(parent.Children, el)
	}

	if !closed {
		p.stack = append(p.stack, el)
	}
	return nil
}

func (p *parser) end(tok html.Token, pos Position) error {
	if vdom.IsVoidElement(tok.Data) {
		return nil
	}
	if len(p.stack) == 0 {
		return p.errorf("T001", pos, "unexpected </%s>", tok.Data)
	}
	top := p.stack[len(p.stack)-1]
	if top.Tag != tok.Data {
		return p.errorf("T001", pos, "unexpected </%s>, expected </%s>", tok.Data, top.Tag)
	}
	p.stack = p.stack[:len(p.stack)-1]
	return nil
}

func (p *parser) attr(el *Element, a html.Attribute) error {
	name := a.Key
	switch {
	case name == "key":
		el.Key = a.Val
	case name == "v-for":
		fc, err := parseFor(a.Val)
		if err != nil {
			return p.errorf("T002", el.Position, "%v", err)
		}
		el.For = fc
	case strings.HasPrefix(name, ":") || strings.HasPrefix(name, "v-bind:"):
		target := strings.TrimPrefix(strings.TrimPrefix(name, "v-bind"), ":")
		if target == "" {
			return p.errorf("T002", el.Position, "%s needs an attribute name", name)
		}
		path, err := parsePath(a.Val)
		if err != nil {
			return p.errorf("T003", el.Position, "%s: %v", name, err)
		}
		if target == "key" {
			el.KeyExpr = path
		} else {
			el.Bindings = append(el.Bindings, Binding{Name: target, Expr: path})
		}
	case strings.HasPrefix(name, "v-") || strings.HasPrefix(name, "@"):
		return p.errorf("T002", el.Position, "unsupported directive %s", name).
			WithSuggestion("Supported directives are key, :name, v-bind:name and v-for.")
	default:
		el.Attrs = append(el.Attrs, Attr{Name: name, Value: a.Val})
	}
	return nil
}

func (p *parser) text(data string, pos Position) error {
	if strings.TrimSpace(data) == "" {
		return nil
	}
	if len(p.stack) == 0 {
		return p.errorf("T001", pos, "text outside the root element: %q", strings.TrimSpace(data))
	}
	parts, err := splitInterpolation(condense(data))
	if err != nil {
		code := "T003"
		if errors.HasCode(err, "T001") {
			code = "T001"
		}
		return p.errorf(code, pos, "%v", errorDetail(err))
	}
	parent := p.stack[len(p.stack)-1]
	parent.Children = append(parent.Children, &Text{Position: pos, Parts: parts})
	return nil
}

func errorDetail(err error) string {
	if e, ok := err.(*errors.Error); ok && e.Detail != "" {
		return e.Detail
	}
	return err.Error()
}

// splitInterpolation splits text into literal runs and {{ }} expressions.
func splitInterpolation(s string) ([]Part, error) {
	var parts []Part
	for s != "" {
		open := strings.Index(s, "{{")
		if open < 0 {
			parts = append(parts, Part{Literal: s})
			break
		}
		if open > 0 {
			parts = append(parts, Part{Literal: s[:open]})
		}
		rest := s[open+2:]
		end := strings.Index(rest, "}}")
		if end < 0 {
			return nil, errors.New("T001").WithDetail("unclosed {{")
		}
		path, err := parsePath(rest[:end])
		if err != nil {
			return nil, err
		}
		parts = append(parts, Part{Expr: path})
		s = rest[end+2:]
	}
	return parts, nil
}

// parsePath parses a dotted expression such as "user.name" or "rows.0".
func parsePath(s string) (Path, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("T003").WithDetail("empty expression")
	}
	segs := strings.Split(s, ".")
	for i, seg := range segs {
		if !isIdent(seg) && (i == 0 || !isIndex(seg)) {
			return nil, errors.New("T003").WithDetailf("unsupported expression %q", s)
		}
	}
	return Path(segs), nil
}

// parseFor parses "item in items" and "(item, index) in items".
func parseFor(s string) (*ForClause, error) {
	lhs, rhs, ok := strings.Cut(s, " in ")
	if !ok {
		return nil, fmt.Errorf("malformed v-for %q", s)
	}
	source, err := parsePath(rhs)
	if err != nil {
		return nil, fmt.Errorf("malformed v-for %q", s)
	}

	lhs = strings.TrimSpace(lhs)
	fc := &ForClause{Source: source}
	if strings.HasPrefix(lhs, "(") && strings.HasSuffix(lhs, ")") {
		item, index, _ := strings.Cut(lhs[1:len(lhs)-1], ",")
		fc.Item = strings.TrimSpace(item)
		fc.Index = strings.TrimSpace(index)
		if fc.Index != "" && !isIdent(fc.Index) {
			return nil, fmt.Errorf("malformed v-for %q", s)
		}
	} else {
		fc.Item = lhs
	}
	if !isIdent(fc.Item) {
		return nil, fmt.Errorf("malformed v-for %q", s)
	}
	return fc, nil
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || r == '$' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return false
	}
	return true
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// condense collapses whitespace runs to one space and drops leading and
// trailing whitespace that spans a line break.
func condense(s string) string {
	var sb strings.Builder
	i := 0
	for i < len(s) {
		if !isSpace(s[i]) {
			sb.WriteByte(s[i])
			i++
			continue
		}
		j := i
		newline := false
		for j < len(s) && isSpace(s[j]) {
			if s[j] == '\n' {
				newline = true
			}
			j++
		}
		edge := i == 0 || j == len(s)
		if !(edge && newline) {
			sb.WriteByte(' ')
		}
		i = j
	}
	return sb.String()
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f'
}

// contextLines returns the source line at line, for error display.
func contextLines(src string, line int) []string {
	lines := strings.Split(src, "\n")
	if line < 1 || line > len(lines) {
		return nil
	}
	return []string{lines[line-1]}
}
