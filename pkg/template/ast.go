package template

import "strings"

// Position is a 1-based line and column in the template source.
type Position struct {
	Line   int
	Column int
}

// Pos returns the position.
func (p Position) Pos() Position { return p }

// Node is an element or text node in a parsed template.
type Node interface {
	Pos() Position
}

// Element is a parsed element.
type Element struct {
	Position
	Tag      string
	Attrs    []Attr    // Static attributes in source order
	Bindings []Binding // Bound attributes in source order
	Key      string    // Static key
	KeyExpr  Path      // Bound key; overrides Key when set
	For      *ForClause
	Children []Node
}

// Attr is a static attribute.
type Attr struct {
	Name  string
	Value string
}

// Binding is an attribute whose value is an expression.
type Binding struct {
	Name string
	Expr Path
}

// ForClause is a parsed v-for directive.
type ForClause struct {
	Item   string
	Index  string // Empty when the clause names no index
	Source Path
}

// Text is a text node split into literal and interpolated parts.
type Text struct {
	Position
	Parts []Part
}

// Part is a literal run of text or an interpolated expression.
type Part struct {
	Literal string
	Expr    Path
}

// IsExpr reports whether the part is an interpolation.
func (p Part) IsExpr() bool { return p.Expr != nil }

// Path is a parsed dotted expression.
type Path []string

func (p Path) String() string { return strings.Join(p, ".") }
