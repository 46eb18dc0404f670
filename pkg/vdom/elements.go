package vdom

// voidElements are elements that cannot have children.
var voidElements = map[string]bool{
	"area":   true,
	"base":   true,
	"br":     true,
	"col":    true,
	"embed":  true,
	"hr":     true,
	"img":    true,
	"input":  true,
	"link":   true,
	"meta":   true,
	"param":  true,
	"source": true,
	"track":  true,
	"wbr":    true,
}

// IsVoidElement returns true if the tag is a void element.
func IsVoidElement(tag string) bool {
	return voidElements[tag]
}

// H creates an element with the given tag.
// Arguments can be: nil, Attr, []Attr, *VNode, []*VNode, string or Expr.
// Strings become text children and an Expr becomes a bound text child.
func H(tag string, args ...any) *VNode {
	node := &VNode{
		Kind:  KindElement,
		Tag:   tag,
		Props: make(Props),
	}

	for _, arg := range args {
		switch v := arg.(type) {
		case nil:
			continue
		case Attr:
			node.setAttr(v)
		case []Attr:
			for _, a := range v {
				node.setAttr(a)
			}
		case *VNode:
			if v != nil {
				node.Children = append(node.Children, v)
			}
		case []*VNode:
			for _, child := range v {
				if child != nil {
					node.Children = append(node.Children, child)
				}
			}
		case string:
			node.Children = append(node.Children, Text(v))
		case Expr:
			node.Children = append(node.Children, Bind(v))
		case func() any:
			node.Children = append(node.Children, Bind(v))
		}
	}

	return node
}

func (v *VNode) setAttr(a Attr) {
	if a.Key == "" {
		return
	}
	if a.Key == "key" {
		v.Key = formatValue(a.Value)
		return
	}
	v.Props[a.Key] = a.Value
}

func Div(args ...any) *VNode     { return H("div", args...) }
func Span(args ...any) *VNode    { return H("span", args...) }
func P(args ...any) *VNode       { return H("p", args...) }
func H1(args ...any) *VNode      { return H("h1", args...) }
func Ul(args ...any) *VNode      { return H("ul", args...) }
func Ol(args ...any) *VNode      { return H("ol", args...) }
func Li(args ...any) *VNode      { return H("li", args...) }
func Button(args ...any) *VNode  { return H("button", args...) }
func Section(args ...any) *VNode { return H("section", args...) }
