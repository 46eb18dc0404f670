package template

import (
	"strings"

	"github.com/vango-dev/ripple/internal/errors"
	"github.com/vango-dev/ripple/pkg/vdom"
)

// RenderFunc builds a fresh tree from a scope.
type RenderFunc func(Scope) *vdom.VNode

// builder renders one template node; v-for elements render several.
type builder func(Scope) []*vdom.VNode

// Generate turns a parsed root element into a render function.
func Generate(root *Element) (RenderFunc, error) {
	if root == nil {
		return nil, errors.New("T001").WithDetail("no root element")
	}
	if root.For != nil {
		return nil, errors.New("T002").
			WithDetail("v-for cannot be used on the root element").
			WithLocation("", root.Line, root.Column)
	}
	build := genElement(root)
	return func(s Scope) *vdom.VNode {
		return build(s)[0]
	}, nil
}

func genNode(n Node) builder {
	switch n := n.(type) {
	case *Element:
		return genElement(n)
	case *Text:
		return genText(n)
	}
	return func(Scope) []*vdom.VNode { return nil }
}

func genElement(el *Element) builder {
	children := make([]builder, len(el.Children))
	for i, c := range el.Children {
		children[i] = genNode(c)
	}

	render := func(s Scope) *vdom.VNode {
		attrs := make([]vdom.Attr, 0, len(el.Attrs)+len(el.Bindings)+1)
		for _, a := range el.Attrs {
			attrs = append(attrs, vdom.A(a.Name, a.Value))
		}
		for _, b := range el.Bindings {
			attrs = append(attrs, vdom.A(b.Name, Eval(b.Expr, s)))
		}
		switch {
		case el.KeyExpr != nil:
			attrs = append(attrs, vdom.Key(Eval(el.KeyExpr, s)))
		case el.Key != "":
			attrs = append(attrs, vdom.Key(el.Key))
		}

		var kids []*vdom.VNode
		for _, child := range children {
			kids = append(kids, child(s)...)
		}
		return vdom.H(el.Tag, attrs, kids)
	}

	if el.For == nil {
		return func(s Scope) []*vdom.VNode {
			return []*vdom.VNode{render(s)}
		}
	}

	fc := el.For
	return func(s Scope) []*vdom.VNode {
		var out []*vdom.VNode
		each(Eval(fc.Source, s), func(item, at any) {
			out = append(out, render(&loopScope{
				parent: s,
				item:   fc.Item,
				value:  item,
				index:  fc.Index,
				at:     at,
			}))
		})
		return out
	}
}

func genText(t *Text) builder {
	if len(t.Parts) == 1 && !t.Parts[0].IsExpr() {
		lit := t.Parts[0].Literal
		return func(Scope) []*vdom.VNode {
			return []*vdom.VNode{vdom.Text(lit)}
		}
	}

	if len(t.Parts) == 1 {
		path := t.Parts[0].Expr
		return func(s Scope) []*vdom.VNode {
			return []*vdom.VNode{vdom.Bind(func() any { return Eval(path, s) })}
		}
	}

	parts := t.Parts
	return func(s Scope) []*vdom.VNode {
		return []*vdom.VNode{vdom.Bind(func() any {
			var sb strings.Builder
			for _, p := range parts {
				if p.IsExpr() {
					sb.WriteString(vdom.FormatValue(Eval(p.Expr, s)))
				} else {
					sb.WriteString(p.Literal)
				}
			}
			return sb.String()
		})}
	}
}
