package memdom

import (
	"fmt"
	"strings"
)

// OpKind identifies a surface operation.
type OpKind uint8

const (
	OpCreate OpKind = iota + 1
	OpCreateText
	OpInsert
	OpMove
	OpRemove
	OpSetAttr
	OpRemoveAttr
	OpSetText
)

var opNames = map[OpKind]string{
	OpCreate:     "create",
	OpCreateText: "create-text",
	OpInsert:     "insert",
	OpMove:       "move",
	OpRemove:     "remove",
	OpSetAttr:    "set-attr",
	OpRemoveAttr: "remove-attr",
	OpSetText:    "set-text",
}

func (k OpKind) String() string {
	if name, ok := opNames[k]; ok {
		return name
	}
	return fmt.Sprintf("op(%d)", k)
}

// Op is one logged surface operation.
type Op struct {
	Kind   OpKind
	Node   *Node
	Parent *Node
	Ref    *Node
	Name   string
	Value  string
}

func (op Op) String() string {
	switch op.Kind {
	case OpInsert, OpMove:
		if op.Ref == nil {
			return fmt.Sprintf("%s %s into %s", op.Kind, op.Node, op.Parent)
		}
		return fmt.Sprintf("%s %s before %s", op.Kind, op.Node, op.Ref)
	case OpRemove:
		return fmt.Sprintf("remove %s from %s", op.Node, op.Parent)
	case OpSetAttr:
		return fmt.Sprintf("set-attr %s %s=%q", op.Node, op.Name, op.Value)
	case OpRemoveAttr:
		return fmt.Sprintf("remove-attr %s %s", op.Node, op.Name)
	case OpSetText, OpCreateText:
		return fmt.Sprintf("%s %s %q", op.Kind, op.Node, op.Value)
	default:
		return fmt.Sprintf("%s %s", op.Kind, op.Node)
	}
}

// FormatOps renders one operation per line.
func FormatOps(ops []Op) string {
	var sb strings.Builder
	for _, op := range ops {
		sb.WriteString(op.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
