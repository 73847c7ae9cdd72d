package lang

import (
	"context"
	"io"
	"strings"
)

// Node is an immutable syntax tree node.
type Node interface {
	// Pos returns the position of the first token of the node.
	Pos() Position

	node()
}

// Stmt is a statement of a [Block]: an [*Assign] or an expression.
type Stmt = Node

// Block is an ordered sequence of statements evaluated against one shared
// environment.
type Block struct {
	Stmts []Stmt
}

// Len returns the number of statements in the block.
func (b *Block) Len() int { return len(b.Stmts) }

type (
	// NumberLit is an integer or float literal. Exactly one of Int and Float
	// is meaningful, as reported by IsFloat.
	NumberLit struct {
		Start   Position
		Literal string
		IsFloat bool
		Int     int64
		Float   float64
	}

	// StringLit is a quoted string literal.
	StringLit struct {
		Start Position
		Value string
	}

	// BoolLit is a true or false literal.
	BoolLit struct {
		Start Position
		Value bool
	}

	// ListLit is a comma-separated sequence of expressions.
	ListLit struct {
		Start Position
		Elems []Node
	}

	// Pair is one key:value entry of a [MapLit] or [FilterMap].
	Pair struct {
		KeyPos Position
		Key    string
		Value  Node
	}

	// MapLit is a comma-separated sequence of key:value pairs. Keys are unique
	// and kept in source order.
	MapLit struct {
		Start Position
		Pairs []Pair
	}

	// BinaryExpr applies an arithmetic or equality operator.
	BinaryExpr struct {
		Op    TokenKind
		OpPos Position
		Left  Node
		Right Node
	}

	// UnaryExpr applies unary minus.
	UnaryExpr struct {
		Op      TokenKind
		Start   Position
		Operand Node
	}

	// CallExpr calls an aggregate function.
	CallExpr struct {
		Start Position
		Name  string
		Args  []Node
	}

	// Ident references a bound name or an entity path.
	Ident struct {
		Start Position
		Name  string
	}

	// Assign binds the value of an expression to a name.
	Assign struct {
		Start Position
		Name  string
		Value Node
	}

	// Grouping is a parenthesized expression.
	Grouping struct {
		Start Position
		Inner Node
	}

	// IndexExpr selects an element of a list, record set, map, or record.
	IndexExpr struct {
		Start  Position
		Target Node
		Index  Node
	}

	// EntityRef names an entity type by its dotted path.
	EntityRef struct {
		Start    Position
		Segments []string
	}

	// FilterMap is an ordered group of filter pairs. The predicates of one
	// group are AND-combined.
	FilterMap struct {
		Start Position
		Pairs []Pair
	}

	// QueryExpr retrieves records through the data access adapter. Stages are
	// applied in order.
	QueryExpr struct {
		Entity *EntityRef
		Stages []Stage
	}

	// PipelineExpr is a sequence of filter stages not (yet) attached to an
	// entity.
	PipelineExpr struct {
		Start  Position
		Stages []*FilterMap
	}
)

// StageKind identifies a [Stage] of a [QueryExpr].
type StageKind uint8

const (
	// StageFilter is the initial '{...}' predicate group.
	StageFilter StageKind = iota

	// StageChain is a '|' refinement. Its Filter is nil when it references a
	// pipeline by name.
	StageChain

	// StageProject is a '[field, ...]' projection.
	StageProject

	// StageIndex is a '[n]' accessor.
	StageIndex
)

// String returns a string representation of the stage kind.
func (k StageKind) String() string {
	switch k {
	case StageFilter:
		return "Filter"

	case StageChain:
		return "Chain"

	case StageProject:
		return "Project"

	case StageIndex:
		return "Index"

	default:
		return "Unknown"
	}
}

// Stage is one step of a [QueryExpr].
type Stage struct {
	Kind   StageKind
	Start  Position
	Filter *FilterMap // StageFilter, StageChain
	Ref    *Ident     // StageChain referencing a bound pipeline
	Fields []string   // StageProject
	Index  Node       // StageIndex
}

// Path returns the dotted path of the entity reference.
func (r *EntityRef) Path() string { return strings.Join(r.Segments, ".") }

func (n *NumberLit) Pos() Position    { return n.Start }
func (n *StringLit) Pos() Position    { return n.Start }
func (n *BoolLit) Pos() Position      { return n.Start }
func (n *ListLit) Pos() Position      { return n.Start }
func (n *MapLit) Pos() Position       { return n.Start }
func (n *BinaryExpr) Pos() Position   { return n.Left.Pos() }
func (n *UnaryExpr) Pos() Position    { return n.Start }
func (n *CallExpr) Pos() Position     { return n.Start }
func (n *Ident) Pos() Position        { return n.Start }
func (n *Assign) Pos() Position       { return n.Start }
func (n *Grouping) Pos() Position     { return n.Start }
func (n *IndexExpr) Pos() Position    { return n.Start }
func (n *EntityRef) Pos() Position    { return n.Start }
func (n *FilterMap) Pos() Position    { return n.Start }
func (n *QueryExpr) Pos() Position    { return n.Entity.Start }
func (n *PipelineExpr) Pos() Position { return n.Start }

func (*NumberLit) node()    {}
func (*StringLit) node()    {}
func (*BoolLit) node()      {}
func (*ListLit) node()      {}
func (*MapLit) node()       {}
func (*BinaryExpr) node()   {}
func (*UnaryExpr) node()    {}
func (*CallExpr) node()     {}
func (*Ident) node()        {}
func (*Assign) node()       {}
func (*Grouping) node()     {}
func (*IndexExpr) node()    {}
func (*EntityRef) node()    {}
func (*FilterMap) node()    {}
func (*QueryExpr) node()    {}
func (*PipelineExpr) node() {}

func writer(w io.Writer) func(eol string, item ...string) {
	return func(eol string, item ...string) {
		_, err := io.WriteString(w, strings.Join(item, ": ")+eol)
		if err != nil {
			panic(err)
		}
	}
}

// Print writes an indented tree representation of the block.
func (b *Block) Print(ctx context.Context, w io.Writer) {
	for _, s := range b.Stmts {
		PrintNode(ctx, w, s, 0)
	}
}

// PrintNode writes an indented tree representation of n.
func PrintNode(ctx context.Context, w io.Writer, n Node, indent int) {
	prefix := strings.Repeat("  ", indent)
	put := writer(w)

	switch n := n.(type) {
	case *NumberLit:
		put("\n", prefix+"Number", n.Literal)

	case *StringLit:
		put("\n", prefix+"String", quote(n.Value))

	case *BoolLit:
		put("\n", prefix+"Boolean", formatBool(n.Value))

	case *Ident:
		put("\n", prefix+"Identifier", n.Name)

	case *ListLit:
		put("\n", prefix+"List")

		for _, e := range n.Elems {
			PrintNode(ctx, w, e, indent+1)
		}

	case *MapLit:
		put("\n", prefix+"Map")
		printPairs(ctx, w, n.Pairs, indent+1)

	case *BinaryExpr:
		put("\n", prefix+"Binary", n.Op.String())
		PrintNode(ctx, w, n.Left, indent+1)
		PrintNode(ctx, w, n.Right, indent+1)

	case *UnaryExpr:
		put("\n", prefix+"Unary", n.Op.String())
		PrintNode(ctx, w, n.Operand, indent+1)

	case *CallExpr:
		put("\n", prefix+"Call", n.Name)

		for _, a := range n.Args {
			PrintNode(ctx, w, a, indent+1)
		}

	case *Assign:
		put("\n", prefix+"Assign", n.Name)
		PrintNode(ctx, w, n.Value, indent+1)

	case *Grouping:
		put("\n", prefix+"Grouping")
		PrintNode(ctx, w, n.Inner, indent+1)

	case *IndexExpr:
		put("\n", prefix+"Index")
		PrintNode(ctx, w, n.Target, indent+1)
		PrintNode(ctx, w, n.Index, indent+1)

	case *EntityRef:
		put("\n", prefix+"Entity", n.Path())

	case *FilterMap:
		put("\n", prefix+"FilterMap")
		printPairs(ctx, w, n.Pairs, indent+1)

	case *QueryExpr:
		put("\n", prefix+"Query", n.Entity.Path())

		for _, st := range n.Stages {
			printStage(ctx, w, st, indent+1)
		}

	case *PipelineExpr:
		put("\n", prefix+"Pipeline")

		for _, f := range n.Stages {
			PrintNode(ctx, w, f, indent+1)
		}

	default:
		put("\n", prefix+"(unknown)")
	}
}

func printPairs(ctx context.Context, w io.Writer, pairs []Pair, indent int) {
	prefix := strings.Repeat("  ", indent)

	for _, p := range pairs {
		writer(w)("\n", prefix+"Key", p.Key)
		PrintNode(ctx, w, p.Value, indent+1)
	}
}

func printStage(ctx context.Context, w io.Writer, st Stage, indent int) {
	prefix := strings.Repeat("  ", indent)
	put := writer(w)

	switch st.Kind {
	case StageFilter, StageChain:
		if st.Ref != nil {
			put("\n", prefix+st.Kind.String(), st.Ref.Name)

			return
		}

		put("\n", prefix+st.Kind.String())
		printPairs(ctx, w, st.Filter.Pairs, indent+1)

	case StageProject:
		put("\n", prefix+st.Kind.String(), strings.Join(st.Fields, ", "))

	case StageIndex:
		put("\n", prefix+st.Kind.String())
		PrintNode(ctx, w, st.Index, indent+1)
	}

}
