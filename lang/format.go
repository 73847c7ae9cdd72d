package lang

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
)

// Format returns the canonical text of v. For values built from literals
// (numbers, strings, booleans, lists and maps) the text parses and evaluates
// back to an equal value.
//
// Lists are always parenthesized, with a trailing comma when they hold one
// element. A top-level map is written bare; nested maps are parenthesized.
// Floats always carry a decimal point.
func Format(v Value) string {
	var sb strings.Builder

	formatValue(&sb, v, true)

	return sb.String()
}

func formatValue(sb *strings.Builder, v Value, top bool) {
	switch v.kind {
	case KindUnit:
		sb.WriteString("null")

	case KindInt:
		sb.WriteString(strconv.FormatInt(v.i, 10))

	case KindFloat:
		sb.WriteString(formatFloat(v.f))

	case KindBool:
		sb.WriteString(formatBool(v.b))

	case KindString:
		sb.WriteString(quote(v.s))

	case KindList:
		sb.WriteByte('(')

		for i, e := range v.list {
			if i > 0 {
				sb.WriteString(", ")
			}

			formatValue(sb, e, false)
		}

		if len(v.list) == 1 {
			sb.WriteByte(',')
		}

		sb.WriteByte(')')

	case KindMap:
		if !top || v.m.Len() == 0 {
			sb.WriteByte('(')
		}

		for i, k := range v.m.keys {
			if i > 0 {
				sb.WriteString(", ")
			}

			sb.WriteString(formatKey(k))
			sb.WriteString(": ")
			formatValue(sb, v.m.vals[k], false)
		}

		if !top || v.m.Len() == 0 {
			sb.WriteByte(')')
		}

	case KindEntity:
		sb.WriteString(v.entity.Path())

	case KindRecordSet:
		sb.WriteString("<")
		sb.WriteString(v.rs.Entity().Path())
		sb.WriteString(" records>")

	case KindRecord:
		sb.WriteString("<")
		sb.WriteString(v.rec.Entity().Path())
		sb.WriteString(" ")
		formatValue(sb, FromNative(v.rec.ID()), false)
		sb.WriteString(">")

	case KindPipeline:
		for i, group := range v.pipe {
			if i > 0 {
				sb.WriteString(" | ")
			}

			for j, p := range group {
				if j > 0 {
					sb.WriteString(", ")
				}

				sb.WriteString(predicateKey(p))
				sb.WriteString(": ")
				formatValue(sb, p.Value, false)
			}
		}
	}
}

func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "+Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	case math.IsNaN(f):
		return "NaN"
	}

	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}

	return s
}

func formatBool(b bool) string {
	if b {
		return "true"
	}

	return "false"
}

func quote(s string) string {
	return strconv.Quote(s)
}

// formatKey writes a map key bare when it lexes as a single identifier, and
// quoted otherwise.
func formatKey(k string) string {
	toks, err := Tokenize(k)
	if err == nil && len(toks) == 2 &&
		(toks[0].Kind == TokenIdent || toks[0].Kind == TokenFunc) &&
		toks[0].Literal == k {
		return k
	}

	return quote(k)
}

// FormatJSON writes v as JSON. Record sets are read in full.
func FormatJSON(ctx context.Context, w io.Writer, v Value, indent int) error {
	p, err := v.Plain(ctx)
	if err != nil {
		return err
	}

	var data []byte

	if indent > 0 {
		data, err = json.MarshalIndent(p, "", strings.Repeat(" ", indent))
	} else {
		data, err = json.Marshal(p)
	}

	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(data))

	return err
}

// FormatYAML writes v as YAML. Record sets are read in full.
func FormatYAML(ctx context.Context, w io.Writer, v Value, indent int) error {
	p, err := v.Plain(ctx)
	if err != nil {
		return err
	}

	var opts []yaml.EncodeOption
	if indent > 0 {
		opts = append(opts, yaml.Indent(indent))
	} else {
		opts = append(opts, yaml.Flow(true))
	}

	data, err := yaml.MarshalContext(ctx, yamlPlain(p), opts...)
	if err != nil {
		return err
	}

	_, err = fmt.Fprint(w, string(data))

	return err
}

// FormatNative writes the canonical text of v followed by a newline. Record
// sets are read in full and written as a list of records.
func FormatNative(ctx context.Context, w io.Writer, v Value) error {
	m, err := v.Materialize(ctx)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, Format(m))

	return err
}

// FormatSource writes the block back as source text, one statement per line,
// in canonical spacing.
func (b *Block) FormatSource(w io.Writer) error {
	for _, s := range b.Stmts {
		if _, err := fmt.Fprintln(w, FormatNode(s)); err != nil {
			return err
		}
	}

	return nil
}

// FormatNode returns the canonical source text of n.
func FormatNode(n Node) string {
	var sb strings.Builder

	formatNode(&sb, n, true)

	return sb.String()
}

func formatNode(sb *strings.Builder, n Node, top bool) {
	switch n := n.(type) {
	case *NumberLit:
		sb.WriteString(n.Literal)

	case *StringLit:
		sb.WriteString(quote(n.Value))

	case *BoolLit:
		sb.WriteString(formatBool(n.Value))

	case *Ident:
		sb.WriteString(n.Name)

	case *ListLit:
		if top && len(n.Elems) > 1 {
			formatNodes(sb, n.Elems)

			return
		}

		sb.WriteByte('(')
		formatNodes(sb, n.Elems)

		if len(n.Elems) == 1 {
			sb.WriteByte(',')
		}

		sb.WriteByte(')')

	case *MapLit:
		if !top {
			sb.WriteByte('(')
		}

		formatPairs(sb, n.Pairs)

		if !top {
			sb.WriteByte(')')
		}

	case *BinaryExpr:
		formatNode(sb, n.Left, false)
		sb.WriteString(" " + n.Op.String() + " ")
		formatNode(sb, n.Right, false)

	case *UnaryExpr:
		sb.WriteString(n.Op.String())
		formatNode(sb, n.Operand, false)

	case *CallExpr:
		sb.WriteString(n.Name)
		sb.WriteByte('(')
		formatNodes(sb, n.Args)
		sb.WriteByte(')')

	case *Assign:
		sb.WriteString(n.Name)
		sb.WriteString(" = ")
		formatNode(sb, n.Value, true)

	case *Grouping:
		sb.WriteByte('(')
		formatNode(sb, n.Inner, false)
		sb.WriteByte(')')

	case *IndexExpr:
		formatNode(sb, n.Target, false)
		sb.WriteByte('[')
		formatNode(sb, n.Index, false)
		sb.WriteByte(']')

	case *EntityRef:
		sb.WriteString(n.Path())

	case *FilterMap:
		sb.WriteByte('{')
		formatPairs(sb, n.Pairs)
		sb.WriteByte('}')

	case *QueryExpr:
		sb.WriteString(n.Entity.Path())

		for _, st := range n.Stages {
			formatStage(sb, st)
		}

	case *PipelineExpr:
		for i, fm := range n.Stages {
			if i > 0 {
				sb.WriteString(" | ")
			}

			formatPairs(sb, fm.Pairs)
		}
	}
}

func formatNodes(sb *strings.Builder, ns []Node) {
	for i, e := range ns {
		if i > 0 {
			sb.WriteString(", ")
		}

		formatNode(sb, e, false)
	}
}

func formatPairs(sb *strings.Builder, pairs []Pair) {
	for i, p := range pairs {
		if i > 0 {
			sb.WriteString(", ")
		}

		sb.WriteString(formatKey(p.Key))
		sb.WriteString(": ")
		formatNode(sb, p.Value, false)
	}
}

func formatStage(sb *strings.Builder, st Stage) {
	switch st.Kind {
	case StageFilter:
		formatNode(sb, st.Filter, false)

	case StageChain:
		sb.WriteString(" | ")

		if st.Ref != nil {
			sb.WriteString(st.Ref.Name)

			return
		}

		formatNode(sb, st.Filter, false)

	case StageProject:
		sb.WriteByte('[')
		sb.WriteString(strings.Join(st.Fields, ", "))
		sb.WriteByte(']')

	case StageIndex:
		sb.WriteByte('[')
		formatNode(sb, st.Index, false)
		sb.WriteByte(']')
	}
}
