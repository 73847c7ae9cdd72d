package lang

// Tree returns the syntax tree of the block as a list of maps, one per
// statement, suitable for [FormatJSON] and [FormatYAML]. Every map has a
// "node" key naming the node kind as [Block.Print] does.
func (b *Block) Tree() Value {
	vs := make([]Value, len(b.Stmts))

	for i, s := range b.Stmts {
		vs[i] = NodeTree(s)
	}

	return List(vs...)
}

// NodeTree returns the syntax tree rooted at n as nested maps.
func NodeTree(n Node) Value {
	t := newTree(n)

	switch n := n.(type) {
	case *NumberLit:
		t.Set("node", String("Number"))
		t.Set("literal", String(n.Literal))

	case *StringLit:
		t.Set("node", String("String"))
		t.Set("value", String(n.Value))

	case *BoolLit:
		t.Set("node", String("Boolean"))
		t.Set("value", Bool(n.Value))

	case *Ident:
		t.Set("node", String("Identifier"))
		t.Set("name", String(n.Name))

	case *ListLit:
		t.Set("node", String("List"))
		t.Set("elems", nodeList(n.Elems))

	case *MapLit:
		t.Set("node", String("Map"))
		t.Set("pairs", pairTree(n.Pairs))

	case *BinaryExpr:
		t.Set("node", String("Binary"))
		t.Set("op", String(n.Op.String()))
		t.Set("left", NodeTree(n.Left))
		t.Set("right", NodeTree(n.Right))

	case *UnaryExpr:
		t.Set("node", String("Unary"))
		t.Set("op", String(n.Op.String()))
		t.Set("operand", NodeTree(n.Operand))

	case *CallExpr:
		t.Set("node", String("Call"))
		t.Set("name", String(n.Name))
		t.Set("args", nodeList(n.Args))

	case *Assign:
		t.Set("node", String("Assign"))
		t.Set("name", String(n.Name))
		t.Set("value", NodeTree(n.Value))

	case *Grouping:
		t.Set("node", String("Grouping"))
		t.Set("inner", NodeTree(n.Inner))

	case *IndexExpr:
		t.Set("node", String("Index"))
		t.Set("target", NodeTree(n.Target))
		t.Set("index", NodeTree(n.Index))

	case *EntityRef:
		t.Set("node", String("Entity"))
		t.Set("path", String(n.Path()))

	case *FilterMap:
		t.Set("node", String("FilterMap"))
		t.Set("pairs", pairTree(n.Pairs))

	case *QueryExpr:
		t.Set("node", String("Query"))
		t.Set("entity", String(n.Entity.Path()))

		stages := make([]Value, len(n.Stages))
		for i, st := range n.Stages {
			stages[i] = stageTree(st)
		}

		t.Set("stages", List(stages...))

	case *PipelineExpr:
		t.Set("node", String("Pipeline"))

		stages := make([]Value, len(n.Stages))
		for i, f := range n.Stages {
			stages[i] = NodeTree(f)
		}

		t.Set("stages", List(stages...))

	default:
		t.Set("node", String("(unknown)"))
	}

	return MapValue(t)
}

// newTree reserves the leading "node" key so it is always listed first.
func newTree(n Node) *Map {
	t := NewMap(4)
	t.Set("node", Unit())

	if n != nil {
		pos := n.Pos()
		t.Set("line", Int(int64(pos.Line)))
		t.Set("column", Int(int64(pos.Column)))
	}

	return t
}

func nodeList(ns []Node) Value {
	vs := make([]Value, len(ns))
	for i, n := range ns {
		vs[i] = NodeTree(n)
	}

	return List(vs...)
}

func pairTree(pairs []Pair) Value {
	m := NewMap(len(pairs))
	for _, p := range pairs {
		m.Set(p.Key, NodeTree(p.Value))
	}

	return MapValue(m)
}

func stageTree(st Stage) Value {
	m := NewMap(3)
	m.Set("stage", String(st.Kind.String()))

	switch st.Kind {
	case StageFilter, StageChain:
		if st.Ref != nil {
			m.Set("ref", String(st.Ref.Name))

			break
		}

		m.Set("pairs", pairTree(st.Filter.Pairs))

	case StageProject:
		fields := make([]Value, len(st.Fields))
		for i, f := range st.Fields {
			fields[i] = String(f)
		}

		m.Set("fields", List(fields...))

	case StageIndex:
		m.Set("index", NodeTree(st.Index))
	}

	return MapValue(m)
}
