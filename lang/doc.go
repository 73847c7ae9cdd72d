// Package lang implements a small expression and query language over an
// external record store.
//
// Source text is tokenized by a [Lexer], parsed by a hand-written recursive
// descent parser into an immutable [Block] of statements, and evaluated by a
// tree-walking [Evaluator]. Entity queries are delegated to a host-supplied
// [Registry], which resolves dotted paths to [EntityType] values and filters
// them into [RecordSet] values.
//
// # Grammar
//
// Informal EBNF:
//
//	Statement   → Assignment | Collection Pipeline?
//	Assignment  → IDENT '=' Collection
//	Collection  → Item (',' Item)* ','?
//	Item        → Key ':' Expression | Expression
//	Key         → IDENT | FUNC | STRING
//	Pipeline    → ('|' Stage)+
//	Expression  → Additive ('==' Additive)*
//	Additive    → Mult (('+' | '-') Mult)*
//	Mult        → Unary (('*' | '/') Unary)*
//	Unary       → '-' Unary | Postfix
//	Postfix     → Primary ('[' Expression ']')*
//	Primary     → INT | FLOAT | STRING | 'true' | 'false'
//	            | '(' Collection? ')'
//	            | FUNC '(' Collection? ')'
//	            | EntityQuery | IDENT
//	EntityQuery → IDENT QueryTail+
//	QueryTail   → '{' FilterPairs? '}' | '|' Stage | '[' Fields ']' | '[' INT ']'
//	Stage       → '{' FilterPairs? '}' | FilterPairs | IDENT
//
// A collection of key:value pairs is a Map; a collection of expressions is a
// List. A single parenthesized expression is a grouping, so a one-element
// list is written with a trailing comma: (x,).
//
// # Example
//
//	# records of app.model with t equal to "x"
//	app.model{t: "x"}
//
//	# chained filters and a projection
//	app.model{t: "x"} | val__gt: 10 [id]
//
//	# aggregates
//	SUM(app.model{t: "x"}[val])
//	AVG(1, 2, 3)
//
//	# a block, one statement per line
//	ids = app.model{t: "x"}[id]
//	app.child{parent__in: ids}
//
// # Filter keys
//
// A filter key names a field, optionally traversing relations with "__", and
// optionally ends with a lookup suffix such as "__in", "__gt" or
// "__icontains". See [SplitKey] and [Lookup].
//
// # Errors
//
// Every failure is an [*Error] derived from one of the sentinel values
// ([ErrLex], [ErrParse], [ErrName], [ErrEntityResolution], [ErrArgument],
// [ErrType], [ErrIndex], [ErrArithmetic], [ErrStore]) and can be tested with
// [errors.Is]. Errors carry structured attributes, including the source
// position where known.
package lang
