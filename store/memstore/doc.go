// Package memstore is an in-memory data access adapter for package lang.
//
// A [Store] holds entities registered under case-insensitive dotted paths.
// Each entity has a [Schema] naming its fields, its primary key, and the
// fields that refer to records of another entity. Records keep insertion
// order, which is the order of every record set the store returns.
//
// Filter lookups are boolean expr programs compiled once per process and run
// against each stored value. Field references traverse relations with "__":
//
//	tests.testmodelchild{parent__t: 'T1'}[name, parent__note]
//
// Stores are usually loaded from YAML fixtures with [Open] or [Store.Load].
package memstore
