/*
Package compiler builds encoding routines for Go types.

A routine is a flat list of steps, one per struct field, computed once per
type from reflection data. Each step knows the field offset and the wire
shape of the field, so encoding a value never touches reflect again.

Fields are written in lexicographic order of their Go names, independent of
declaration order. Unexported fields are included; blank fields and fields
tagged `jetpack:"-"` are skipped.

Field shapes:

	primitive (see wire.TagOf)   tag + payload
	nested struct                Object, fields, CollectionEnd
	pointer                      pointee, or Object + CollectionEnd if nil
	slice / array                CollectionStart(n), elements, CollectionEnd

Routines of nested struct types are not compiled eagerly. The step asks a
Resolver on first use and keeps the result, which lets self-referencing types
compile and allows a registry to share routines between types.
*/
package compiler
