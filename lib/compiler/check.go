package compiler

import (
	"github.com/ValentinKolb/jetpack/lib/wire"
	"reflect"
	"strings"
)

// Check statically verifies that every type reachable from t can be encoded.
// Interfaces, maps, channels, functions, complex numbers and raw pointers are
// rejected, as are cycles that do not pass through a struct type (e.g.
// `type L []L`).
func Check(t reflect.Type) error {
	if t == nil {
		return &UnsupportedTypeError{Type: reflect.TypeOf((*any)(nil)).Elem(), Reason: "nil type"}
	}
	c := checker{
		done:     make(map[reflect.Type]bool),
		visiting: make(map[reflect.Type]bool),
	}
	return c.check(t, "")
}

type checker struct {
	done     map[reflect.Type]bool
	visiting map[reflect.Type]bool
}

func (c *checker) check(t reflect.Type, path string) error {
	if wire.IsPrimitive(t) || c.done[t] {
		return nil
	}
	if c.visiting[t] {
		if t.Kind() == reflect.Struct {
			// resolved lazily at run time
			return nil
		}
		return &UnsupportedTypeError{Type: t, Path: path, Reason: "circular type without a struct in between"}
	}

	c.visiting[t] = true
	defer delete(c.visiting, t)

	var err error
	switch t.Kind() {
	case reflect.Struct:
		for _, f := range Fields(t) {
			if err = c.check(f.Type, join(path, f.Name)); err != nil {
				break
			}
		}
	case reflect.Pointer:
		err = c.check(t.Elem(), path+"*")
	case reflect.Slice, reflect.Array:
		err = c.check(t.Elem(), path+"[]")
	default:
		err = &UnsupportedTypeError{Type: t, Path: path}
	}
	if err != nil {
		return err
	}

	c.done[t] = true
	return nil
}

func join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

// --------------------------------------------------------------------------
// Describe
// --------------------------------------------------------------------------

// FieldPlan is one step of a compiled routine
//
// Tag is the first tag written for the field; pointers report the tag of a
// non-nil pointee.
type FieldPlan struct {
	Name     string       `json:"name"`
	Offset   uintptr      `json:"offset"`
	Type     reflect.Type `json:"-"`
	TypeName string       `json:"type"`
	Tag      wire.Tag     `json:"tag"`
	Encoding string       `json:"encoding"`
}

// Describe returns the steps Compile would generate for t, in wire order.
// A non-struct type yields a single unnamed step.
func Describe(t reflect.Type) ([]FieldPlan, error) {
	if err := Check(t); err != nil {
		return nil, err
	}
	if t.Kind() != reflect.Struct || wire.IsPrimitive(t) {
		return []FieldPlan{plan("", 0, t)}, nil
	}

	fields := Fields(t)
	plans := make([]FieldPlan, len(fields))
	for i, f := range fields {
		plans[i] = plan(f.Name, f.Offset, f.Type)
	}
	return plans, nil
}

func plan(name string, off uintptr, t reflect.Type) FieldPlan {
	return FieldPlan{
		Name:     name,
		Offset:   off,
		Type:     t,
		TypeName: t.String(),
		Tag:      leadingTag(t),
		Encoding: encoding(t),
	}
}

// leadingTag returns the tag a value of type t starts with
func leadingTag(t reflect.Type) wire.Tag {
	for {
		if tag, ok := wire.TagOf(t); ok {
			return tag
		}
		switch t.Kind() {
		case reflect.Pointer:
			t = t.Elem()
		case reflect.Slice, reflect.Array:
			return wire.TagCollectionStart
		default:
			return wire.TagObject
		}
	}
}

// encoding names the wire shape of t, e.g. "int", "object" or
// "collection<string>".
func encoding(t reflect.Type) string {
	if tag, ok := wire.TagOf(t); ok {
		return tag.String()
	}
	var b strings.Builder
	switch t.Kind() {
	case reflect.Struct:
		b.WriteString("object")
	case reflect.Pointer:
		b.WriteString("nullable<")
		b.WriteString(encodingShallow(t.Elem()))
		b.WriteString(">")
	case reflect.Slice, reflect.Array:
		b.WriteString("collection<")
		b.WriteString(encodingShallow(t.Elem()))
		b.WriteString(">")
	default:
		b.WriteString("?")
	}
	return b.String()
}

// encodingShallow avoids recursing into element types beyond one more level
func encodingShallow(t reflect.Type) string {
	if tag, ok := wire.TagOf(t); ok {
		return tag.String()
	}
	switch t.Kind() {
	case reflect.Struct:
		return "object"
	case reflect.Pointer:
		return "nullable"
	case reflect.Slice, reflect.Array:
		return "collection"
	}
	return "?"
}
