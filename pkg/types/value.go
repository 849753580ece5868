package types

import "github.com/emirpasic/gods/maps/linkedhashmap"

// Object is a materialised non-array value. Fields keep the order the
// debuggee returned them in while remaining addressable by name. The same
// *Object instance is reused for every occurrence of its reference inside a
// single inspection, so cyclic graphs stay cyclic after materialisation.
type Object struct {
	Ref    int
	Proto  *Object
	fields *linkedhashmap.Map
}

// NewObject returns an empty Object tagged with the reference it was
// materialised from.
func NewObject(ref int) *Object {
	return &Object{Ref: ref, fields: linkedhashmap.New()}
}

// Set stores a field value, appending to the field order on first insert.
func (o *Object) Set(name string, value any) {
	o.fields.Put(name, value)
}

// Get returns a field value by name.
func (o *Object) Get(name string) (any, bool) {
	return o.fields.Get(name)
}

// Len returns the number of fields.
func (o *Object) Len() int {
	return o.fields.Size()
}

// Names returns the field names in insertion order.
func (o *Object) Names() []string {
	keys := o.fields.Keys()
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		names = append(names, k.(string))
	}
	return names
}

// Each visits every field in insertion order.
func (o *Object) Each(fn func(name string, value any)) {
	o.fields.Each(func(key, value any) {
		fn(key.(string), value)
	})
}

// Array is a materialised indexed value. Elements appear in index order.
// Like Object, instances are shared across occurrences of the same
// reference within one inspection.
type Array struct {
	Ref   int
	Elems []any
}

// Len returns the number of elements.
func (a *Array) Len() int {
	return len(a.Elems)
}
