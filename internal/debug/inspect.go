package debug

import (
	"github.com/ctagard/mcdbg/internal/protocol"
	"github.com/ctagard/mcdbg/pkg/types"
)

// DefaultInspectDepth bounds recursion when no explicit depth is given.
const DefaultInspectDepth = 16

// protoField is the property name carrying an object's prototype link.
const protoField = "__proto__"

// InspectOptions configures a graph materialisation.
type InspectOptions struct {
	// MaxDepth bounds recursion; zero selects DefaultInspectDepth.
	MaxDepth int
	// InspectProto expands __proto__ children onto Object.Proto instead of
	// skipping them.
	InspectProto bool
}

// Inspect materialises a variable handle into a concrete value tree by
// walking the debuggee's variable table.
//
// Primitives return their decoded scalar; non-objects return their rendered
// string. Objects recurse depth-bounded, and every reference is entered
// into a per-call map before its children are fetched, so any later
// occurrence of the same reference resolves to the same container instance.
// That shared identity is what terminates cycles. A failed child fetch
// leaves that container empty; partial results are preferred over none.
func (s *Session) Inspect(v *types.Variable, opts InspectOptions) any {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultInspectDepth
	}
	seen := make(map[int]any)
	return s.materialize(v, opts.MaxDepth, opts, seen)
}

func (s *Session) materialize(v *types.Variable, depth int, opts InspectOptions, seen map[int]any) any {
	if v.Primitive {
		return v.Value
	}
	if v.Kind != types.KindObject {
		return v.ValueString
	}
	if depth <= 0 {
		return v.ValueString
	}
	if existing, ok := seen[v.Ref]; ok {
		return existing
	}

	if v.IsArray {
		arr := &types.Array{Ref: v.Ref}
		seen[v.Ref] = arr

		start, count := 0, v.IndexedCount
		children, err := s.Variables(v.Ref, VariablesOptions{
			Filter: protocol.FilterIndexed,
			Start:  &start,
			Count:  &count,
		})
		if err != nil {
			s.log.WithError(err).WithField("ref", v.Ref).Debug("leaving array unexpanded")
			return arr
		}

		arr.Elems = make([]any, 0, len(children))
		for _, child := range children {
			arr.Elems = append(arr.Elems, s.materialize(child, depth-1, opts, seen))
		}
		return arr
	}

	obj := types.NewObject(v.Ref)
	seen[v.Ref] = obj

	children, err := s.Variables(v.Ref, VariablesOptions{})
	if err != nil {
		s.log.WithError(err).WithField("ref", v.Ref).Debug("leaving object unexpanded")
		return obj
	}

	for _, child := range children {
		if child.Name == protoField {
			if !opts.InspectProto {
				continue
			}
			if proto, ok := s.materialize(child, depth-1, opts, seen).(*types.Object); ok {
				obj.Proto = proto
			}
			continue
		}
		obj.Set(child.Name, s.materialize(child, depth-1, opts, seen))
	}
	return obj
}
