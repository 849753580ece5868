package debug

import (
	"strconv"

	"github.com/ctagard/mcdbg/internal/protocol"
	"github.com/ctagard/mcdbg/pkg/types"
)

// newVariable applies the debuggee's typing rules to one wire VariableInfo.
// Scalar kinds are decoded eagerly; an undecodable scalar degrades to an
// opaque value rather than failing, keeping forward-compatible type strings
// usable.
func newVariable(info protocol.VariableInfo) *types.Variable {
	v := &types.Variable{
		Name:        info.Name,
		Ref:         info.Ref,
		RawType:     info.Type,
		ValueString: info.Value,
	}

	switch info.Type {
	case "string":
		v.Kind = types.KindString
		v.Primitive = true
		v.Value = info.Value
	case "integer":
		n, err := strconv.ParseInt(info.Value, 10, 64)
		if err != nil {
			v.Kind = types.KindOpaque
			return v
		}
		v.Kind = types.KindInteger
		v.Primitive = true
		v.Value = n
	case "float":
		f, err := strconv.ParseFloat(info.Value, 64)
		if err != nil {
			v.Kind = types.KindOpaque
			return v
		}
		v.Kind = types.KindFloat
		v.Primitive = true
		v.Value = f
	case "boolean":
		v.Kind = types.KindBoolean
		v.Primitive = true
		v.Value = info.Value == "true"
	case "null":
		v.Kind = types.KindNull
		v.Primitive = true
	case "undefined":
		v.Kind = types.KindUndefined
		v.Primitive = true
	case "object", "function":
		if info.Type == "object" {
			v.Kind = types.KindObject
		} else {
			v.Kind = types.KindFunction
		}
		if info.IndexedVariables != nil {
			v.IsArray = true
			v.IndexedCount = *info.IndexedVariables
		}
	default:
		v.Kind = types.KindOpaque
	}
	return v
}
