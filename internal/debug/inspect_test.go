package debug

import (
	"encoding/json"
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctagard/mcdbg/internal/protocol"
	"github.com/ctagard/mcdbg/pkg/types"
)

func objectHandle(ref int) *types.Variable {
	return &types.Variable{
		Name:        "result",
		Ref:         ref,
		Kind:        types.KindObject,
		RawType:     "object",
		ValueString: "[object Object]",
	}
}

func TestInspectPrimitiveReturnsScalar(t *testing.T) {
	session, _ := newTestSession(t)

	v := &types.Variable{Name: "n", Kind: types.KindInteger, Primitive: true, Value: int64(4)}
	assert.Equal(t, int64(4), session.Inspect(v, InspectOptions{}))
}

func TestInspectNonObjectReturnsRenderedString(t *testing.T) {
	session, _ := newTestSession(t)

	fn := &types.Variable{Name: "f", Ref: 3, Kind: types.KindFunction, ValueString: "function f()"}
	assert.Equal(t, "function f()", session.Inspect(fn, InspectOptions{}))

	opaque := &types.Variable{Name: "e", Kind: types.KindOpaque, RawType: "entity", ValueString: "<entity>"}
	assert.Equal(t, "<entity>", session.Inspect(opaque, InspectOptions{}))
}

func TestInspectMapping(t *testing.T) {
	session, fake := newTestSession(t)
	fake.serveVariables(map[int][]map[string]any{
		7: {
			wireVariable("a", "1", "integer", 0),
			wireVariable("b", "2", "integer", 0),
		},
	}, nil)

	result := session.Inspect(objectHandle(7), InspectOptions{})

	obj, ok := result.(*types.Object)
	require.True(t, ok, "expected *types.Object, got %T", result)
	assert.Equal(t, 7, obj.Ref)
	assert.Equal(t, []string{"a", "b"}, obj.Names())

	a, _ := obj.Get("a")
	b, _ := obj.Get("b")
	assert.Equal(t, int64(1), a)
	assert.Equal(t, int64(2), b)
}

func TestInspectCyclePreservesIdentity(t *testing.T) {
	session, fake := newTestSession(t)
	fake.serveVariables(map[int][]map[string]any{
		1: {wireVariable("next", "[object Object]", "object", 2)},
		2: {wireVariable("prev", "[object Object]", "object", 1)},
	}, nil)

	result := session.Inspect(objectHandle(1), InspectOptions{MaxDepth: 16})

	root, ok := result.(*types.Object)
	require.True(t, ok)
	next, ok := root.Get("next")
	require.True(t, ok)
	prev, ok := next.(*types.Object).Get("prev")
	require.True(t, ok)
	assert.Same(t, root, prev.(*types.Object))
}

func TestInspectSharedReferenceIsOneInstance(t *testing.T) {
	session, fake := newTestSession(t)
	fake.serveVariables(map[int][]map[string]any{
		1: {
			wireVariable("left", "[object Object]", "object", 2),
			wireVariable("right", "[object Object]", "object", 2),
		},
		2: {wireVariable("x", "1", "integer", 0)},
	}, nil)

	root := session.Inspect(objectHandle(1), InspectOptions{}).(*types.Object)
	left, _ := root.Get("left")
	right, _ := root.Get("right")
	assert.Same(t, left.(*types.Object), right.(*types.Object))
}

func TestInspectDepthBound(t *testing.T) {
	session, fake := newTestSession(t)

	table := make(map[int][]map[string]any)
	for i := 1; i <= 100; i++ {
		table[i] = []map[string]any{wireVariable("next", "[object Object]", "object", i+1)}
	}
	fake.serveVariables(table, nil)

	result := session.Inspect(objectHandle(1), InspectOptions{MaxDepth: 3})

	node := result.(*types.Object)
	for i := 0; i < 2; i++ {
		next, ok := node.Get("next")
		require.True(t, ok)
		node, ok = next.(*types.Object)
		require.True(t, ok, "depth %d should still be a container", i+1)
	}

	deepest, ok := node.Get("next")
	require.True(t, ok)
	assert.Equal(t, "[object Object]", deepest, "the depth bound must cut over to the rendered string")
}

func TestInspectIndexedArray(t *testing.T) {
	session, fake := newTestSession(t)

	go func() {
		req, err := fake.readRequest()
		if err != nil {
			return
		}
		var args protocol.VariablesArgs
		assert.NoError(t, json.Unmarshal(req.Request.Args, &args))
		assert.Equal(t, 8, args.VariablesReference)
		assert.Equal(t, protocol.FilterIndexed, args.Filter)
		if assert.NotNil(t, args.Start) {
			assert.Equal(t, 0, *args.Start)
		}
		if assert.NotNil(t, args.Count) {
			assert.Equal(t, 5, *args.Count)
		}

		elems := make([]map[string]any, 5)
		for i := range elems {
			elems[i] = wireVariable(strconv.Itoa(i), fmt.Sprint(i*10), "integer", 0)
		}
		assert.NoError(t, fake.respond(req.Request.RequestSeq, elems))
	}()

	v := objectHandle(8)
	v.IsArray = true
	v.IndexedCount = 5

	result := session.Inspect(v, InspectOptions{})
	arr, ok := result.(*types.Array)
	require.True(t, ok, "expected *types.Array, got %T", result)
	assert.Equal(t, 8, arr.Ref)
	require.Len(t, arr.Elems, 5)
	for i, elem := range arr.Elems {
		assert.Equal(t, int64(i*10), elem)
	}
}

func TestInspectPartialFailureYieldsEmptyContainer(t *testing.T) {
	session, fake := newTestSession(t)
	fake.serveVariables(map[int][]map[string]any{
		1: {
			wireVariable("ok", "1", "integer", 0),
			wireVariable("gone", "[object Object]", "object", 2),
		},
	}, map[int]string{2: "reference expired"})

	root := session.Inspect(objectHandle(1), InspectOptions{}).(*types.Object)

	okVal, _ := root.Get("ok")
	assert.Equal(t, int64(1), okVal)

	gone, found := root.Get("gone")
	require.True(t, found)
	child := gone.(*types.Object)
	assert.Equal(t, 2, child.Ref)
	assert.Equal(t, 0, child.Len())
}

func TestInspectTopLevelFailureStillResolves(t *testing.T) {
	session, fake := newTestSession(t)
	fake.serveVariables(nil, map[int]string{9: "reference expired"})

	root := session.Inspect(objectHandle(9), InspectOptions{}).(*types.Object)
	assert.Equal(t, 9, root.Ref)
	assert.Equal(t, 0, root.Len())
}

func TestInspectProtoSkippedByDefault(t *testing.T) {
	session, fake := newTestSession(t)
	fake.serveVariables(map[int][]map[string]any{
		1: {
			wireVariable("a", "1", "integer", 0),
			wireVariable("__proto__", "[object Object]", "object", 2),
		},
		2: {wireVariable("greet", "function greet()", "function", 0)},
	}, nil)

	root := session.Inspect(objectHandle(1), InspectOptions{}).(*types.Object)
	assert.Equal(t, []string{"a"}, root.Names())
	assert.Nil(t, root.Proto)
}

func TestInspectProtoExpandsOntoParentLink(t *testing.T) {
	session, fake := newTestSession(t)
	fake.serveVariables(map[int][]map[string]any{
		1: {
			wireVariable("a", "1", "integer", 0),
			wireVariable("__proto__", "[object Object]", "object", 2),
		},
		2: {wireVariable("greet", "function greet()", "function", 0)},
	}, nil)

	root := session.Inspect(objectHandle(1), InspectOptions{InspectProto: true}).(*types.Object)
	assert.Equal(t, []string{"a"}, root.Names(), "__proto__ must not appear as an ordinary field")
	require.NotNil(t, root.Proto)
	assert.Equal(t, 2, root.Proto.Ref)
	greet, _ := root.Proto.Get("greet")
	assert.Equal(t, "function greet()", greet)
}
