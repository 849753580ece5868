package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectPreservesInsertionOrder(t *testing.T) {
	obj := NewObject(7)
	obj.Set("z", 1)
	obj.Set("a", 2)
	obj.Set("m", 3)

	assert.Equal(t, []string{"z", "a", "m"}, obj.Names())
	assert.Equal(t, 3, obj.Len())

	var visited []string
	obj.Each(func(name string, _ any) {
		visited = append(visited, name)
	})
	assert.Equal(t, []string{"z", "a", "m"}, visited)
}

func TestObjectGet(t *testing.T) {
	obj := NewObject(1)
	obj.Set("x", int64(42))

	v, ok := obj.Get("x")
	assert.True(t, ok)
	assert.Equal(t, int64(42), v)

	_, ok = obj.Get("missing")
	assert.False(t, ok)
}

func TestObjectSetOverwritesInPlace(t *testing.T) {
	obj := NewObject(1)
	obj.Set("x", 1)
	obj.Set("x", 2)

	assert.Equal(t, 1, obj.Len())
	v, _ := obj.Get("x")
	assert.Equal(t, 2, v)
}

func TestArrayLen(t *testing.T) {
	arr := &Array{Ref: 9, Elems: []any{int64(1), "two", nil}}
	assert.Equal(t, 3, arr.Len())
}

func TestLogSeverityString(t *testing.T) {
	assert.Equal(t, "trace", LogTrace.String())
	assert.Equal(t, "error", LogError.String())
	assert.Equal(t, "unknown", LogSeverity(9).String())
}
