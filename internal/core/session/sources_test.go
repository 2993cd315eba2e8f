package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceRegistry_RegisterOnDiskSourceHasNoReference(t *testing.T) {
	r := NewSourceRegistry()
	ref := r.Register("main.py", "/src/main.py", "disk", false)

	assert.Equal(t, 0, ref.SourceReference)
}

func TestSourceRegistry_RegisterLazySourceAllocatesReference(t *testing.T) {
	r := NewSourceRegistry()
	ref := r.Register("<string>", "", "eval", true)

	assert.NotEqual(t, 0, ref.SourceReference)
}

func TestSourceRegistry_RegisterSamePathTwiceReturnsSameRef(t *testing.T) {
	r := NewSourceRegistry()
	first := r.Register("main.py", "/src/main.py", "disk", false)
	second := r.Register("main.py", "/src/main.py", "disk-updated", false)

	assert.Same(t, first, second)
	assert.Equal(t, "disk-updated", second.Origin)
}

func TestSourceRegistry_SetContentAndFetch(t *testing.T) {
	r := NewSourceRegistry()
	ref := r.Register("<eval>", "", "eval", true)

	_, ok := r.Content(ref.SourceReference)
	assert.False(t, ok, "content not set yet")

	r.SetContent(ref.SourceReference, "print('hi')")

	got, ok := r.Content(ref.SourceReference)
	require.True(t, ok)
	assert.Equal(t, "print('hi')", got)
}

func TestSourceRegistry_ContentForUnknownRef(t *testing.T) {
	r := NewSourceRegistry()
	_, ok := r.Content(404)
	assert.False(t, ok)
}

func TestSourceRegistry_List(t *testing.T) {
	r := NewSourceRegistry()
	r.Register("a.py", "/a.py", "disk", false)
	r.Register("b.py", "/b.py", "disk", false)

	assert.Len(t, r.List(), 2)
}
