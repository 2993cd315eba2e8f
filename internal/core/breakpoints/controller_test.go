package breakpoints

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_SourceBreakpoints_IDStableWhenUnchanged(t *testing.T) {
	c := New()

	first := c.SetSourceBreakpoints("a.py", []SourceBreakpoint{
		{Line: 10, Condition: "x > 1"},
		{Line: 20},
	}, nil)
	require.Len(t, first, 2)
	id10, id20 := first[0].ID, first[1].ID
	assert.NotEqual(t, id10, id20)

	second := c.SetSourceBreakpoints("a.py", []SourceBreakpoint{
		{Line: 10, Condition: "x > 1"},
		{Line: 20},
	}, nil)
	require.Len(t, second, 2)
	assert.Equal(t, id10, second[0].ID)
	assert.Equal(t, id20, second[1].ID)
}

func TestController_SourceBreakpoints_LogMessageOnlyEditKeepsID(t *testing.T) {
	c := New()

	first := c.SetSourceBreakpoints("a.py", []SourceBreakpoint{
		{Line: 10},
	}, nil)
	id := first[0].ID

	second := c.SetSourceBreakpoints("a.py", []SourceBreakpoint{
		{Line: 10, LogMessage: "hit: {x}"},
	}, nil)

	assert.Equal(t, id, second[0].ID, "a log_message-only edit must not mint a new id")
}

func TestController_SourceBreakpoints_ConditionChangeMintsNewID(t *testing.T) {
	c := New()

	first := c.SetSourceBreakpoints("a.py", []SourceBreakpoint{
		{Line: 10, Condition: "x > 1"},
	}, nil)
	id := first[0].ID

	second := c.SetSourceBreakpoints("a.py", []SourceBreakpoint{
		{Line: 10, Condition: "x > 2"},
	}, nil)

	assert.NotEqual(t, id, second[0].ID)
}

func TestController_SourceBreakpoints_RemovedThenReaddedMintsNewID(t *testing.T) {
	c := New()

	first := c.SetSourceBreakpoints("a.py", []SourceBreakpoint{
		{Line: 10},
	}, nil)
	id := first[0].ID

	c.SetSourceBreakpoints("a.py", nil, nil)

	second := c.SetSourceBreakpoints("a.py", []SourceBreakpoint{
		{Line: 10},
	}, nil)

	assert.NotEqual(t, id, second[0].ID)
}

func TestController_SourceBreakpoints_PathsAreIndependent(t *testing.T) {
	c := New()

	a := c.SetSourceBreakpoints("a.py", []SourceBreakpoint{{Line: 10}}, nil)
	b := c.SetSourceBreakpoints("b.py", []SourceBreakpoint{{Line: 10}}, nil)

	assert.NotEqual(t, a[0].ID, b[0].ID)
	assert.Len(t, c.SourceBreakpoints("a.py"), 1)
	assert.Len(t, c.SourceBreakpoints("b.py"), 1)
}

func TestController_SourceBreakpoints_PathNormalization(t *testing.T) {
	c := New()

	c.SetSourceBreakpoints("./sub/../a.py", []SourceBreakpoint{{Line: 5}}, nil)
	assert.Len(t, c.SourceBreakpoints("a.py"), 1)
}

func TestController_SourceBreakpoints_VerifyCallback(t *testing.T) {
	c := New()

	got := c.SetSourceBreakpoints("a.py", []SourceBreakpoint{{Line: 10}}, func(bp *SourceBreakpoint) {
		bp.Verified = true
		bp.ActualLine = 11
	})

	require.Len(t, got, 1)
	assert.True(t, got[0].Verified)
	assert.Equal(t, 11, got[0].ActualLine)
}

func TestController_FunctionBreakpoints_IDStableWhenUnchanged(t *testing.T) {
	c := New()

	first := c.SetFunctionBreakpoints([]FunctionBreakpoint{
		{Name: "main", Condition: ""},
	}, nil)
	id := first[0].ID

	second := c.SetFunctionBreakpoints([]FunctionBreakpoint{
		{Name: "main", Condition: ""},
	}, nil)

	assert.Equal(t, id, second[0].ID)
}

func TestController_FunctionBreakpoints_ConditionChangeMintsNewID(t *testing.T) {
	c := New()

	first := c.SetFunctionBreakpoints([]FunctionBreakpoint{{Name: "main"}}, nil)
	id := first[0].ID

	second := c.SetFunctionBreakpoints([]FunctionBreakpoint{
		{Name: "main", Condition: "argc > 1"},
	}, nil)

	assert.NotEqual(t, id, second[0].ID)
}

func TestController_ExceptionFilters_PreservesOrdering(t *testing.T) {
	c := New()

	got := c.SetExceptionFilters([]ExceptionFilter{
		{FilterID: "uncaught"},
		{FilterID: "raised"},
	})

	require.Len(t, got, 2)
	assert.Equal(t, "uncaught", got[0].FilterID)
	assert.Equal(t, "raised", got[1].FilterID)
}

func TestController_ExceptionFilters_IDStableWhenUnchanged(t *testing.T) {
	c := New()

	first := c.SetExceptionFilters([]ExceptionFilter{
		{FilterID: "raised", Condition: ""},
	})
	id := first[0].ID

	second := c.SetExceptionFilters([]ExceptionFilter{
		{FilterID: "raised", Condition: ""},
	})

	assert.Equal(t, id, second[0].ID)
}

func TestController_ExceptionFilters_ConditionChangeMintsNewID(t *testing.T) {
	c := New()

	first := c.SetExceptionFilters([]ExceptionFilter{
		{FilterID: "raised"},
	})
	id := first[0].ID

	second := c.SetExceptionFilters([]ExceptionFilter{
		{FilterID: "raised", Condition: "IOError"},
	})

	assert.NotEqual(t, id, second[0].ID)
}

func TestController_DataBreakpoints_ExposesRegistry(t *testing.T) {
	c := New()
	assert.NotNil(t, c.DataBreakpoints())
}
