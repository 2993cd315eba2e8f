package breakpoints

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatLogMessage_NoHoles(t *testing.T) {
	got, warned := FormatLogMessage("hit the line", func(expr string) (string, error) {
		t.Fatal("eval should not be called for a message with no holes")
		return "", nil
	})
	assert.Equal(t, "hit the line", got)
	assert.False(t, warned)
}

func TestFormatLogMessage_ExpandsHoles(t *testing.T) {
	got, warned := FormatLogMessage("x is {x}, y is {y}", func(expr string) (string, error) {
		switch expr {
		case "x":
			return "1", nil
		case "y":
			return "2", nil
		}
		return "", errors.New("unknown")
	})
	assert.Equal(t, "x is 1, y is 2", got)
	assert.False(t, warned)
}

func TestFormatLogMessage_EvalErrorKeepsRawHoleAndWarns(t *testing.T) {
	got, warned := FormatLogMessage("bad: {oops}", func(expr string) (string, error) {
		return "", errors.New("not found")
	})
	assert.Equal(t, "bad: {oops}", got)
	assert.True(t, warned)
}

func TestFormatLogMessage_UnterminatedHoleEmittedVerbatim(t *testing.T) {
	got, warned := FormatLogMessage("trailing {x", func(expr string) (string, error) {
		t.Fatal("eval should not be called for an unterminated hole")
		return "", nil
	})
	assert.Equal(t, "trailing {x", got)
	assert.False(t, warned)
}

func TestFormatLogMessage_MixedSuccessAndFailure(t *testing.T) {
	got, warned := FormatLogMessage("{ok} then {bad}", func(expr string) (string, error) {
		if expr == "ok" {
			return "fine", nil
		}
		return "", errors.New("boom")
	})
	assert.Equal(t, "fine then {bad}", got)
	assert.True(t, warned)
}

func TestFormatLogMessage_EmptyMessage(t *testing.T) {
	got, warned := FormatLogMessage("", func(expr string) (string, error) {
		t.Fatal("eval should not be called for an empty message")
		return "", nil
	})
	assert.Equal(t, "", got)
	assert.False(t, warned)
}
