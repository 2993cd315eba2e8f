package backend

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jnsquire/dapper/internal/models"
)

func TestOutputStream_PumpRecordsLines(t *testing.T) {
	var forwarded []models.OutputLine
	os := NewOutputStream(10, func(l models.OutputLine) { forwarded = append(forwarded, l) })

	r := strings.NewReader("line one\nline two\n")
	os.Pump(r, models.OutputCategoryStdout, func() models.OutputLine {
		return models.OutputLine{Timestamp: time.Now()}
	})

	recent := os.Recent()
	require.Len(t, recent, 2)
	assert.Equal(t, "line one", recent[0].Text)
	assert.Equal(t, "line two", recent[1].Text)
	assert.Equal(t, models.OutputCategoryStdout, recent[0].Category)
	assert.Len(t, forwarded, 2)
}

func TestOutputStream_RingBufferTrimsToCapacity(t *testing.T) {
	os := NewOutputStream(2, nil)
	r := strings.NewReader("a\nb\nc\n")
	os.Pump(r, models.OutputCategoryStdout, func() models.OutputLine { return models.OutputLine{} })

	recent := os.Recent()
	require.Len(t, recent, 2)
	assert.Equal(t, "b", recent[0].Text)
	assert.Equal(t, "c", recent[1].Text)
}

func TestOutputStream_ZeroCapacityDefaults(t *testing.T) {
	os := NewOutputStream(0, nil)
	assert.Equal(t, 2000, os.capacity)
}

func TestOutputStream_RecentIsASnapshot(t *testing.T) {
	os := NewOutputStream(10, nil)
	os.record(models.OutputLine{Text: "one"})

	snap := os.Recent()
	snap[0].Text = "mutated"

	assert.Equal(t, "one", os.Recent()[0].Text)
}
